package audit

import "time"

// Report is the aggregate compliance view over one organization's audit
// records for a time period.
type Report struct {
	Period      ReportPeriod          `json:"period"`
	Summary     ReportSummary         `json:"summary"`
	PIITypes    map[string]int        `json:"pii_types"`
	Routes      map[string]RouteStats `json:"routes"`
	RiskLevels  map[string]int        `json:"risk_levels"`
	Performance ReportPerformance     `json:"performance"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ReportSummary holds decision counters and their rates. Rates are
// count/total, or 0 when the period holds no requests.
type ReportSummary struct {
	TotalRequests    int     `json:"total_requests"`
	BlockedRequests  int     `json:"blocked_requests"`
	RedactedRequests int     `json:"redacted_requests"`
	AllowedRequests  int     `json:"allowed_requests"`
	BlockRate        float64 `json:"block_rate"`
	RedactionRate    float64 `json:"redaction_rate"`
	AllowRate        float64 `json:"allow_rate"`
}

// RouteStats is the per-route breakdown of the summary counters.
type RouteStats struct {
	Total    int `json:"total"`
	Blocked  int `json:"blocked"`
	Redacted int `json:"redacted"`
	Allowed  int `json:"allowed"`
}

type ReportPerformance struct {
	AvgProcessingTimeMs   float64 `json:"avg_processing_time_ms"`
	TotalProcessingTimeMs float64 `json:"total_processing_time_ms"`
}

// BuildReport aggregates records into a Report. The entity-type histogram
// flattens every record's entity-type multiset; risk levels always carry
// the three tiers even when zero.
func BuildReport(records []*Record, start, end time.Time) *Report {
	report := &Report{
		Period:     ReportPeriod{Start: start, End: end},
		PIITypes:   make(map[string]int),
		Routes:     make(map[string]RouteStats),
		RiskLevels: map[string]int{"low": 0, "medium": 0, "high": 0},
	}

	var totalTime float64
	for _, rec := range records {
		report.Summary.TotalRequests++
		switch rec.Decision {
		case "BLOCK":
			report.Summary.BlockedRequests++
		case "REDACT":
			report.Summary.RedactedRequests++
		case "ALLOW":
			report.Summary.AllowedRequests++
		}

		for _, entityType := range rec.EntityTypes {
			report.PIITypes[entityType]++
		}

		stats := report.Routes[rec.Route]
		stats.Total++
		switch rec.Decision {
		case "BLOCK":
			stats.Blocked++
		case "REDACT":
			stats.Redacted++
		case "ALLOW":
			stats.Allowed++
		}
		report.Routes[rec.Route] = stats

		report.RiskLevels[rec.RiskLevel]++
		totalTime += rec.ProcessingTimeMs
	}

	if total := report.Summary.TotalRequests; total > 0 {
		report.Summary.BlockRate = float64(report.Summary.BlockedRequests) / float64(total)
		report.Summary.RedactionRate = float64(report.Summary.RedactedRequests) / float64(total)
		report.Summary.AllowRate = float64(report.Summary.AllowedRequests) / float64(total)
		report.Performance.AvgProcessingTimeMs = totalTime / float64(total)
	}
	report.Performance.TotalProcessingTimeMs = totalTime

	return report
}
