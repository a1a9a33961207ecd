package pipeline

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anzen-ai/anzen/internal/audit"
)

// Pipeline runs one safety check end to end: detect → assess → decide →
// (conditionally) anonymize, then hands the outcome to the audit trail.
// The computation stages are pure and stateless, so a single Pipeline
// serves any number of concurrent requests without locking; the audit
// hand-off never blocks the response path.
type Pipeline struct {
	recognizer Recognizer
	anonymizer *Anonymizer
	trail      *audit.Trail
	logger     *zap.Logger
}

func New(recognizer Recognizer, anonymizer *Anonymizer, trail *audit.Trail, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		recognizer: recognizer,
		anonymizer: anonymizer,
		trail:      trail,
		logger:     logger,
	}
}

// CheckInput runs the route-scoped input policy over user-supplied text.
func (p *Pipeline) CheckInput(req Request, org OrgContext) *Result {
	start := time.Now()

	entities := p.recognizer.Recognize(req.Text, req.Language)
	tier := AssessRisk(entities)
	decision := Decide(req.Route, entities, tier)

	safeText := req.Text
	switch decision {
	case DecisionRedact:
		safeText = p.anonymizer.Anonymize(req.Text, entities)
	case DecisionBlock:
		// Anonymizer bypassed: the whole text is withheld.
		safeText = BlockedPlaceholder
	}

	return p.finish(req, org, MethodInput, "direct", entities, tier, decision, safeText, start)
}

// CheckOutput runs the simplified output policy over model-generated
// text: redact when anything was detected, never block.
func (p *Pipeline) CheckOutput(req Request, org OrgContext) *Result {
	start := time.Now()

	entities := p.recognizer.Recognize(req.Text, req.Language)
	tier := AssessRisk(entities)
	decision := DecideOutput(entities)

	safeText := req.Text
	if decision == DecisionRedact {
		safeText = p.anonymizer.Anonymize(req.Text, entities)
	}

	return p.finish(req, org, MethodOutput, "output_redaction", entities, tier, decision, safeText, start)
}

// finish builds the response, fires the audit record, and logs the
// outcome. The audit write is fire-and-forget relative to the response.
func (p *Pipeline) finish(
	req Request,
	org OrgContext,
	method Method,
	processingMethod string,
	entities []DetectedEntity,
	tier RiskTier,
	decision Decision,
	safeText string,
	start time.Time,
) *Result {
	traceID := uuid.New().String()
	processingMs := float64(time.Since(start)) / float64(time.Millisecond)

	metadata := map[string]string{
		"route":             req.Route,
		"language":          req.Language,
		"entity_count":      strconv.Itoa(len(entities)),
		"processing_method": processingMethod,
		"organization":      org.OrganizationSlug,
		"user":              org.UserEmail,
	}

	entityTypes := make([]string, len(entities))
	for i, e := range entities {
		entityTypes[i] = string(e.Type)
	}

	var outputHash string
	if decision != DecisionAllow {
		outputHash = audit.Hash(safeText)
	}

	p.trail.Record(&audit.Record{
		TraceID:          traceID,
		OrganizationID:   org.OrganizationID,
		Route:            req.Route,
		Method:           string(method),
		SessionID:        req.SessionID,
		EntityTypes:      entityTypes,
		EntityCount:      len(entities),
		RiskLevel:        tier.String(),
		Decision:         decision.String(),
		InputHash:        audit.Hash(req.Text),
		OutputHash:       outputHash,
		TextLength:       len(req.Text),
		ProcessingTimeMs: processingMs,
		CreatedAt:        time.Now().UTC(),
		Metadata:         metadata,
	})

	p.logger.Info("safety check completed",
		zap.String("trace_id", traceID),
		zap.String("method", string(method)),
		zap.String("route", req.Route),
		zap.String("decision", decision.String()),
		zap.String("risk_level", tier.String()),
		zap.Int("entity_count", len(entities)),
		zap.Float64("processing_ms", processingMs),
	)

	return &Result{
		Decision:  decision,
		Entities:  entities,
		SafeText:  safeText,
		RiskLevel: tier,
		TraceID:   traceID,
		Metadata:  metadata,
	}
}
