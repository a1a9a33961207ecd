package pipeline

import (
	"strings"

	"go.uber.org/zap"
)

// BlockedPlaceholder replaces the entire text when the decision is BLOCK.
// The anonymizer itself is bypassed on that path.
const BlockedPlaceholder = "[BLOCKED: Contains sensitive information]"

// Anonymizer rewrites text by replacing entity spans with type-specific
// masks.
type Anonymizer struct {
	logger *zap.Logger
}

func NewAnonymizer(logger *zap.Logger) *Anonymizer {
	return &Anonymizer{logger: logger}
}

// Anonymize substitutes each entity span right to left (descending start
// offset) so leftward replacements are unaffected by offset shifts from
// earlier ones. When spans of different types overlap, the one processed
// last wins the overlapping range; there is no confidence-based merge.
// A span that falls outside the current text bounds is skipped and
// logged, and processing continues with the rest.
func (a *Anonymizer) Anonymize(text string, entities []DetectedEntity) string {
	sorted := make([]DetectedEntity, len(entities))
	copy(sorted, entities)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Start > sorted[j-1].Start; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	out := text
	for _, e := range sorted {
		if e.Start < 0 || e.Start >= e.End || e.End > len(out) {
			a.logger.Warn("entity span outside text bounds, skipping",
				zap.String("entity_type", string(e.Type)),
				zap.Int("start", e.Start),
				zap.Int("end", e.End),
				zap.Int("text_length", len(out)),
			)
			continue
		}
		out = out[:e.Start] + maskFor(e) + out[e.End:]
	}
	return out
}

// maskFor returns the type-specific replacement for one entity.
func maskFor(e DetectedEntity) string {
	switch e.Type {
	case EntityEmail:
		if _, domain, ok := strings.Cut(e.Text, "@"); ok {
			return "***@" + domain
		}
		return "[REDACTED]"
	case EntityPhone:
		return "***-***-" + lastN(e.Text, 4)
	case EntityCreditCard:
		return "****-****-****-" + lastN(e.Text, 4)
	case EntityUSSSN:
		return "***-**-" + lastN(e.Text, 4)
	case EntityIBAN:
		return firstN(e.Text, 4) + "****" + lastN(e.Text, 4)
	case EntityUSPassport:
		return "[PASSPORT]"
	case EntityIPAddress:
		parts := strings.Split(e.Text, ".")
		return "***.***.***." + parts[len(parts)-1]
	case EntityPerson:
		return "[PERSON]"
	default:
		return "[REDACTED]"
	}
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
