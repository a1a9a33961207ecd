package pipeline

import "regexp"

// Recognizer finds PII spans in text. Implementations must be pure
// functions of (text, language) and safe for concurrent use. The
// pattern-based implementation below is the only one today; an NLP-backed
// implementation can be swapped in at construction time.
type Recognizer interface {
	Recognize(text, language string) []DetectedEntity
}

// Pattern catalogue with per-type baseline scores. Compiled at package
// init so a malformed pattern fails at startup, never mid-request.
// Catalogue order is fixed: detection output is deterministic.
var patternCatalogue = []struct {
	entityType EntityType
	re         *regexp.Regexp
	score      float64
}{
	{EntityEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), 0.80},
	{EntityPhone, regexp.MustCompile(`(\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})`), 0.75},
	{EntityUSSSN, regexp.MustCompile(`\b\d{3}-?\d{2}-?\d{4}\b`), 0.95},
	{EntityCreditCard, regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`), 0.95},
	{EntityIBAN, regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{4}\d{7}([A-Z0-9]?){0,16}\b`), 0.85},
	{EntityUSPassport, regexp.MustCompile(`\b[A-Z]\d{8}\b`), 0.90},
	{EntityIPAddress, regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`), 0.70},
	{EntityPerson, regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`), 0.60},
}

// PatternRecognizer scans text against the fixed PII pattern catalogue.
// Each type's pattern is evaluated independently over the full text, so
// entities of different types may overlap. That is intentional: spans are
// never deduplicated across types.
type PatternRecognizer struct{}

func NewPatternRecognizer() *PatternRecognizer {
	return &PatternRecognizer{}
}

// Recognize returns all non-overlapping matches per entity type, each
// carrying the type's baseline score. The language parameter is accepted
// for interface stability; the catalogue is language-invariant.
func (r *PatternRecognizer) Recognize(text, _ string) []DetectedEntity {
	var entities []DetectedEntity
	for _, p := range patternCatalogue {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			entities = append(entities, DetectedEntity{
				Type:  p.entityType,
				Start: loc[0],
				End:   loc[1],
				Score: p.score,
				Text:  text[loc[0]:loc[1]],
			})
		}
	}
	return entities
}
