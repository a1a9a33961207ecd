package pipeline

// EntityType identifies a PII pattern category. The set is closed: every
// type maps to one pattern in the catalogue and one baseline score.
type EntityType string

const (
	EntityCreditCard EntityType = "CREDIT_CARD"
	EntityUSSSN      EntityType = "US_SSN"
	EntityUSPassport EntityType = "US_PASSPORT"
	EntityIBAN       EntityType = "IBAN_CODE"
	EntityEmail      EntityType = "EMAIL_ADDRESS"
	EntityPhone      EntityType = "PHONE_NUMBER"
	EntityIPAddress  EntityType = "IP_ADDRESS"
	EntityPerson     EntityType = "PERSON"
)

// DetectedEntity is one PII span found in the source text.
// Start/End are byte offsets with 0 <= Start < End <= len(text).
// Ephemeral: created per request, never persisted verbatim.
type DetectedEntity struct {
	Type  EntityType `json:"type"`
	Start int        `json:"start"`
	End   int        `json:"end"`
	Score float64    `json:"score"`
	Text  string     `json:"text"`
}

// RiskTier is the coarse severity bucket derived from detected entities.
type RiskTier int

const (
	RiskLow RiskTier = iota + 1
	RiskMedium
	RiskHigh
)

// String returns the lowercase tier name.
func (t RiskTier) String() string {
	switch t {
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "low"
	}
}

// Decision is the policy outcome for one safety check.
// Severity orders BLOCK > REDACT > ALLOW for reporting purposes only.
type Decision int

const (
	DecisionAllow Decision = iota + 1
	DecisionRedact
	DecisionBlock
)

// String returns the wire-level decision name.
func (d Decision) String() string {
	switch d {
	case DecisionRedact:
		return "REDACT"
	case DecisionBlock:
		return "BLOCK"
	default:
		return "ALLOW"
	}
}

// Method distinguishes input checks (user → model) from output checks
// (model → user). Output checks use the simplified policy: generated
// text is never blocked, only redacted.
type Method string

const (
	MethodInput  Method = "input"
	MethodOutput Method = "output"
)

// Request is one safety check payload.
type Request struct {
	Text      string
	Route     string
	Language  string
	UserID    string
	SessionID string
}

// OrgContext is the authenticated caller's organization context, resolved
// by the auth collaborator and passed into the pipeline explicitly.
type OrgContext struct {
	OrganizationID   string
	OrganizationSlug string
	UserEmail        string
}

// Result is the outcome of one safety check.
type Result struct {
	Decision  Decision
	Entities  []DetectedEntity
	SafeText  string
	RiskLevel RiskTier
	TraceID   string
	Metadata  map[string]string
}
