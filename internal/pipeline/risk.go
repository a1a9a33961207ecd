package pipeline

// Score gates for the risk cascade.
const (
	highRiskScoreGate   = 0.8
	mediumRiskScoreGate = 0.6
)

// highRiskTypes are entity types that escalate straight to the high tier.
var highRiskTypes = map[EntityType]bool{
	EntityCreditCard: true,
	EntityUSSSN:      true,
	EntityUSPassport: true,
	EntityIBAN:       true,
}

// mediumRiskTypes escalate to the medium tier.
var mediumRiskTypes = map[EntityType]bool{
	EntityEmail:  true,
	EntityPhone:  true,
	EntityPerson: true,
}

// AssessRisk reduces detected entities to one risk tier. The cascade is
// evaluated in fixed priority order: the high-risk rule is checked across
// all entities before the medium-risk rule, regardless of list order.
func AssessRisk(entities []DetectedEntity) RiskTier {
	for _, e := range entities {
		if highRiskTypes[e.Type] && e.Score >= highRiskScoreGate {
			return RiskHigh
		}
	}
	for _, e := range entities {
		if mediumRiskTypes[e.Type] && e.Score >= mediumRiskScoreGate {
			return RiskMedium
		}
	}
	return RiskLow
}
