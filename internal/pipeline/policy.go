package pipeline

import "strings"

// PolicyRule is one route class's rule table. The decision cascade in
// Decide is hard-coded today, but the entity sets it consults live here
// so the tables can move to configuration without changing shape.
type PolicyRule struct {
	BlockEntities  map[EntityType]bool
	RedactEntities map[EntityType]bool
	RiskThreshold  float64
	AllowOverride  bool
}

// routeRules holds the per-route-class tables. Any class outside this map
// uses the internal table's behavior.
var routeRules = map[string]PolicyRule{
	"public": {
		BlockEntities:  highRiskTypes,
		RedactEntities: mediumRiskTypes,
		RiskThreshold:  highRiskScoreGate,
	},
	"private": {
		BlockEntities:  highRiskTypes,
		RedactEntities: mediumRiskTypes,
		RiskThreshold:  highRiskScoreGate,
	},
	"internal": {
		BlockEntities: map[EntityType]bool{
			EntityCreditCard: true,
			EntityUSSSN:      true,
		},
		RiskThreshold: highRiskScoreGate,
		AllowOverride: true,
	},
}

// RouteClass returns the substring before the first ':'. A route with no
// colon classifies as "public".
func RouteClass(route string) string {
	if i := strings.Index(route, ":"); i >= 0 {
		return route[:i]
	}
	return "public"
}

// Decide maps (route classification, entity set, risk tier) to a decision.
// Each class's rules are evaluated top to bottom; the first match wins.
// Pure function: identical inputs always yield the identical decision.
func Decide(route string, entities []DetectedEntity, tier RiskTier) Decision {
	switch class := RouteClass(route); class {
	case "public":
		rule := routeRules[class]
		switch {
		case tier == RiskHigh:
			return DecisionBlock
		case anyEntityIn(entities, rule.BlockEntities):
			return DecisionBlock
		case tier == RiskMedium:
			return DecisionRedact
		default:
			return DecisionAllow
		}
	case "private":
		rule := routeRules[class]
		switch {
		case tier == RiskHigh && anyEntityIn(entities, rule.BlockEntities):
			return DecisionBlock
		case tier == RiskHigh || tier == RiskMedium:
			return DecisionRedact
		default:
			return DecisionAllow
		}
	default:
		// internal, plus any unrecognized class.
		rule := routeRules["internal"]
		if anyEntityIn(entities, rule.BlockEntities) {
			return DecisionRedact
		}
		return DecisionAllow
	}
}

// DecideOutput is the simplified policy for model-generated text: it has
// already been produced and must be returned in some safe form, so it is
// redacted when any entity was found and never blocked.
func DecideOutput(entities []DetectedEntity) Decision {
	if len(entities) > 0 {
		return DecisionRedact
	}
	return DecisionAllow
}

func anyEntityIn(entities []DetectedEntity, set map[EntityType]bool) bool {
	for _, e := range entities {
		if set[e.Type] {
			return true
		}
	}
	return false
}
