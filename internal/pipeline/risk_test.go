package pipeline

import "testing"

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		name     string
		entities []DetectedEntity
		want     RiskTier
	}{
		{"no entities", nil, RiskLow},
		{"credit card at baseline", []DetectedEntity{{Type: EntityCreditCard, Score: 0.95}}, RiskHigh},
		{"ssn at baseline", []DetectedEntity{{Type: EntityUSSSN, Score: 0.95}}, RiskHigh},
		{"passport at baseline", []DetectedEntity{{Type: EntityUSPassport, Score: 0.90}}, RiskHigh},
		{"iban at baseline", []DetectedEntity{{Type: EntityIBAN, Score: 0.85}}, RiskHigh},
		{"email at baseline", []DetectedEntity{{Type: EntityEmail, Score: 0.80}}, RiskMedium},
		{"phone at baseline", []DetectedEntity{{Type: EntityPhone, Score: 0.75}}, RiskMedium},
		{"person at baseline", []DetectedEntity{{Type: EntityPerson, Score: 0.60}}, RiskMedium},
		{"ip only stays low", []DetectedEntity{{Type: EntityIPAddress, Score: 0.70}}, RiskLow},
		{
			"high-risk type below gate falls through",
			[]DetectedEntity{{Type: EntityCreditCard, Score: 0.79}},
			RiskLow,
		},
		{
			"medium-risk type below gate falls through",
			[]DetectedEntity{{Type: EntityPerson, Score: 0.59}},
			RiskLow,
		},
		{
			"high-risk type at high gate never downgrades to medium",
			[]DetectedEntity{{Type: EntityIBAN, Score: 0.80}},
			RiskHigh,
		},
		{
			"high rule wins regardless of slice order",
			[]DetectedEntity{
				{Type: EntityEmail, Score: 0.80},
				{Type: EntityPerson, Score: 0.60},
				{Type: EntityUSSSN, Score: 0.95},
			},
			RiskHigh,
		},
		{
			"mixed sub-gate high plus valid medium",
			[]DetectedEntity{
				{Type: EntityCreditCard, Score: 0.50},
				{Type: EntityEmail, Score: 0.80},
			},
			RiskMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AssessRisk(tt.entities); got != tt.want {
				t.Errorf("AssessRisk() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRiskTierString(t *testing.T) {
	tests := []struct {
		tier RiskTier
		want string
	}{
		{RiskLow, "low"},
		{RiskMedium, "medium"},
		{RiskHigh, "high"},
	}
	for _, tt := range tests {
		if got := tt.tier.String(); got != tt.want {
			t.Errorf("RiskTier(%d).String() = %q, want %q", tt.tier, got, tt.want)
		}
	}
}
