package analytics

// RiskLevel grades a fused shipment risk total.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskComponents are the external signals feeding fused risk, each 0..100.
type RiskComponents struct {
	Weather         float64 `json:"weather"`
	CorridorHistory float64 `json:"corridor_history"`
	ETAUncertainty  float64 `json:"eta_uncertainty"`
}

// RiskAssessment is the fused result.
type RiskAssessment struct {
	Components          RiskComponents `json:"components"`
	Total               float64        `json:"total"`
	Level               RiskLevel      `json:"level"`
	WorstCasePenalty    bool           `json:"worst_case_penalty"`
	OverrideRecommended bool           `json:"override_recommended"`
}

// FuseRisk combines external signals 0.30/0.30/0.40. Any single component at
// 80 or above adds a 10-point worst-case penalty, capped at 100. Manual
// override is recommended at total >= 80, or total >= 60 with any component
// at 80 or above.
func FuseRisk(c RiskComponents) RiskAssessment {
	total := 0.30*c.Weather + 0.30*c.CorridorHistory + 0.40*c.ETAUncertainty

	anyExtreme := c.Weather >= 80 || c.CorridorHistory >= 80 || c.ETAUncertainty >= 80
	penalty := false
	if anyExtreme {
		total += 10
		penalty = true
	}
	if total > 100 {
		total = 100
	}

	var level RiskLevel
	switch {
	case total < 30:
		level = RiskLow
	case total < 60:
		level = RiskMedium
	case total < 80:
		level = RiskHigh
	default:
		level = RiskCritical
	}

	return RiskAssessment{
		Components:          c,
		Total:               total,
		Level:               level,
		WorstCasePenalty:    penalty,
		OverrideRecommended: total >= 80 || (total >= 60 && anyExtreme),
	}
}
