package models

// RiskTolerance classifies how much drawdown a user is willing to accept.
type RiskTolerance string

const (
	RiskConservative RiskTolerance = "conservative"
	RiskModerate     RiskTolerance = "moderate"
	RiskAggressive   RiskTolerance = "aggressive"
)

// IsValid reports whether the tolerance is one of the known values.
func (r RiskTolerance) IsValid() bool {
	switch r {
	case RiskConservative, RiskModerate, RiskAggressive:
		return true
	}
	return false
}

// Normalize returns the tolerance itself when valid, otherwise the moderate default.
func (r RiskTolerance) Normalize() RiskTolerance {
	if r.IsValid() {
		return r
	}
	return RiskModerate
}

// UserProfile is the read-only investor profile supplied with each request.
type UserProfile struct {
	RiskTolerance   RiskTolerance `json:"risk_tolerance"`
	InvestmentGoals []string      `json:"investment_goals"` // e.g. ["retirement", "growth"]
	TimeHorizon     string        `json:"time_horizon"`     // e.g. "10+ years"
	Age             int           `json:"age,omitempty"`
	IncomeBracket   string        `json:"income_bracket,omitempty"`
}
