package domain

import "strings"

// RiskLevel enumerates classifier outcomes. Blocked is a verdict, not an advisory level.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskBlocked RiskLevel = "blocked"
)

// Severity orders levels from least to most severe.
func (l RiskLevel) Severity() int {
	switch l {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskBlocked:
		return 3
	default:
		return 0
	}
}

// ParseRiskLevel converts a rule or wire value to a RiskLevel (low when unknown).
func ParseRiskLevel(value string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "medium":
		return RiskMedium
	case "high", "critical":
		return RiskHigh
	case "blocked", "block":
		return RiskBlocked
	default:
		return RiskLow
	}
}

// RiskAssessment aggregates classifier output.
type RiskAssessment struct {
	Level        RiskLevel
	Reasons      []string
	MatchedRules []string
}

// Blocked reports whether the command must be withheld.
func (r RiskAssessment) Blocked() bool {
	return r.Level == RiskBlocked
}
