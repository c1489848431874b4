package model

import "time"

// Risk levels derived from the bounded risk index score.
const (
	RiskLow      = "Low"
	RiskModerate = "Moderate"
	RiskHigh     = "High"
)

// Classifier output labels as exposed over the API.
const (
	LabelHighRisk = "High Risk"
	LabelLowRisk  = "Low Risk"
)

// RiskIndexResult is the per-query output of the risk index calculator.
// Score is in [0, 100]; ContributingFactors lists the rules that fired in
// order. Results are stateless and never persisted.
type RiskIndexResult struct {
	Score               float64   `json:"risk_score"`
	Level               string    `json:"level"`
	ContributingFactors []string  `json:"contributing_factors"`
	Timestamp           time.Time `json:"timestamp"`
}

// LevelForScore maps a score to its risk level: >75 High, >40 Moderate, else Low.
func LevelForScore(score float64) string {
	switch {
	case score > 75:
		return RiskHigh
	case score > 40:
		return RiskModerate
	default:
		return RiskLow
	}
}
