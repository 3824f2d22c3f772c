package calculators

import (
	"github.com/forgequant/nimbus-trader/internal/types"
)

const (
	dataAgeDownMs     = 2000
	dataAgeDegradedMs = 1000

	spreadPoorBps     = 100.0
	spreadModerateBps = 50.0

	imbalanceSevere   = 0.6
	imbalanceModerate = 0.3
)

// CalculateHealthScore combines freshness, spread, depth-balance, and
// anomaly signals into a single 0-100 score plus status classification.
// dataAgeMs of nil means "unknown" (no event yet received).
func CalculateHealthScore(dataAgeMs *int64, spreadBps *float64, imbalance *float64, hasAnomalies bool) types.Health {
	score := 100.0
	var issues []string

	var freshnessPenalty float64
	status := "ok"
	switch {
	case dataAgeMs == nil:
		freshnessPenalty = 40
		issues = append(issues, "no_data")
		status = "down"
	case *dataAgeMs > dataAgeDownMs:
		freshnessPenalty = 40
		issues = append(issues, "stale_data")
		status = "down"
	case *dataAgeMs > dataAgeDegradedMs:
		freshnessPenalty = 20
		issues = append(issues, "degraded_freshness")
		status = "degraded"
	}
	score -= freshnessPenalty

	var spreadPenalty float64
	switch {
	case spreadBps == nil:
		spreadPenalty = 30
		issues = append(issues, "no_spread")
		if status == "ok" {
			status = "degraded"
		}
	case *spreadBps > spreadPoorBps:
		spreadPenalty = 30
		issues = append(issues, "wide_spread")
		if status == "ok" {
			status = "degraded"
		}
	case *spreadBps > spreadModerateBps:
		spreadPenalty = 15
		issues = append(issues, "moderate_spread")
		if status == "ok" {
			status = "degraded"
		}
	}
	score -= spreadPenalty

	var balancePenalty float64
	if imbalance != nil {
		abs := *imbalance
		if abs < 0 {
			abs = -abs
		}
		switch {
		case abs >= imbalanceSevere:
			balancePenalty = 20
			issues = append(issues, "severe_imbalance")
			if status == "ok" {
				status = "degraded"
			}
		case abs >= imbalanceModerate:
			balancePenalty = 10
			issues = append(issues, "moderate_imbalance")
			if status == "ok" {
				status = "degraded"
			}
		}
	}
	score -= balancePenalty

	var anomalyPenalty float64
	if hasAnomalies {
		anomalyPenalty = 10
		issues = append(issues, "anomalies_detected")
		if status == "ok" {
			status = "degraded"
		}
	}
	score -= anomalyPenalty

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return types.Health{
		Score:  int(score),
		Status: status,
		Components: types.HealthComponents{
			Freshness: freshnessPenalty,
			Spread:    spreadPenalty,
			Balance:   balancePenalty,
			Flow:      0,
			Anomalies: anomalyPenalty,
		},
		Issues: issues,
	}
}
