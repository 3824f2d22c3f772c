package calculators

import "testing"

func ptrI64(v int64) *int64     { return &v }
func ptrF64(v float64) *float64 { return &v }

// TestCalculateHealthScore_StaleDataAlone: data_age_ms=2500 with an
// otherwise healthy book drives status=down, score=60.
func TestCalculateHealthScore_StaleDataAlone(t *testing.T) {
	h := CalculateHealthScore(ptrI64(2500), ptrF64(5), ptrF64(0.0), false)
	if h.Status != "down" {
		t.Errorf("status = %q, want down", h.Status)
	}
	if h.Score != 60 {
		t.Errorf("score = %d, want 60", h.Score)
	}
}

// TestCalculateHealthScore_FreshnessPlusWideSpread: data_age_ms=500,
// spread_bps=120 -> score=70, status=degraded.
func TestCalculateHealthScore_FreshnessPlusWideSpread(t *testing.T) {
	h := CalculateHealthScore(ptrI64(500), ptrF64(120), nil, false)
	if h.Status != "degraded" {
		t.Errorf("status = %q, want degraded", h.Status)
	}
	if h.Score != 70 {
		t.Errorf("score = %d, want 70", h.Score)
	}
}

func TestCalculateHealthScore_NoDataClamped(t *testing.T) {
	h := CalculateHealthScore(nil, nil, ptrF64(0.9), true)
	if h.Score < 0 {
		t.Errorf("score = %d, must clamp at 0", h.Score)
	}
	if h.Status != "down" {
		t.Errorf("status = %q, want down", h.Status)
	}
}

func TestCalculateHealthScore_AllGoodIsOk(t *testing.T) {
	h := CalculateHealthScore(ptrI64(100), ptrF64(5), ptrF64(0.05), false)
	if h.Status != "ok" || h.Score != 100 {
		t.Errorf("got status=%q score=%d, want ok/100", h.Status, h.Score)
	}
}
