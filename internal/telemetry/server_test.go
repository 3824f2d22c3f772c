package telemetry

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeHealthProvider struct {
	nodeID  string
	symbols []string
}

func (f fakeHealthProvider) NodeID() string         { return f.nodeID }
func (f fakeHealthProvider) OwnedSymbols() []string { return f.symbols }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMux(t *testing.T) http.Handler {
	t.Helper()
	metrics := NewMetrics()
	health := fakeHealthProvider{nodeID: "node-a", symbols: []string{"BTCUSDT", "ETHUSDT"}}
	srv := NewServer(":0", metrics, health, testLogger())
	return srv.httpServer.Handler
}

func TestHealthEndpoint_ReturnsOwnedSymbols(t *testing.T) {
	mux := newTestMux(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.NodeID != "node-a" || len(resp.OwnedSymbols) != 2 {
		t.Errorf("response = %+v, want node-a with 2 symbols", resp)
	}
}

func TestMetricsEndpoint_ExposesRequiredSeries(t *testing.T) {
	mux := newTestMux(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	for _, name := range []string{
		"node_heartbeat", "symbols_assigned", "calc_latency_ms",
		"report_publish_total", "data_age_ms", "lease_conflicts_total",
		"hrw_rebalances_total", "ws_resubscribe_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing series %q", name)
		}
	}
}

func TestMetrics_LeaseConflictsIncrement(t *testing.T) {
	m := NewMetrics()
	m.LeaseConflictsTotal.Inc()
	m.LeaseConflictsTotal.Inc()

	mfs, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "lease_conflicts_total" {
			found = true
			if got := mf.Metric[0].Counter.GetValue(); got != 2 {
				t.Errorf("lease_conflicts_total = %v, want 2", got)
			}
		}
	}
	if !found {
		t.Fatal("lease_conflicts_total not found in registry")
	}
}
