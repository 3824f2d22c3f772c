package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/forgequant/nimbus-trader/internal/types"
)

func TestPublishAndGetReport_RoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rep := types.Report{
		SchemaVersion: "1.1",
		Symbol:        "BTCUSDT",
		LastPrice:     decimal.NewFromFloat(100.5),
		Writer:        types.Writer{NodeID: "node-a", WriterToken: 3, Mode: "coordinated"},
	}
	if err := s.PublishReport(ctx, rep); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, ok, err := s.GetReport(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected report to exist")
	}
	if got.Writer.NodeID != "node-a" || got.Writer.WriterToken != 3 {
		t.Errorf("got = %+v, want writer node-a/3", got)
	}
	if !got.LastPrice.Equal(decimal.NewFromFloat(100.5)) {
		t.Errorf("last_price = %s, want 100.5", got.LastPrice)
	}
}

func TestPublishReport_PreservesExistingTTL(t *testing.T) {
	s, mr := newTestStoreWithBackend(t)
	ctx := context.Background()

	rep := types.Report{SchemaVersion: "1.1", Symbol: "BTCUSDT"}
	if err := s.PublishReport(ctx, rep); err != nil {
		t.Fatalf("publish: %v", err)
	}
	mr.SetTTL("report:BTCUSDT", 45*time.Second)

	rep.UpdatedAt = 12345
	if err := s.PublishReport(ctx, rep); err != nil {
		t.Fatalf("republish: %v", err)
	}
	if ttl := mr.TTL("report:BTCUSDT"); ttl != 45*time.Second {
		t.Fatalf("ttl after republish = %s, want 45s preserved", ttl)
	}
}

func TestGetReport_MissingReturnsNotOk(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.GetReport(context.Background(), "NOSUCH")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing report")
	}
}
