package state

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestOrderBookL2_UpdateBidAsk(t *testing.T) {
	b := NewOrderBookL2()
	b.UpdateBid(d("100.0"), d("1.0"))
	b.UpdateBid(d("99.5"), d("2.0"))
	b.UpdateAsk(d("100.5"), d("1.5"))
	b.UpdateAsk(d("101.0"), d("3.0"))

	bp, bq, ok := b.BestBid()
	if !ok || !bp.Equal(d("100.0")) || !bq.Equal(d("1.0")) {
		t.Fatalf("BestBid = %s/%s/%v, want 100.0/1.0/true", bp, bq, ok)
	}
	ap, aq, ok := b.BestAsk()
	if !ok || !ap.Equal(d("100.5")) || !aq.Equal(d("1.5")) {
		t.Fatalf("BestAsk = %s/%s/%v, want 100.5/1.5/true", ap, aq, ok)
	}
}

func TestOrderBookL2_RemoveOnZeroQty(t *testing.T) {
	b := NewOrderBookL2()
	b.UpdateBid(d("100.0"), d("1.0"))
	b.UpdateBid(d("100.0"), d("0"))
	if _, _, ok := b.BestBid(); ok {
		t.Fatal("expected no best bid after zero-qty removal")
	}
}

func TestOrderBookL2_TopNCap(t *testing.T) {
	b := NewOrderBookL2()
	for i := 0; i < 30; i++ {
		b.UpdateBid(decimal.NewFromInt(int64(i)), d("1.0"))
	}
	top := b.TopBids(50)
	if len(top) != TopN {
		t.Fatalf("TopBids returned %d levels, want %d", len(top), TopN)
	}
	if !top[0].Price.Equal(decimal.NewFromInt(29)) {
		t.Fatalf("top bid = %s, want 29 (highest price first)", top[0].Price)
	}
}

func TestOrderBookL2_ReplaceBids(t *testing.T) {
	b := NewOrderBookL2()
	b.UpdateBid(d("50.0"), d("1.0"))
	b.ReplaceBids([]LevelUpdate{
		{Price: d("200.0"), Qty: d("2.0")},
		{Price: d("199.0"), Qty: d("0")}, // zero-qty entries are dropped on replace
	})
	top := b.TopBids(10)
	if len(top) != 1 || !top[0].Price.Equal(d("200.0")) {
		t.Fatalf("TopBids after ReplaceBids = %+v, want single 200.0 level", top)
	}
}

func TestOrderBookL2_AsksAscending(t *testing.T) {
	b := NewOrderBookL2()
	b.UpdateAsk(d("105"), d("1"))
	b.UpdateAsk(d("101"), d("1"))
	b.UpdateAsk(d("110"), d("1"))
	top := b.TopAsks(10)
	if len(top) != 3 || !top[0].Price.Equal(d("101")) || !top[2].Price.Equal(d("110")) {
		t.Fatalf("TopAsks = %+v, want ascending order starting at 101", top)
	}
}
