package state

import (
	"testing"
	"time"
)

type stamped struct {
	ts time.Time
	id int
}

func newStampedBuffer(cap int) *WindowedBuffer[stamped] {
	return NewWindowedBuffer(cap, func(s stamped) time.Time { return s.ts })
}

func TestWindowedBuffer_EvictsOldestAtCap(t *testing.T) {
	b := newStampedBuffer(3)
	now := time.Now()
	for i := 0; i < 5; i++ {
		b.Add(stamped{ts: now.Add(time.Duration(i) * time.Second), id: i})
	}
	if b.Len() != 3 {
		t.Fatalf("len = %d, want cap 3", b.Len())
	}
	items := b.Items()
	if items[0].id != 2 || items[2].id != 4 {
		t.Fatalf("items = %+v, want ids 2..4 oldest first", items)
	}
}

func TestWindowedBuffer_ItemsNewerThanFiltersStrictly(t *testing.T) {
	b := newStampedBuffer(10)
	now := time.Now()
	b.Add(stamped{ts: now.Add(-20 * time.Second), id: 0})
	b.Add(stamped{ts: now.Add(-5 * time.Second), id: 1})
	b.Add(stamped{ts: now, id: 2})

	got := b.ItemsNewerThan(now.Add(-10 * time.Second))
	if len(got) != 2 || got[0].id != 1 {
		t.Fatalf("got %+v, want the two entries newer than cutoff", got)
	}

	// Cutoff equal to an entry's timestamp excludes it (strictly after).
	got = b.ItemsNewerThan(now)
	if len(got) != 0 {
		t.Fatalf("got %+v, want none at exact-cutoff boundary", got)
	}
}

func TestWindowedBuffer_ItemsReturnsCopy(t *testing.T) {
	b := newStampedBuffer(4)
	b.Add(stamped{id: 1})
	items := b.Items()
	items[0].id = 99
	if b.Items()[0].id != 1 {
		t.Fatal("Items must return a copy, not the backing slice")
	}
}
