package report

import "testing"

func TestStoreKeepsMarksNewerThanView(t *testing.T) {
	c := newCache()
	v := c.view(2025)
	c.invalidate("a", 2025)

	if _, ok := c.store(&YearReport{Year: 2025}, v); !ok {
		t.Fatal("expected store to succeed")
	}
	after := c.view(2025)
	if after.fresh() {
		t.Fatal("expected late invalidation to survive the store")
	}
	if len(after.stale) != 1 || after.stale[0] != "a" {
		t.Fatalf("unexpected stale set %v", after.stale)
	}

	if _, ok := c.store(&YearReport{Year: 2025}, after); !ok {
		t.Fatal("expected second store to succeed")
	}
	if !c.view(2025).fresh() {
		t.Fatal("expected snapshot to be fresh")
	}
}

func TestStoreAfterResetIsDiscarded(t *testing.T) {
	c := newCache()
	v := c.view(2025)
	c.reset()
	if current, ok := c.store(&YearReport{Year: 2025}, v); ok || current != nil {
		t.Fatal("expected store across reset to be rejected")
	}
	if c.view(2025).report != nil {
		t.Fatal("expected no snapshot")
	}
}

func TestStoreRejectsSnapshotOlderThanStored(t *testing.T) {
	c := newCache()
	if _, ok := c.store(&YearReport{Year: 2025}, c.view(2025)); !ok {
		t.Fatal("expected first store to succeed")
	}
	old := c.view(2025)
	c.invalidate("a", 2025)
	newer := c.view(2025)

	fresh := &YearReport{Year: 2025}
	if _, ok := c.store(fresh, newer); !ok {
		t.Fatal("expected newer store to succeed")
	}
	current, ok := c.store(&YearReport{Year: 2025}, old)
	if ok {
		t.Fatal("expected older snapshot to be rejected")
	}
	if current != fresh {
		t.Fatal("expected the newer snapshot to stay in place")
	}
	if !c.view(2025).fresh() {
		t.Fatal("expected snapshot to stay fresh")
	}
}
