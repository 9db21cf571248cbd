package residency

import "testing"

func TestRegisterWithinBudget(t *testing.T) {
	m := NewManager[string](1000)
	if err := m.Register("a", 400, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if m.UsedBytes() != 400 {
		t.Errorf("UsedBytes() = %d, want 400", m.UsedBytes())
	}
}

func TestRegisterEvictsLRUWhenOverBudget(t *testing.T) {
	m := NewManager[string](1000)
	evictedA := false
	evictedB := false
	m.Register("a", 400, func() { evictedA = true })
	m.Register("b", 400, func() { evictedB = true })
	m.Touch("b") // b is now more recently used than a

	// c needs 400 more bytes; usedBytes would be 1200 > 1000, must evict a first (LRU).
	if err := m.Register("c", 400, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !evictedA {
		t.Error("expected least-recently-used entry 'a' to be evicted")
	}
	if evictedB {
		t.Error("did not expect 'b' to be evicted")
	}
	if m.UsedBytes() > m.BudgetBytes() {
		t.Errorf("used bytes %d exceeds budget %d", m.UsedBytes(), m.BudgetBytes())
	}
}

func TestSingleEntryLargerThanBudgetFails(t *testing.T) {
	m := NewManager[string](100)
	if err := m.Register("huge", 200, nil); err == nil {
		t.Error("expected ErrBudgetExceeded")
	}
}

func TestSetBudgetEvictsImmediately(t *testing.T) {
	m := NewManager[string](1000)
	m.Register("a", 300, nil)
	m.Register("b", 300, nil)
	m.Register("c", 300, nil)

	m.SetBudget(400)

	if m.UsedBytes() > m.BudgetBytes() {
		t.Errorf("used bytes %d exceeds new budget %d after SetBudget", m.UsedBytes(), m.BudgetBytes())
	}
}

func TestReleaseInvokesCallback(t *testing.T) {
	m := NewManager[string](1000)
	released := false
	m.Register("a", 100, func() { released = true })
	m.Release("a")
	if !released {
		t.Error("expected eviction callback on explicit Release")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}
