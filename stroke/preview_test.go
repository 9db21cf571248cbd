package stroke

import "testing"

func TestPreviewCoordinatorIdleRequestStartsNow(t *testing.T) {
	c := &previewCoordinator{}
	if !c.Request() {
		t.Fatal("Request() on idle coordinator = false, want true")
	}
	if !c.InFlight() {
		t.Error("InFlight() = false after Request, want true")
	}
}

func TestPreviewCoordinatorCoalescesConcurrentRequest(t *testing.T) {
	c := &previewCoordinator{}
	c.Request() // starts first round, now in flight

	if c.Request() {
		t.Fatal("second Request() while in flight = true, want false (coalesced)")
	}
	// a third request while already retry-pending stays coalesced too.
	if c.Request() {
		t.Fatal("third Request() while retry-pending = true, want false")
	}

	if !c.Complete() {
		t.Fatal("Complete() after a coalesced request = false, want true (run another)")
	}
	if c.Complete() {
		t.Fatal("Complete() after the retry round = true, want false (back to idle)")
	}
	if c.InFlight() {
		t.Error("InFlight() = true after final Complete, want false")
	}
}

func TestPreviewCoordinatorCompleteWithNoRetryGoesIdle(t *testing.T) {
	c := &previewCoordinator{}
	c.Request()
	if c.Complete() {
		t.Fatal("Complete() with no coalesced request = true, want false")
	}
	if c.InFlight() {
		t.Error("InFlight() = true after Complete with no retry, want false")
	}
}

func TestPreviewCoordinatorReset(t *testing.T) {
	c := &previewCoordinator{}
	c.Request()
	c.Request()
	c.reset()
	if c.InFlight() {
		t.Error("InFlight() = true after reset, want false")
	}
}
