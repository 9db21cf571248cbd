package history

import (
	"testing"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/residency"
	"github.com/LiuYangArt/sutu-sub000/tilestore"
)

func newTestStore() *Store {
	return New(nil, residency.NewManager[snapshotKey](1<<30))
}

func TestBeginStrokeDefaultsToGPUModeUnderBudget(t *testing.T) {
	s := newTestStore()
	mode := s.BeginStroke("stroke-1", "layer-1", 4096)
	if mode != ModeGPU {
		t.Errorf("BeginStroke mode = %v, want gpu", mode)
	}
	got, ok := s.ActiveMode()
	if !ok || got != ModeGPU {
		t.Errorf("ActiveMode = (%v, %v), want (gpu, true)", got, ok)
	}
}

func TestBeginStrokeFallsBackToCPUWhenEstimateExceedsBudget(t *testing.T) {
	mgr := residency.NewManager[snapshotKey](100)
	if err := mgr.Register(snapshotKey{EntryID: "x", Side: "before"}, 60, func() {}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s := New(nil, mgr)
	if mode := s.BeginStroke("stroke-2", "layer-1", 50); mode != ModeCPU {
		t.Errorf("BeginStroke mode = %v, want cpu (60 used + 50 estimate > 100 budget)", mode)
	}
}

func TestSnapshotCPURoundTripsThroughApply(t *testing.T) {
	s := New(nil, residency.NewManager[snapshotKey](1<<30))
	s.BeginStroke("stroke-3", "layer-1", 0)
	coord := tilestore.Coord{TX: 0, TY: 0}
	before := common.NewRaster(4, 4)
	after := common.NewRaster(4, 4)
	after.Pix[0] = 255
	s.SnapshotBeforeCPU(coord, before)
	s.SnapshotAfterCPU(coord, after)
	s.Finalize("stroke-3")

	undo, ok := s.Apply("stroke-3", DirectionUndo)
	if !ok {
		t.Fatal("Apply(undo) ok = false")
	}
	if undo.Rasters[coord] != before {
		t.Error("undo payload should return the before raster")
	}

	redo, ok := s.Apply("stroke-3", DirectionRedo)
	if !ok {
		t.Fatal("Apply(redo) ok = false")
	}
	if redo.Rasters[coord] != after {
		t.Error("redo payload should return the after raster")
	}
}

func TestFinalizeIgnoresMismatchedID(t *testing.T) {
	s := newTestStore()
	s.BeginStroke("stroke-4", "layer-1", 0)
	s.Finalize("some-other-id")
	if s.CommittedCount() != 0 {
		t.Errorf("CommittedCount = %d, want 0 after mismatched finalize", s.CommittedCount())
	}
	if _, ok := s.ActiveMode(); !ok {
		t.Error("active entry should still be in progress after a mismatched finalize")
	}
}

func TestApplyUnknownEntryReturnsFalse(t *testing.T) {
	s := newTestStore()
	if _, ok := s.Apply("missing", DirectionUndo); ok {
		t.Error("Apply on unknown entry id should return ok=false")
	}
}

func TestPruneExceptKeepsOnlyListed(t *testing.T) {
	s := newTestStore()
	s.BeginStroke("keep", "layer-1", 0)
	s.Finalize("keep")
	s.BeginStroke("drop", "layer-1", 0)
	s.Finalize("drop")

	s.PruneExcept([]string{"keep"})
	if s.CommittedCount() != 1 {
		t.Errorf("CommittedCount = %d, want 1", s.CommittedCount())
	}
	if _, ok := s.Apply("drop", DirectionUndo); ok {
		t.Error("pruned entry should no longer be applyable")
	}
	if _, ok := s.Apply("keep", DirectionUndo); !ok {
		t.Error("kept entry should still be applyable")
	}
}
