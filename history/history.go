// Package history implements StrokeHistoryStore (spec.md §4.9): per-stroke
// before/after tile snapshots backing undo/redo, byte-budgeted via a
// residency.Manager and falling back to CPU rasters when GPU snapshot memory
// would exceed the configured budget.
package history

import (
	"fmt"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/LiuYangArt/sutu-sub000/residency"
	"github.com/LiuYangArt/sutu-sub000/tilestore"
)

// Mode selects whether a stroke's snapshots are kept GPU-resident or
// captured as CPU rasters, decided once at begin_stroke per spec.md §4.9.
type Mode string

const (
	ModeGPU Mode = "gpu"
	ModeCPU Mode = "cpu"
)

// Direction selects which side of a tile snapshot Apply returns.
type Direction string

const (
	DirectionUndo Direction = "undo"
	DirectionRedo Direction = "redo"
)

type tileSnapshot struct {
	before, after             *gpu.Texture
	beforeRaster, afterRaster *common.Raster
}

type entry struct {
	id, layerID string
	mode        Mode
	tiles       map[tilestore.Coord]*tileSnapshot
	finalized   bool
}

// snapshotKey makes a tile's before/after GPU copy addressable in the shared
// residency manager, so undo/redo memory competes with itself across every
// stroke entry rather than being tracked per-entry.
type snapshotKey struct {
	EntryID string
	Coord   tilestore.Coord
	Side    string
}

// Store holds the active (in-progress) stroke entry plus every finalized
// committed entry, keyed by entry id.
type Store struct {
	device    *gpu.Device
	residency *residency.Manager[snapshotKey]

	active    *entry
	committed map[string]*entry
}

// New creates a Store backed by device and residencyMgr, the latter typically
// constructed with its own dedicated byte budget distinct from the tile
// store's (spec.md §4.9 treats history memory as a separate pool).
func New(device *gpu.Device, residencyMgr *residency.Manager[snapshotKey]) *Store {
	return &Store{
		device:    device,
		residency: residencyMgr,
		committed: make(map[string]*entry),
	}
}

// BeginStroke starts tracking a new active entry for (entryID, layerID),
// returning "cpu" if the store's current usage plus estimatedBytes (the
// caller's rough forecast of this stroke's snapshot footprint, e.g. dirty
// tile count x bytes per tile x 2 sides) would exceed its budget (caller
// must fall back to CPU-side snapshotting for this stroke) or "gpu"
// otherwise, per spec.md §4.9. estimatedBytes forecasts forward because the
// underlying residency.Manager enforces used <= budget as an invariant after
// every Register call, so a literal "used already exceeds budget" check
// could never fire; checking against the stroke's own projected need is the
// reachable equivalent.
func (s *Store) BeginStroke(entryID, layerID string, estimatedBytes uint64) Mode {
	mode := ModeGPU
	if s.residency.UsedBytes()+estimatedBytes > s.residency.BudgetBytes() {
		mode = ModeCPU
	}
	s.active = &entry{
		id:      entryID,
		layerID: layerID,
		mode:    mode,
		tiles:   make(map[tilestore.Coord]*tileSnapshot),
	}
	return mode
}

// ActiveMode reports the mode chosen for the current in-progress entry,
// or ("", false) if no stroke is active.
func (s *Store) ActiveMode() (Mode, bool) {
	if s.active == nil {
		return "", false
	}
	return s.active.mode, true
}

func (s *Store) tileFor(coord tilestore.Coord) *tileSnapshot {
	t, ok := s.active.tiles[coord]
	if !ok {
		t = &tileSnapshot{}
		s.active.tiles[coord] = t
	}
	return t
}

// SnapshotBefore copies tex's current contents into the active entry's
// before-snapshot for coord (GPU mode only; caller must check ActiveMode).
func (s *Store) SnapshotBefore(coord tilestore.Coord, tex *gpu.Texture) error {
	snap, err := s.copyTexture(coord, "before", tex)
	if err != nil {
		return err
	}
	s.tileFor(coord).before = snap
	return nil
}

// SnapshotAfter copies tex's current contents into the active entry's
// after-snapshot for coord (GPU mode only).
func (s *Store) SnapshotAfter(coord tilestore.Coord, tex *gpu.Texture) error {
	snap, err := s.copyTexture(coord, "after", tex)
	if err != nil {
		return err
	}
	s.tileFor(coord).after = snap
	return nil
}

// SnapshotBeforeCPU records a CPU raster as the active entry's before
// snapshot for coord (CPU mode).
func (s *Store) SnapshotBeforeCPU(coord tilestore.Coord, raster *common.Raster) {
	s.tileFor(coord).beforeRaster = raster
}

// SnapshotAfterCPU records a CPU raster as the active entry's after
// snapshot for coord (CPU mode).
func (s *Store) SnapshotAfterCPU(coord tilestore.Coord, raster *common.Raster) {
	s.tileFor(coord).afterRaster = raster
}

func (s *Store) copyTexture(coord tilestore.Coord, side string, tex *gpu.Texture) (*gpu.Texture, error) {
	if s.active == nil {
		return nil, fmt.Errorf("history: snapshot %s with no active stroke", side)
	}
	label := fmt.Sprintf("history %s %s (%d,%d)", s.active.id, side, coord.TX, coord.TY)
	snap, err := s.device.CreateTexture(label, tex.Width, tex.Height, tex.Format, 0)
	if err != nil {
		return nil, fmt.Errorf("history: create %s snapshot: %w", side, err)
	}
	rect := common.Rect{X: 0, Y: 0, W: int(tex.Width), H: int(tex.Height)}
	if err := s.device.CopyTextureRegion(tex, snap, rect); err != nil {
		snap.Release()
		return nil, fmt.Errorf("history: copy %s snapshot: %w", side, err)
	}

	key := snapshotKey{EntryID: s.active.id, Coord: coord, Side: side}
	if err := s.residency.Register(key, snap.ByteSize(), func() { snap.Release() }); err != nil {
		snap.Release()
		return nil, fmt.Errorf("history: register %s snapshot residency: %w", side, err)
	}
	return snap, nil
}

// Finalize promotes the active entry to committed, keyed by its id. A nil or
// mismatched active entry is a no-op, since finalize is only meaningful right
// after the matching begin_stroke (spec.md §4.9).
func (s *Store) Finalize(entryID string) {
	if s.active == nil || s.active.id != entryID {
		return
	}
	s.active.finalized = true
	s.committed[entryID] = s.active
	s.active = nil
}

// Payload is the tile-coord -> snapshot map Apply returns for the
// LayerRenderer to write back, selecting one side of each tile's snapshot
// (before for undo, after for redo).
type Payload struct {
	Mode    Mode
	Tiles   map[tilestore.Coord]*gpu.Texture
	Rasters map[tilestore.Coord]*common.Raster
}

// Apply returns the undo or redo payload for a committed entry, or
// (Payload{}, false) if entryID has no committed entry.
func (s *Store) Apply(entryID string, direction Direction) (Payload, bool) {
	e, ok := s.committed[entryID]
	if !ok {
		return Payload{}, false
	}
	payload := Payload{
		Mode:    e.mode,
		Tiles:   make(map[tilestore.Coord]*gpu.Texture),
		Rasters: make(map[tilestore.Coord]*common.Raster),
	}
	for coord, snap := range e.tiles {
		switch e.mode {
		case ModeGPU:
			if direction == DirectionUndo {
				payload.Tiles[coord] = snap.before
			} else {
				payload.Tiles[coord] = snap.after
			}
		case ModeCPU:
			if direction == DirectionUndo {
				payload.Rasters[coord] = snap.beforeRaster
			} else {
				payload.Rasters[coord] = snap.afterRaster
			}
		}
	}
	return payload, true
}

// PruneExcept destroys every committed entry not named in ids, releasing
// their GPU snapshot textures via the residency manager.
func (s *Store) PruneExcept(ids []string) {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	for id, e := range s.committed {
		if keep[id] {
			continue
		}
		s.releaseEntry(e)
		delete(s.committed, id)
	}
}

func (s *Store) releaseEntry(e *entry) {
	for coord := range e.tiles {
		s.residency.Release(snapshotKey{EntryID: e.id, Coord: coord, Side: "before"})
		s.residency.Release(snapshotKey{EntryID: e.id, Coord: coord, Side: "after"})
	}
}

// CommittedCount returns the number of finalized entries currently retained,
// used by tests and diagnostics.
func (s *Store) CommittedCount() int { return len(s.committed) }
