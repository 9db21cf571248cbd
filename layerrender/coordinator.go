package layerrender

import (
	"time"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/LiuYangArt/sutu-sub000/tilestore"
)

// PreparedStroke is what a finished stroke hands to the CommitCoordinator:
// everything commit_stroke and the optional readback need, decoupled from
// the concrete stroke accumulator type so this package has no dependency on
// the stroke package (spec.md §4.8 treats LayerRenderer/CommitCoordinator
// and the stroke accumulator as separate collaborating components).
// ReleaseScratch, if set, is invoked once the commit has succeeded — the
// sequencing point spec.md §4.8 calls "then scratch release."
type PreparedStroke struct {
	LayerID         string
	Scratch         *gpu.Texture
	DirtyRect       common.Rect
	CanvasWidth     int
	CanvasHeight    int
	Opacity         float64
	BlendMode       common.LayerBlendMode
	ClipToSelection bool
	BaseLayerHost   *common.Raster
	ReleaseScratch  func()
}

// CommitMetrics aggregates every Commit call a CommitCoordinator has run,
// per spec.md §4.8's "aggregated metrics: counts, prepare/commit/readback
// elapsed, total/max tiles, readback-bypassed counter."
type CommitMetrics struct {
	CommitCount         int
	PrepareElapsedMs    int64
	CommitElapsedMs     int64
	ReadbackElapsedMs   int64
	TotalTilesCommitted int
	MaxTilesInOneCommit int
	ReadbackBypassed    int
}

// CommitCoordinator sequences a finished stroke's prepare -> commit ->
// optional readback -> scratch release, accumulating timing and tile-count
// metrics across every stroke committed during a session.
type CommitCoordinator struct {
	renderer *Renderer
	metrics  CommitMetrics
}

// NewCommitCoordinator creates a CommitCoordinator that commits through
// renderer.
func NewCommitCoordinator(renderer *Renderer) *CommitCoordinator {
	return &CommitCoordinator{renderer: renderer}
}

// Metrics returns a snapshot of the coordinator's aggregated metrics.
func (c *CommitCoordinator) Metrics() CommitMetrics { return c.metrics }

// Commit runs prepared through prepare_end_stroke, commit_to_layer, and (if
// doReadback) readback_tiles_to_layer into readbackTarget, finally invoking
// prepared.ReleaseScratch. Every stage's elapsed time and the tile count
// touched are folded into the coordinator's running CommitMetrics.
func (c *CommitCoordinator) Commit(prepared PreparedStroke, doReadback bool, readbackTarget *common.Raster) error {
	prepareStart := time.Now()
	coords := tilestore.CoordRange(prepared.DirtyRect)
	// prepare_end_stroke: every GPU dispatch and readback in this engine
	// runs to completion synchronously before its issuing call returns (no
	// queued work outlives Flush/EndStroke), so there is no separate "await
	// GPU idle" wait to perform here; this window accounts for the
	// dirty-rect-to-tile-coordinate bookkeeping that precedes commit.
	c.metrics.PrepareElapsedMs += time.Since(prepareStart).Milliseconds()

	commitStart := time.Now()
	err := c.renderer.CommitStroke(prepared.LayerID, prepared.Scratch, prepared.DirtyRect, prepared.CanvasWidth, prepared.CanvasHeight, prepared.Opacity, prepared.BlendMode, prepared.ClipToSelection, prepared.BaseLayerHost)
	c.metrics.CommitElapsedMs += time.Since(commitStart).Milliseconds()
	if err != nil {
		return err
	}

	c.metrics.CommitCount++
	c.metrics.TotalTilesCommitted += len(coords)
	if len(coords) > c.metrics.MaxTilesInOneCommit {
		c.metrics.MaxTilesInOneCommit = len(coords)
	}

	if doReadback && readbackTarget != nil {
		readbackStart := time.Now()
		tiles := make([]*tilestore.Tile, 0, len(coords))
		for _, coord := range coords {
			if t, ok := c.renderer.tiles.Get(prepared.LayerID, coord); ok {
				tiles = append(tiles, t)
			}
		}
		rbErr := c.renderer.ReadbackTilesToLayer(tiles, readbackTarget)
		c.metrics.ReadbackElapsedMs += time.Since(readbackStart).Milliseconds()
		if rbErr != nil {
			return rbErr
		}
	} else {
		c.metrics.ReadbackBypassed++
	}

	if prepared.ReleaseScratch != nil {
		prepared.ReleaseScratch()
	}
	return nil
}
