// Package pipelines implements the compute pipelines' shared contract
// (spec.md §4.4): a tile builder that partitions large dispatch bounding
// boxes, and the uniform-block marshaling each pipeline uploads.
package pipelines

import (
	"fmt"
	"math"

	"github.com/LiuYangArt/sutu-sub000/common"
)

// MaxTileCount is the device-side bind-group-cache and dynamic-uniform-slot
// capacity: a dispatch touching more tiles than this is rejected rather than
// silently truncated (spec.md §4.4).
const MaxTileCount = 256

// MaxTileArea is the area threshold below which a bounding box is dispatched
// as a single tile.
const MaxTileArea = 2_000_000

// maxTileSide is floor(sqrt(MaxTileArea)), the edge length used to partition
// a bounding box exceeding MaxTileArea.
var maxTileSide = int(math.Floor(math.Sqrt(float64(MaxTileArea))))

// Tile is one dispatch unit: a pixel-space rectangle within the overall
// bounding box, plus the 3D workgroup count needed to cover it at 8x8
// threads per workgroup.
type Tile struct {
	Rect           common.Rect
	WorkgroupCount [3]uint32
}

// BuildTiles partitions bbox into dispatch tiles per spec.md §4.4: a single
// tile if the area is small enough, otherwise a grid of tiles with side
// floor(sqrt(2,000,000)) (~1414). Returns an error if the resulting tile
// count exceeds MaxTileCount.
func BuildTiles(bbox common.Rect) ([]Tile, error) {
	if bbox.IsEmpty() {
		return nil, nil
	}

	area := bbox.W * bbox.H
	var rects []common.Rect
	if area <= MaxTileArea {
		rects = []common.Rect{bbox}
	} else {
		rects = partition(bbox, maxTileSide)
	}

	if len(rects) > MaxTileCount {
		return nil, fmt.Errorf("pipelines: dispatch requires %d tiles, exceeds the %d-tile limit", len(rects), MaxTileCount)
	}

	tiles := make([]Tile, len(rects))
	for i, r := range rects {
		tiles[i] = Tile{Rect: r, WorkgroupCount: workgroupCount(r)}
	}
	return tiles, nil
}

func partition(bbox common.Rect, side int) []common.Rect {
	var rects []common.Rect
	for y := bbox.Y; y < bbox.Y+bbox.H; y += side {
		h := min(side, bbox.Y+bbox.H-y)
		for x := bbox.X; x < bbox.X+bbox.W; x += side {
			w := min(side, bbox.X+bbox.W-x)
			rects = append(rects, common.Rect{X: x, Y: y, W: w, H: h})
		}
	}
	return rects
}

// workgroupCount returns ceil(w/8) x ceil(h/8) x 1, the per-tile dispatch
// shape (spec.md §4.4: "Workgroup count per tile is ⌈tile_w/8⌉ × ⌈tile_h/8⌉").
func workgroupCount(r common.Rect) [3]uint32 {
	return [3]uint32{
		uint32((r.W + 7) / 8),
		uint32((r.H + 7) / 8),
		1,
	}
}
