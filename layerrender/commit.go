package layerrender

import (
	"fmt"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/LiuYangArt/sutu-sub000/tilestore"
)

// CommitStroke permanently writes scratch's contribution onto layerID's
// resident tiles across dirtyRect, at opacity and blendMode, optionally
// clipped to the current selection mask (spec.md §4.8's commit_stroke).
// Tiles dirtyRect touches that are not yet resident in the tile store are
// created and seeded from baseLayerHost (the layer's full-canvas host
// raster) before compositing, so previously painted content isn't lost under
// the newly materialized tile. Invalidates the below-active-layer cache
// since committing changes layerID's pixel content.
func (r *Renderer) CommitStroke(layerID string, scratch *gpu.Texture, dirtyRect common.Rect, canvasW, canvasH int, opacity float64, blendMode common.LayerBlendMode, clipToSelection bool, baseLayerHost *common.Raster) error {
	if dirtyRect.IsEmpty() || scratch == nil {
		return nil
	}

	for _, coord := range tilestore.CoordRange(dirtyRect) {
		_, existed := r.tiles.Get(layerID, coord)
		tile, err := r.tiles.GetOrCreate(layerID, coord)
		if err != nil {
			return fmt.Errorf("layerrender: commit tile (%d,%d): %w", coord.TX, coord.TY, err)
		}
		if !existed && baseLayerHost != nil {
			seedTileFromHost(r.device, tile, baseLayerHost)
		}

		raster, err := r.compositeTile(tile.Texture, tile.OriginX, tile.OriginY, canvasW, canvasH, scratch, opacity, blendMode, clipToSelection)
		if err != nil {
			return fmt.Errorf("layerrender: composite tile (%d,%d): %w", coord.TX, coord.TY, err)
		}
		r.device.WriteTextureRegion(tile.Texture, common.Rect{X: 0, Y: 0, W: tile.Width, H: tile.Height}, raster.Pix, 4)
	}

	r.InvalidateBelowCache()
	return nil
}

// ReadbackTilesToLayer copies every tile in tiles back to the CPU and writes
// it into target at the tile's canvas origin (spec.md §4.8's
// readback_tiles_to_layer — used to keep a host-side mirror of a layer in
// sync after a commit, e.g. for serialization or CPU-side tools that don't
// read GPU textures directly).
func (r *Renderer) ReadbackTilesToLayer(tiles []*tilestore.Tile, target *common.Raster) error {
	for _, tile := range tiles {
		raster, err := r.device.ReadTexture(tile.Texture, 4)
		if err != nil {
			return fmt.Errorf("layerrender: readback tile (%d,%d): %w", tile.Coord.TX, tile.Coord.TY, err)
		}
		blitRaster(target, raster, tile.OriginX, tile.OriginY)
	}
	return nil
}
