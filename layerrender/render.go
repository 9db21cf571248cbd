package layerrender

import (
	"fmt"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/LiuYangArt/sutu-sub000/tilestore"
	"github.com/cogentcore/webgpu/wgpu"
)

// RenderFrame composes every resident tile of layer into a full-canvas host
// raster, overlaying scratch (an in-progress stroke's accumulator texture)
// at opacity if non-nil (spec.md §4.8's render_frame — used when the canvas
// has a single layer and no below-stack composition is needed).
func (r *Renderer) RenderFrame(layer Layer, canvasW, canvasH int, scratch *gpu.Texture, opacity float64, clipToSelection bool) (*common.Raster, error) {
	out := common.NewRaster(canvasW, canvasH)
	rect := common.Rect{X: 0, Y: 0, W: canvasW, H: canvasH}
	for _, tile := range r.tiles.Tiles(layer.ID, rect) {
		raster, err := r.compositeTile(tile.Texture, tile.OriginX, tile.OriginY, canvasW, canvasH, scratch, opacity, layer.BlendMode, clipToSelection)
		if err != nil {
			return nil, err
		}
		blitRaster(out, raster, tile.OriginX, tile.OriginY)
	}
	return out, nil
}

// ensureTransparentTile returns a shared, lazily-created tile-sized texture
// cleared to (0,0,0,0), used as the "below" input for canvas regions no
// layer below the active one has ever touched.
func (r *Renderer) ensureTransparentTile() (*gpu.Texture, error) {
	if r.transparentTile != nil {
		return r.transparentTile, nil
	}
	tex, err := r.device.CreateTexture("layerrender transparent tile", tilestore.TileSize, tilestore.TileSize, wgpu.TextureFormatRGBA8Unorm, 0)
	if err != nil {
		return nil, fmt.Errorf("layerrender: create transparent tile: %w", err)
	}
	if err := r.device.ClearTexture(tex); err != nil {
		tex.Release()
		return nil, fmt.Errorf("layerrender: clear transparent tile: %w", err)
	}
	r.transparentTile = tex
	return tex, nil
}

// RenderLayerStackFrame composes the full stack into a full-canvas host
// raster: every visible layer below activeID is blended into a cached
// "below" texture per tile (rebuilt only when the stack signature changes),
// the active layer is blended on top of that cache, and finally scratch (an
// in-progress stroke's accumulator texture) is overlaid at activeOpacity
// (spec.md §4.8's render_layer_stack_frame).
func (r *Renderer) RenderLayerStackFrame(layers []Layer, activeID string, canvasW, canvasH int, scratch *gpu.Texture, activeOpacity float64, clipToSelection bool) (*common.Raster, error) {
	idx := activeIndex(layers, activeID)
	if idx < 0 {
		return nil, fmt.Errorf("layerrender: active layer %q not found in stack", activeID)
	}

	sig := stackSignature(layers, activeID)
	if r.below.signature != sig {
		if err := r.rebuildBelowCache(layers, idx, canvasW, canvasH, sig); err != nil {
			return nil, err
		}
	}

	active := layers[idx]
	placeholder, err := r.ensureTransparentTile()
	if err != nil {
		return nil, err
	}

	out := common.NewRaster(canvasW, canvasH)
	rect := common.Rect{X: 0, Y: 0, W: canvasW, H: canvasH}
	for _, coord := range tilestore.CoordRange(rect) {
		below, ok := r.below.tiles[coord]
		if !ok {
			below = placeholder
		}
		originX, originY := coord.TX*tilestore.TileSize, coord.TY*tilestore.TileSize

		withActive := below
		releaseWithActive := false
		if active.Visible {
			if activeTile, ok := r.tiles.Get(active.ID, coord); ok {
				blended, err := r.blendBelowTile(below, activeTile.Texture, active.Opacity, active.BlendMode)
				if err != nil {
					return nil, err
				}
				withActive = blended
				releaseWithActive = true
			}
		}

		var raster *common.Raster
		if scratch != nil && active.Visible {
			raster, err = r.compositeTile(withActive, originX, originY, canvasW, canvasH, scratch, activeOpacity, active.BlendMode, clipToSelection)
		} else {
			raster, err = r.device.ReadTexture(withActive, 4)
		}
		if releaseWithActive {
			withActive.Release()
		}
		if err != nil {
			return nil, err
		}
		blitRaster(out, raster, originX, originY)
	}
	return out, nil
}

// copyTexture duplicates tex's current contents into a freshly allocated
// texture of the same size and format, used when the below cache needs to
// own a tile's pixels independent of the tile store's own lifetime (the
// bottom-most visible layer below the active one, when nothing gets blended
// on top of it).
func (r *Renderer) copyTexture(tex *gpu.Texture) (*gpu.Texture, error) {
	out, err := r.device.CreateTexture("layerrender below cache copy", tex.Width, tex.Height, wgpu.TextureFormatRGBA8Unorm, 0)
	if err != nil {
		return nil, fmt.Errorf("layerrender: create below-cache copy: %w", err)
	}
	rect := common.Rect{X: 0, Y: 0, W: int(tex.Width), H: int(tex.Height)}
	if err := r.device.CopyTextureRegion(tex, out, rect); err != nil {
		out.Release()
		return nil, fmt.Errorf("layerrender: copy into below-cache: %w", err)
	}
	return out, nil
}

// rebuildBelowCache recomputes r.below for every tile coordinate in the
// canvas, sequentially blending every visible layer below idx bottom to top,
// releasing the previous cache's textures first.
func (r *Renderer) rebuildBelowCache(layers []Layer, idx, canvasW, canvasH int, sig string) error {
	r.InvalidateBelowCache()
	tiles := make(map[tilestore.Coord]*gpu.Texture)
	rect := common.Rect{X: 0, Y: 0, W: canvasW, H: canvasH}

	for _, coord := range tilestore.CoordRange(rect) {
		var below *gpu.Texture
		owned := false
		for i := 0; i < idx; i++ {
			l := layers[i]
			if !l.Visible {
				continue
			}
			layerTile, ok := r.tiles.Get(l.ID, coord)
			if !ok {
				continue
			}
			if below == nil {
				below = layerTile.Texture
				continue
			}
			blended, err := r.blendBelowTile(below, layerTile.Texture, l.Opacity, l.BlendMode)
			if err != nil {
				return err
			}
			if owned {
				below.Release()
			}
			below = blended
			owned = true
		}
		if below == nil {
			continue
		}
		if !owned {
			copied, err := r.copyTexture(below)
			if err != nil {
				return err
			}
			below = copied
		}
		tiles[coord] = below
	}

	r.below = belowCacheEntry{signature: sig, tiles: tiles}
	return nil
}
