package layerrender

import (
	"fmt"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/LiuYangArt/sutu-sub000/gpu/bindgroup"
	"github.com/LiuYangArt/sutu-sub000/pipelines"
	"github.com/LiuYangArt/sutu-sub000/tilestore"
	"github.com/cogentcore/webgpu/wgpu"
)

// compositeTile runs the layer_composite pipeline over one tile-sized region
// (originX, originY, w, h in canvas space): background is the tile's current
// content, scratch is an in-progress stroke's accumulator texture (or nil to
// skip the overlay entirely and just pass background through). Porter-Duff
// source-over math with zero scratch alpha leaves background unchanged, so
// dispatching the whole tile every time is equivalent to clipping to a dirty
// rect without a separate scissor or temp-copy step (spec.md §4.8's
// commit_stroke, adapted from its render-pass wording to this engine's
// compute-only pipeline architecture).
func (r *Renderer) compositeTile(background *gpu.Texture, originX, originY, canvasW, canvasH int, scratch *gpu.Texture, opacity float64, blendMode common.LayerBlendMode, clipToSelection bool) (*common.Raster, error) {
	w, h := int(background.Width), int(background.Height)
	scratchTex := scratch
	if scratchTex == nil {
		// No overlay: bind background as its own placeholder scratch source
		// with opacity forced to 0, so the shader's src_a gate never fires.
		scratchTex = background
		opacity = 0
	}
	maskView, err := r.maskView(clipToSelection)
	if err != nil {
		return nil, err
	}

	out, err := r.device.CreateTexture(fmt.Sprintf("layer composite out %dx%d", w, h), uint32(w), uint32(h), wgpu.TextureFormatRGBA8Unorm, 0)
	if err != nil {
		return nil, fmt.Errorf("layerrender: create composite output: %w", err)
	}
	defer out.Release()

	tiles, err := pipelines.BuildTiles(common.Rect{X: 0, Y: 0, W: w, H: h})
	if err != nil {
		return nil, err
	}
	if len(tiles) == 0 {
		return r.device.ReadTexture(background, 4)
	}

	uniformBuf, err := r.device.Raw().CreateBuffer(&wgpu.BufferDescriptor{
		Label: "layer composite uniform scratch",
		Size:  uint64(len(tiles)) * dynamicUniformStride,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("layerrender: create composite uniform buffer: %w", err)
	}
	var clip uint32
	if clipToSelection {
		clip = 1
	}
	for i, t := range tiles {
		u := pipelines.LayerCompositeUniform{
			TileOffsetX: uint32(originX + t.Rect.X), TileOffsetY: uint32(originY + t.Rect.Y),
			TileSizeX: uint32(t.Rect.W), TileSizeY: uint32(t.Rect.H),
			CanvasWidth: uint32(canvasW), CanvasHeight: uint32(canvasH),
			Opacity: float32(opacity), BlendMode: uint32(blendMode), ClipToSelection: clip,
		}
		r.device.Queue().WriteBuffer(uniformBuf, uint64(i)*dynamicUniformStride, u.Marshal())
	}

	provider, err := r.providerFor(pipelines.KeyLayerComposite, out, func(p bindgroup.Provider) error {
		p.SetBuffer(0, uniformBuf)
		p.SetTextureView(1, background.View)
		p.SetTextureView(2, scratchTex.View)
		p.SetTextureView(3, maskView)
		p.SetTextureView(4, out.View)
		return nil
	})
	if err != nil {
		return nil, err
	}

	dispatchErr := r.pipelines.DispatchTiles(pipelines.KeyLayerComposite, provider, tiles, dynamicUniformStride, 0)
	// out's destination id is unique to this call (a fresh texture every
	// time), so its cache slot is never overwritten and Release() on it
	// never runs in practice; detach every tracked resource anyway so a
	// future eviction can never release background/scratch/mask views this
	// provider does not own.
	provider.SetBuffer(0, nil)
	provider.SetTextureView(1, nil)
	provider.SetTextureView(2, nil)
	provider.SetTextureView(3, nil)
	provider.SetTextureView(4, nil)
	if dispatchErr != nil {
		return nil, dispatchErr
	}
	return r.device.ReadTexture(out, 4)
}

// blendBelowTile blends layerTile onto below at opacity/blendMode using the
// layer_blend pipeline, returning a freshly allocated output texture (the
// caller owns the result and must release it once it replaces the cached
// below tile or is otherwise no longer needed).
func (r *Renderer) blendBelowTile(below, layerTile *gpu.Texture, opacity float64, blendMode common.LayerBlendMode) (*gpu.Texture, error) {
	w, h := below.Width, below.Height
	out, err := r.device.CreateTexture("layer blend out", w, h, wgpu.TextureFormatRGBA8Unorm, 0)
	if err != nil {
		return nil, fmt.Errorf("layerrender: create blend output: %w", err)
	}

	tiles, err := pipelines.BuildTiles(common.Rect{X: 0, Y: 0, W: int(w), H: int(h)})
	if err != nil {
		out.Release()
		return nil, err
	}
	if len(tiles) == 0 {
		out.Release()
		return below, nil
	}

	uniformBuf, err := r.device.Raw().CreateBuffer(&wgpu.BufferDescriptor{
		Label: "layer blend uniform scratch",
		Size:  uint64(len(tiles)) * dynamicUniformStride,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		out.Release()
		return nil, fmt.Errorf("layerrender: create blend uniform buffer: %w", err)
	}
	u := pipelines.LayerBlendUniform{BlendMode: uint32(blendMode), Opacity: float32(opacity)}
	for i := range tiles {
		r.device.Queue().WriteBuffer(uniformBuf, uint64(i)*dynamicUniformStride, u.Marshal())
	}

	provider, err := r.providerFor(pipelines.KeyLayerBlend, out, func(p bindgroup.Provider) error {
		p.SetBuffer(0, uniformBuf)
		p.SetTextureView(1, below.View)
		p.SetTextureView(2, layerTile.View)
		p.SetTextureView(3, out.View)
		return nil
	})
	if err != nil {
		out.Release()
		return nil, err
	}

	dispatchErr := r.pipelines.DispatchTiles(pipelines.KeyLayerBlend, provider, tiles, dynamicUniformStride, 0)
	provider.SetBuffer(0, nil)
	provider.SetTextureView(1, nil)
	provider.SetTextureView(2, nil)
	provider.SetTextureView(3, nil)
	if dispatchErr != nil {
		out.Release()
		return nil, dispatchErr
	}
	return out, nil
}

// blitRaster copies src (tile-local, tightly packed RGBA8) into dst at
// (originX, originY), clipping to dst's bounds.
func blitRaster(dst *common.Raster, src *common.Raster, originX, originY int) {
	for y := 0; y < src.Height; y++ {
		dy := originY + y
		if dy < 0 || dy >= dst.Height {
			continue
		}
		for x := 0; x < src.Width; x++ {
			dx := originX + x
			if dx < 0 || dx >= dst.Width {
				continue
			}
			sp := src.At(x, y)
			dp := dst.At(dx, dy)
			dp[0], dp[1], dp[2], dp[3] = sp[0], sp[1], sp[2], sp[3]
		}
	}
}

// seedTileFromHost uploads the region of host covering tile's rect into
// tile's texture, used when a stroke commit touches a tile that was not yet
// resident in the tile store and must be seeded from a layer's existing
// host-raster content (spec.md §4.8: tiles "lazily populated from the base
// layer host raster").
func seedTileFromHost(device *gpu.Device, tile *tilestore.Tile, host *common.Raster) {
	full := common.Rect{X: 0, Y: 0, W: host.Width, H: host.Height}
	region := tile.Rect().Intersect(full)
	if region.IsEmpty() {
		return
	}
	pixels := make([]byte, region.W*region.H*4)
	for row := 0; row < region.H; row++ {
		srcRow := host.At(region.X, region.Y+row)
		copy(pixels[row*region.W*4:(row+1)*region.W*4], srcRow[:region.W*4])
	}
	local := common.Rect{X: region.X - tile.OriginX, Y: region.Y - tile.OriginY, W: region.W, H: region.H}
	device.WriteTextureRegion(tile.Texture, local, pixels, 4)
}
