package stroke

import (
	"fmt"
	"math"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/LiuYangArt/sutu-sub000/gpu/bindgroup"
	"github.com/LiuYangArt/sutu-sub000/gpu/shader"
	"github.com/LiuYangArt/sutu-sub000/pipelines"
	"github.com/LiuYangArt/sutu-sub000/selection"
	"github.com/LiuYangArt/sutu-sub000/texcache"
	"github.com/cogentcore/webgpu/wgpu"
)

// dynamicUniformStride is the per-tile byte stride used for the dynamic
// uniform offset into the shared tile-uniform buffer. WebGPU requires
// dynamic offsets to be aligned to the adapter's minUniformBufferOffsetAlignment,
// 256 bytes on every backend this engine targets, well above any of the
// packed uniform struct sizes in pipelines/uniforms.go.
const dynamicUniformStride = 256

// ensurePlaceholder lazily creates a 1x1 opaque-white texture used to satisfy
// a pipeline's texture bindings when a feature (pattern, noise, brush tip)
// is disabled for the current dab batch.
func (a *Accumulator) ensurePlaceholder() (*gpu.Texture, error) {
	if a.placeholder != nil {
		return a.placeholder, nil
	}
	tex, err := a.device.CreateTexture("stroke placeholder", 1, 1, wgpu.TextureFormatRGBA8Unorm, 0)
	if err != nil {
		return nil, fmt.Errorf("stroke: create placeholder texture: %w", err)
	}
	a.device.WriteTexture(tex, []byte{255, 255, 255, 255}, 4)
	a.placeholder = tex
	return tex, nil
}

// ensureDefaultSampler lazily creates the linear-filtering sampler every
// dab pipeline's tex_sampler binding falls back to when no pattern or brush
// tip is currently staged.
func (a *Accumulator) ensureDefaultSampler() (*wgpu.Sampler, error) {
	if a.defaultSampler != nil {
		return a.defaultSampler, nil
	}
	s, err := a.device.CreateSampler("stroke default sampler", common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeNearest,
	})
	if err != nil {
		return nil, fmt.Errorf("stroke: create default sampler: %w", err)
	}
	a.defaultSampler = s
	return s, nil
}

func (a *Accumulator) ensureErfTable() (*gpu.Texture, error) {
	if a.erfTable != nil {
		return a.erfTable, nil
	}
	tex, err := a.device.CreateTexture("hardness erf lookup", 256, 1, wgpu.TextureFormatR8Unorm, 0)
	if err != nil {
		return nil, fmt.Errorf("stroke: create erf lookup texture: %w", err)
	}
	a.device.WriteTexture(tex, buildErfTable(), 1)
	a.erfTable = tex
	return tex, nil
}

// buildErfTable precomputes the soft-edge hardness falloff curve the
// parametric-dab shader samples via erf_table (spec.md §4.4.2): 256 samples
// of a normalized error-function ramp from 1 (center) down to 0 (edge).
func buildErfTable() []byte {
	out := make([]byte, 256)
	for i := range out {
		t := float64(i) / 255.0
		v := 1 - math.Erf(t*2.0)
		out[i] = byte(math.Max(0, math.Min(1, v)) * 255)
	}
	return out
}

// rasterFromRGBA16Float repacks a raw RGBA16Float readback (8 bytes/pixel,
// little-endian IEEE-754 half floats) into a standard RGBA8 common.Raster,
// since common.Raster.At assumes 4-byte pixels throughout the rest of this
// codebase.
func rasterFromRGBA16Float(packed *common.Raster) *common.Raster {
	out := common.NewRaster(packed.Width, packed.Height)
	for y := 0; y < packed.Height; y++ {
		for x := 0; x < packed.Width; x++ {
			o := y*packed.Stride + x*8
			px := packed.Pix[o : o+8]
			r := half16ToFloat(uint16(px[0])|uint16(px[1])<<8) * 255
			g := half16ToFloat(uint16(px[2])|uint16(px[3])<<8) * 255
			b := half16ToFloat(uint16(px[4])|uint16(px[5])<<8) * 255
			al := half16ToFloat(uint16(px[6])|uint16(px[7])<<8) * 255
			dp := out.At(x, y)
			dp[0] = clampByte(r)
			dp[1] = clampByte(g)
			dp[2] = clampByte(b)
			dp[3] = clampByte(al)
		}
	}
	return out
}

func clampByte(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v)
}

// half16ToFloat converts an IEEE-754 binary16 value to float64.
func half16ToFloat(h uint16) float64 {
	sign := float64(1)
	if h&0x8000 != 0 {
		sign = -1
	}
	exp := (h >> 10) & 0x1f
	frac := h & 0x3ff
	switch exp {
	case 0:
		return sign * float64(frac) / 1024.0 * math.Pow(2, -14)
	case 0x1f:
		if frac == 0 {
			return sign * math.Inf(1)
		}
		return math.NaN()
	default:
		return sign * (1 + float64(frac)/1024.0) * math.Pow(2, float64(exp)-15)
	}
}

// providerFor realizes a fresh bind-group Provider for a pipeline dispatch,
// evicting whatever was previously cached under dest's texture ID. Every
// dab dispatch's uniform and storage-dab buffers are per-flush scratch
// allocations (InstanceBuffer.Flush grows/replaces its GPU buffer on demand,
// and the tile-uniform buffer is recreated every call), so a bind group
// built from them cannot be reused across flushes the way a pure
// texture-to-texture pass's bind group can; the cache here exists to make
// sure the previous bind group's resources are released rather than to skip
// rebuilding, per spec.md §4.4's bind-group cache eviction behavior.
func (a *Accumulator) providerFor(key pipelines.Key, dest *gpu.Texture, setup func(bindgroup.Provider) error) (bindgroup.Provider, error) {
	cache := a.pipelines.BindGroupCache(key)
	p := bindgroup.New(string(key))
	if err := setup(p); err != nil {
		return nil, err
	}
	pl := a.pipelines.Pipeline(key)
	descriptor := pl.Shader(shader.ShaderTypeCompute).BindGroupLayoutDescriptors()[0]
	if err := a.device.InitBindGroup(p, descriptor, nil, nil); err != nil {
		return nil, fmt.Errorf("stroke: init bind group for %q: %w", key, err)
	}
	cache.Put(dest.ID, p)
	return p, nil
}

// Flush dispatches the staged primary dab batch against the accumulator's
// ping-pong pair, covering the batch's bounding box tiled per spec.md §4.4,
// then swaps source/dest roles. With nothing staged no dab dispatch or swap
// runs, but the wet-edge pass and the preview readback still do.
func (a *Accumulator) Flush() error {
	if a.state != StateActive || a.deviceLost {
		return nil
	}

	switch a.mode {
	case ModeParametric:
		if err := a.flushParametric(); err != nil {
			return err
		}
	case ModeTextured:
		if err := a.flushTextured(); err != nil {
			return err
		}
	}
	if err := a.applyWetEdge(); err != nil {
		a.requestFallback(err.Error())
	}
	a.dabsSinceFlush = 0
	if err := a.updatePreview(); err != nil {
		a.requestFallback(err.Error())
	}
	return nil
}

// updatePreview drives the preview coordinator (spec.md §4.5.1): only one
// readback round runs at a time; a request that arrives while one is already
// running is coalesced and served by looping once more before returning,
// since this accumulator has no goroutines of its own to run a round
// concurrently with the caller.
func (a *Accumulator) updatePreview() error {
	if !a.preview.Request() {
		return nil
	}
	for {
		if err := a.refreshPreviewRaster(); err != nil {
			a.preview.Complete()
			return err
		}
		if !a.preview.Complete() {
			return nil
		}
	}
}

// refreshPreviewRaster reads back the current presentable texture into
// a.previewRaster, restricted in spirit to the stroke's dirty rectangle (the
// readback itself covers the full texture; GetCanvas callers clip to
// GetDirtyRect themselves, matching how compositeOnto clips on commit).
func (a *Accumulator) refreshPreviewRaster() error {
	packed, err := a.device.ReadTexture(a.GetPresentableTexture(), 8)
	if err != nil {
		return fmt.Errorf("stroke: preview readback: %w", err)
	}
	raster := rasterFromRGBA16Float(packed)
	if a.renderScale != 1.0 {
		raster = texcache.ResampleNearest(raster, a.canvasW, a.canvasH)
	}
	a.previewRaster = raster
	return nil
}

func (a *Accumulator) flushParametric() error {
	bbox := a.primaryParamDabs.BoundingBox()
	buf, count, err := a.primaryParamDabs.Flush()
	if err != nil {
		a.requestFallback(err.Error())
		return nil
	}
	if count == 0 {
		return nil
	}
	return a.dispatchDabs(pipelines.KeyParametricDab, bbox, buf, uint32(count))
}

func (a *Accumulator) flushTextured() error {
	bbox := a.primaryTexturedDabs.BoundingBox()
	buf, count, err := a.primaryTexturedDabs.Flush()
	if err != nil {
		a.requestFallback(err.Error())
		return nil
	}
	if count == 0 {
		return nil
	}
	return a.dispatchDabs(pipelines.KeyTexturedDab, bbox, buf, uint32(count))
}

// dispatchDabs runs the parametric or textured compute pipeline over bbox,
// tiled, against the primary ping-pong pair.
func (a *Accumulator) dispatchDabs(key pipelines.Key, bbox common.Rect, dabBuf *wgpu.Buffer, count uint32) error {
	w, h := a.primary.TextureSize()
	canvas := common.Rect{X: 0, Y: 0, W: w, H: h}
	scaled := bbox.Scale(a.renderScale).Clamp(w, h)
	tiles, err := pipelines.BuildTiles(scaled)
	if err != nil {
		a.requestFallback(err.Error())
		return nil
	}
	if len(tiles) == 0 {
		return nil
	}

	placeholder, err := a.ensurePlaceholder()
	if err != nil {
		return err
	}
	erf, err := a.ensureErfTable()
	if err != nil {
		return err
	}
	pattern := a.pattern.GetCurrent()
	patternView, patternSampler := placeholder.View, (*wgpu.Sampler)(nil)
	if pattern != nil {
		patternView, patternSampler = pattern.View, pattern.Sampler
	}
	brush := a.brushTips.GetCurrent()
	brushView, brushSampler := placeholder.View, (*wgpu.Sampler)(nil)
	if brush != nil {
		brushView, brushSampler = brush.View, brush.Sampler
	}

	dest := a.primary.Dest()
	source := a.primary.Source()

	// uniformBuf's lifetime is owned by the bind-group Provider it gets
	// attached to below; the Provider's cache entry releases it the next
	// time this destination texture's bind group is rebuilt.
	uniformBuf, err := a.device.Raw().CreateBuffer(&wgpu.BufferDescriptor{
		Label: "tile uniform scratch",
		Size:  uint64(len(tiles)) * dynamicUniformStride,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("stroke: create tile uniform buffer: %w", err)
	}

	for i, tile := range tiles {
		u := pipelines.ParametricDabUniform{
			TileOffsetX: uint32(tile.Rect.X), TileOffsetY: uint32(tile.Rect.Y),
			TileSizeX: uint32(tile.Rect.W), TileSizeY: uint32(tile.Rect.H),
			CanvasWidth: uint32(canvas.W), CanvasHeight: uint32(canvas.H),
			DabCount: count,
			AlphaCeiling: float32(a.cfg.AlphaCeiling),
		}
		a.device.Queue().WriteBuffer(uniformBuf, uint64(i)*dynamicUniformStride, u.Marshal())
	}

	sampler := patternSampler
	if sampler == nil {
		sampler = brushSampler
	}
	if sampler == nil {
		sampler, err = a.ensureDefaultSampler()
		if err != nil {
			return err
		}
	}

	provider, err := a.providerFor(key, dest, func(p bindgroup.Provider) error {
		p.SetBuffer(0, uniformBuf)
		p.SetBuffer(1, dabBuf)
		p.SetTextureView(2, source.View)
		p.SetTextureView(3, dest.View)
		switch key {
		case pipelines.KeyTexturedDab:
			// textured_dab.wgsl: binding 4 brush tip, 5 pattern, 6 noise.
			p.SetTextureView(4, brushView)
			p.SetTextureView(5, patternView)
			p.SetTextureView(6, placeholder.View) // noise: no noise source wired yet
		default:
			// parametric_dab.wgsl: binding 4 pattern, 5 noise, 6 erf lookup.
			p.SetTextureView(4, patternView)
			p.SetTextureView(5, placeholder.View) // noise: no noise source wired yet
			p.SetTextureView(6, erf.View)
		}
		p.SetSampler(7, sampler)
		return nil
	})
	if err != nil {
		return err
	}
	// dabBuf is owned by the InstanceBuffer, not this provider (it is grown
	// and reused across many flushes); detach it from the provider's buffer
	// map immediately so the next cache eviction doesn't double-release it.
	defer provider.SetBuffer(1, nil)

	if err := a.pipelines.DispatchTiles(key, provider, tiles, dynamicUniformStride, 0); err != nil {
		a.requestFallback(err.Error())
		return nil
	}

	a.primary.Swap()
	a.metrics.FlushCount++
	a.metrics.DabsAccumulated += int(count)
	a.metrics.TilesDispatched += len(tiles)
	return nil
}

// applyWetEdge runs the wet-edge display filter (spec.md §4.4.6) over the
// accumulator's current dirty rect, writing into the lazily-allocated
// display texture that GetPresentableTexture prefers when wet-edge is on.
func (a *Accumulator) applyWetEdge() error {
	if !a.cfg.WetEdgeEnabled {
		return nil
	}
	display, err := a.primary.EnsureDisplay()
	if err != nil {
		return err
	}
	w, h := a.primary.TextureSize()
	canvas := common.Rect{X: 0, Y: 0, W: w, H: h}
	rect := a.dirty.rect.Scale(a.renderScale).Clamp(w, h)
	if rect.IsEmpty() {
		rect = canvas
	}
	tiles, err := pipelines.BuildTiles(rect)
	if err != nil || len(tiles) == 0 {
		return err
	}

	uniformBuf, err := a.device.Raw().CreateBuffer(&wgpu.BufferDescriptor{
		Label: "wet edge uniform scratch",
		Size:  uint64(len(tiles)) * dynamicUniformStride,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	for i, tile := range tiles {
		u := pipelines.WetEdgeUniform{
			BBoxOffsetX: uint32(tile.Rect.X), BBoxOffsetY: uint32(tile.Rect.Y),
			BBoxSizeX: uint32(tile.Rect.W), BBoxSizeY: uint32(tile.Rect.H),
			CanvasWidth: uint32(canvas.W), CanvasHeight: uint32(canvas.H),
			Hardness: float32(a.cfg.WetEdgeHardness), Strength: float32(a.cfg.WetEdgeStrength),
		}
		a.device.Queue().WriteBuffer(uniformBuf, uint64(i)*dynamicUniformStride, u.Marshal())
	}

	provider, err := a.providerFor(pipelines.KeyWetEdge, display, func(p bindgroup.Provider) error {
		p.SetBuffer(0, uniformBuf)
		p.SetTextureView(1, a.primary.Source().View)
		p.SetTextureView(2, display.View)
		return nil
	})
	if err != nil {
		return err
	}

	return a.pipelines.DispatchTiles(pipelines.KeyWetEdge, provider, tiles, dynamicUniformStride, 0)
}

// EndStroke transitions Active -> EndingPrepare -> EndingCommit -> Idle: it
// flushes any remaining staged dabs, runs the dual-brush post-process pass
// if active, composites the result onto layerCanvas at opacity, and returns
// the stroke's total dirty rect (spec.md §4.5, §4.8).
func (a *Accumulator) EndStroke(layerCanvas *common.Raster, opacity float64) (common.Rect, error) {
	if a.state != StateActive {
		return common.Rect{}, nil
	}
	if a.deviceLost {
		a.state = StateIdle
		return common.Rect{}, fmt.Errorf("stroke: device lost, stroke discarded")
	}

	if err := a.Flush(); err != nil {
		a.state = StateIdle
		return common.Rect{}, err
	}
	a.state = StateEndingPrepare

	if a.dualActive {
		if err := a.flushDualPostProcess(); err != nil {
			a.requestFallback(err.Error())
		}
	}

	// Force one final preview update so the committed composite is
	// bit-identical with the last preview (spec.md §5).
	if err := a.refreshPreviewRaster(); err != nil {
		a.state = StateIdle
		return common.Rect{}, fmt.Errorf("stroke: readback for commit: %w", err)
	}

	a.state = StateEndingCommit
	result := a.dirty.rect

	if layerCanvas != nil && !result.IsEmpty() && a.previewRaster != nil {
		compositeOnto(layerCanvas, a.previewRaster, result.Clamp(a.canvasW, a.canvasH), opacity, a.selection)
	}

	a.state = StateIdle
	return result, nil
}

// flushDualPostProcess runs the dual-mask accumulation followed by the
// dual-blend compositing pass (spec.md §4.4.4, §4.4.5), best-effort: a
// failure here requests a CPU fallback rather than aborting the stroke.
func (a *Accumulator) flushDualPostProcess() error {
	var buf *wgpu.Buffer
	var count int
	var err error
	switch a.dualMode {
	case ModeParametric:
		buf, count, err = a.secondaryParamDabs.Flush()
	case ModeTextured:
		buf, count, err = a.secondaryTexturedDabs.Flush()
	default:
		return nil
	}
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	w, h := a.dualMask.TextureSize()
	canvas := common.Rect{X: 0, Y: 0, W: w, H: h}
	scaled := a.dualDirty.rect.Scale(a.renderScale).Clamp(w, h)
	tiles, err := pipelines.BuildTiles(scaled)
	if err != nil || len(tiles) == 0 {
		return err
	}

	// uniformBuf's lifetime is handed to the bind-group Provider; buf (the
	// secondary instance buffer's storage) is owned by the InstanceBuffer
	// and detached below before the provider can be evicted.
	uniformBuf, err := a.device.Raw().CreateBuffer(&wgpu.BufferDescriptor{
		Label: "dual mask uniform scratch",
		Size:  uint64(len(tiles)) * dynamicUniformStride,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	for i, tile := range tiles {
		u := pipelines.DualMaskUniform{
			TileOffsetX: uint32(tile.Rect.X), TileOffsetY: uint32(tile.Rect.Y),
			TileSizeX: uint32(tile.Rect.W), TileSizeY: uint32(tile.Rect.H),
			CanvasWidth: uint32(canvas.W), CanvasHeight: uint32(canvas.H),
			DabCount: uint32(count), AlphaCeiling: float32(a.cfg.AlphaCeiling),
		}
		a.device.Queue().WriteBuffer(uniformBuf, uint64(i)*dynamicUniformStride, u.Marshal())
	}

	dest := a.dualMask.Dest()
	source := a.dualMask.Source()
	provider, err := a.providerFor(pipelines.KeyDualMask, dest, func(p bindgroup.Provider) error {
		p.SetBuffer(0, uniformBuf)
		p.SetBuffer(1, buf)
		p.SetTextureView(2, source.View)
		p.SetTextureView(3, dest.View)
		return nil
	})
	if err != nil {
		return err
	}
	defer provider.SetBuffer(1, nil)

	if err := a.pipelines.DispatchTiles(pipelines.KeyDualMask, provider, tiles, dynamicUniformStride, 0); err != nil {
		return err
	}
	a.dualMask.Swap()

	return a.blendDual(canvas)
}

// blendDual composites the dual mask onto the primary accumulator via the
// dual-blend compute pipeline (spec.md §4.4.5), producing blendOut.
func (a *Accumulator) blendDual(canvas common.Rect) error {
	if a.blendOut == nil {
		tex, err := a.device.CreateTexture("dual blend output", uint32(canvas.W), uint32(canvas.H), wgpu.TextureFormatRGBA16Float, wgpu.TextureUsageRenderAttachment)
		if err != nil {
			return fmt.Errorf("stroke: create dual blend output: %w", err)
		}
		a.blendOut = tex
	}

	tiles, err := pipelines.BuildTiles(canvas)
	if err != nil {
		return err
	}
	// uniformBuf's lifetime is handed to the bind-group Provider below.
	uniformBuf, err := a.device.Raw().CreateBuffer(&wgpu.BufferDescriptor{
		Label: "dual blend uniform scratch",
		Size:  uint64(len(tiles)) * dynamicUniformStride,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	for i, tile := range tiles {
		u := pipelines.DualBlendUniform{
			BBoxOffsetX: uint32(tile.Rect.X), BBoxOffsetY: uint32(tile.Rect.Y),
			BBoxSizeX: uint32(tile.Rect.W), BBoxSizeY: uint32(tile.Rect.H),
			CanvasWidth: uint32(canvas.W), CanvasHeight: uint32(canvas.H),
			BlendMode: 0,
		}
		a.device.Queue().WriteBuffer(uniformBuf, uint64(i)*dynamicUniformStride, u.Marshal())
	}

	provider, err := a.providerFor(pipelines.KeyDualBlend, a.blendOut, func(p bindgroup.Provider) error {
		p.SetBuffer(0, uniformBuf)
		p.SetTextureView(1, a.primary.Source().View)
		p.SetTextureView(2, a.dualMask.Source().View)
		p.SetTextureView(3, a.blendOut.View)
		return nil
	})
	if err != nil {
		return err
	}

	return a.pipelines.DispatchTiles(pipelines.KeyDualBlend, provider, tiles, dynamicUniformStride, 0)
}

// compositeOnto blends readback over dst at rect using opacity and an
// optional selection mask, CPU-side (spec.md §4.8's commit_to_layer).
func compositeOnto(dst *common.Raster, src *common.Raster, rect common.Rect, opacity float64, mask *selection.Mask) {
	for y := rect.Y; y < rect.Y+rect.H; y++ {
		for x := rect.X; x < rect.X+rect.W; x++ {
			sp := src.At(x, y)
			dp := dst.At(x, y)
			if sp == nil || dp == nil {
				continue
			}
			sa := float64(sp[3]) / 255
			if sa == 0 {
				continue
			}
			a := sa * opacity
			if mask != nil {
				a *= mask.AlphaAt(x, y)
			}
			da := float64(dp[3]) / 255
			outA := da + a*(1-da)
			if outA <= 0 {
				dp[0], dp[1], dp[2], dp[3] = 0, 0, 0, 0
				continue
			}
			mix := func(s, d byte) byte {
				return clampByte((float64(s)*a + float64(d)*da*(1-a)) / outA)
			}
			dp[0] = mix(sp[0], dp[0])
			dp[1] = mix(sp[1], dp[1])
			dp[2] = mix(sp[2], dp[2])
			dp[3] = clampByte(outA * 255)
		}
	}
}
