package stroke

import (
	"fmt"
	"log"
	"math"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/dab"
	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/LiuYangArt/sutu-sub000/pingpong"
	"github.com/LiuYangArt/sutu-sub000/pipelines"
	"github.com/LiuYangArt/sutu-sub000/selection"
	"github.com/LiuYangArt/sutu-sub000/strokemath"
	"github.com/LiuYangArt/sutu-sub000/texcache"
	"github.com/cogentcore/webgpu/wgpu"
)

// autoFlushThreshold triggers flush well under the 128-dab shared-memory
// hard limit, per spec.md §4.5/§5's backpressure policy.
const autoFlushThreshold = 64

// Config is the subset of host configuration StrokeAccumulator re-reads on
// every begin_stroke (spec.md §4.5: wet-edge, color-blend mode, render scale).
type Config struct {
	ColorBlendModeLinear bool
	WetEdgeEnabled       bool
	WetEdgeHardness      float64
	WetEdgeStrength      float64
	AlphaCeiling         float64
	RenderScaleMode      strokemath.RenderScaleMode
	ManualRenderScale    float64
}

// Metrics is the per-flush/per-stroke performance summary returned by
// GetPerformanceSummary (spec.md §4.8's CommitCoordinator metrics, surfaced
// here at the accumulator level since flush/end_stroke are where the work
// actually happens).
type Metrics struct {
	FlushCount       int
	DabsAccumulated  int
	TilesDispatched  int
	FallbackCount    int
}

// Accumulator is the StrokeAccumulator orchestrator (spec.md §4.5): it owns
// the ping-pong accumulator pair, the primary/secondary instance buffers,
// the compute pipeline set, pattern/brush caches, and the stroke lifecycle
// state machine.
type Accumulator struct {
	device    *gpu.Device
	pipelines *pipelines.Set
	pattern   *texcache.Cache
	brushTips *texcache.Cache
	selection *selection.Mask

	primary  *pingpong.Buffer
	dualMask *pingpong.Buffer
	blendOut *gpu.Texture

	placeholder    *gpu.Texture
	erfTable       *gpu.Texture
	defaultSampler *wgpu.Sampler

	primaryParamDabs    *dab.InstanceBuffer[dab.Parametric]
	primaryTexturedDabs *dab.InstanceBuffer[dab.Textured]
	secondaryParamDabs  *dab.InstanceBuffer[dab.Parametric]
	secondaryTexturedDabs *dab.InstanceBuffer[dab.Textured]

	state State
	mode  Mode

	dualActive      bool
	dualMode        Mode
	dualPostPending bool

	canvasW, canvasH int
	cfg              Config
	renderScale      float64

	dirty     dirtyUnion
	dualDirty dirtyUnion

	dabsSinceFlush int
	pendingPattern *PatternSettings

	preview       previewCoordinator
	previewRaster *common.Raster

	fallback fallbackRequest

	deviceLost bool
	metrics    Metrics
}

// New creates an idle Accumulator at the given canvas dimensions.
func New(device *gpu.Device, pipelineSet *pipelines.Set, pattern, brushTips *texcache.Cache, sel *selection.Mask, canvasW, canvasH int) (*Accumulator, error) {
	a := &Accumulator{
		device:    device,
		pipelines: pipelineSet,
		pattern:   pattern,
		brushTips: brushTips,
		selection: sel,
		canvasW:   canvasW,
		canvasH:   canvasH,
		renderScale: 1.0,
	}
	a.primaryParamDabs = dab.NewInstanceBuffer[dab.Parametric](device, "primary parametric dabs")
	a.primaryTexturedDabs = dab.NewInstanceBuffer[dab.Textured](device, "primary textured dabs")
	a.secondaryParamDabs = dab.NewInstanceBuffer[dab.Parametric](device, "secondary parametric dabs")
	a.secondaryTexturedDabs = dab.NewInstanceBuffer[dab.Textured](device, "secondary textured dabs")

	primary, err := pingpong.New(device, "primary accumulator", wgpu.TextureFormatRGBA16Float, canvasW, canvasH, 1.0)
	if err != nil {
		return nil, fmt.Errorf("stroke: create primary accumulator: %w", err)
	}
	a.primary = primary

	dualMask, err := pingpong.New(device, "dual mask accumulator", wgpu.TextureFormatR8Unorm, canvasW, canvasH, 1.0)
	if err != nil {
		primary.Release()
		return nil, fmt.Errorf("stroke: create dual mask accumulator: %w", err)
	}
	a.dualMask = dualMask

	return a, nil
}

// IsActive reports whether the accumulator is mid-stroke.
func (a *Accumulator) IsActive() bool { return a.state == StateActive }

// State returns the current lifecycle state, exposed for diagnostics.
func (a *Accumulator) State() State { return a.state }

// Resize reallocates every render-scale-dependent texture at the new
// logical canvas dimensions, clearing every pipeline's bind-group cache
// since the referenced textures are recreated (spec.md §4.7).
func (a *Accumulator) Resize(w, h int) error {
	a.canvasW, a.canvasH = w, h
	if err := a.primary.Resize(w, h, a.renderScale); err != nil {
		return fmt.Errorf("stroke: resize primary: %w", err)
	}
	if err := a.dualMask.Resize(w, h, a.renderScale); err != nil {
		return fmt.Errorf("stroke: resize dual mask: %w", err)
	}
	a.pipelines.InvalidateBindGroups()
	return nil
}

// BeginStroke transitions Idle -> Active: clears both accumulators, resets
// dirty rects and staged dab counts, and re-reads configuration for
// wet-edge, color-blend mode, and render scale (spec.md §4.5).
func (a *Accumulator) BeginStroke(cfg Config) error {
	if a.state != StateIdle {
		return nil // precondition violation: silently ignored, per spec.md §7
	}
	if a.deviceLost {
		return nil
	}

	a.cfg = cfg
	a.mode = ModeUnset
	a.dualActive = false
	a.dualMode = ModeUnset
	a.dualPostPending = false
	a.dabsSinceFlush = 0
	a.pendingPattern = nil
	a.dirty.reset()
	a.dualDirty.reset()
	a.metrics = Metrics{}
	a.previewRaster = nil

	if err := a.primary.Clear(); err != nil {
		return fmt.Errorf("stroke: begin_stroke clear primary: %w", err)
	}
	if err := a.dualMask.Clear(); err != nil {
		return fmt.Errorf("stroke: begin_stroke clear dual mask: %w", err)
	}

	a.state = StateActive
	return nil
}

// dabModeOf reports the Mode a GPUDabParams stamps in.
func dabModeOf(p GPUDabParams) Mode {
	if p.BrushTipKey != nil {
		return ModeTextured
	}
	return ModeParametric
}

// StampDab stages a dab for the current stroke. Only valid while Active; a
// dab of a different mode than the stroke's first dab is rejected silently
// (spec.md §4.5: "the host must end and begin a new stroke").
func (a *Accumulator) StampDab(p GPUDabParams) {
	if a.state != StateActive || a.deviceLost {
		return
	}
	m := dabModeOf(p)
	if a.mode == ModeUnset {
		a.mode = m
		a.renderScale = strokemath.AutoRenderScale(a.cfg.RenderScaleMode, a.cfg.ManualRenderScale, p.Size/2, p.Hardness, m == ModeTextured)
	} else if a.mode != m {
		return // precondition violation: mode mismatch mid-stroke
	}

	if p.Pattern != nil && a.patternChanged(p.Pattern) {
		a.flushPrimaryOnly()
		if ok, _ := a.pattern.Set(p.Pattern.PatternKey); !ok {
			// pattern not yet decoded: the atlas miss defers until ready,
			// per spec.md §4.5; the dab is dropped for this round.
			return
		}
		a.pendingPattern = p.Pattern
	}

	radius := (p.Size / 2) * a.renderScale
	x, y := p.X*a.renderScale, p.Y*a.renderScale
	footprint := dabFootprint(x, y, radius, p.Hardness/100)

	r, g, b, err := dab.ParseHexColor(p.ColorHex)
	if err != nil {
		log.Printf("stroke: stamp_dab: %v", err)
		return
	}
	theta := p.AngleDeg * math.Pi / 180
	cosT, sinT := math.Cos(theta), math.Sin(theta)

	switch m {
	case ModeParametric:
		a.primaryParamDabs.Push(dab.Parametric{
			X: float32(x), Y: float32(y), Radius: float32(radius), Hardness: float32(p.effectiveHardness01()),
			R: float32(r), G: float32(g), B: float32(b),
			DabOpacity: float32(p.dabOpacityOrFlow()), Flow: float32(p.Flow),
			Roundness: float32(p.Roundness), CosTheta: float32(cosT), SinTheta: float32(sinT),
		}, footprint)
	case ModeTextured:
		a.primaryTexturedDabs.Push(dab.Textured{
			X: float32(x), Y: float32(y), Diameter: float32(radius * 2), Roundness: float32(p.Roundness),
			AngleRadians: float32(theta), R: float32(r), G: float32(g), B: float32(b),
			DabOpacity: float32(p.dabOpacityOrFlow()), Flow: float32(p.Flow),
			SrcTexWidth: 64, SrcTexHeight: 64,
		}, footprint)
	}

	a.dirty.expand(footprint)
	a.dabsSinceFlush++
	if a.dabsSinceFlush >= autoFlushThreshold {
		a.Flush()
	}
}

// StampSecondaryDab contributes to the dual-mask accumulator (spec.md §4.5).
// It pushes max(1, scatter.Count) secondary dabs, the i-th offset along X by
// scatter.Amount*i/max(Count-1, 1) (and along Y by the same amount when
// scatter.BothAxes is set). ScatterControlOff, CountControlOff and
// CountJitter are not read.
func (a *Accumulator) StampSecondaryDab(p GPUDabParams, scatter ScatterSettings) {
	if a.state != StateActive || a.deviceLost {
		return
	}
	m := dabModeOf(p)
	if a.dualMode == ModeUnset {
		a.dualMode = m
	}
	a.dualActive = true

	if p.BrushTipKey != nil && a.brushTips.GetCurrent() == nil {
		return // atlas miss: the dab is dropped, not queued for later
	}

	count := max(1, scatter.Count)
	for i := 0; i < count; i++ {
		jitter := scatter.Amount * (float64(i) / float64(max(count-1, 1)))
		radius := (p.Size / 2) * a.renderScale
		x := p.X*a.renderScale + jitter
		y := p.Y * a.renderScale
		if scatter.BothAxes {
			y += jitter
		}
		footprint := dabFootprint(x, y, radius, p.Hardness/100)
		r, g, b, err := dab.ParseHexColor(p.ColorHex)
		if err != nil {
			continue
		}
		theta := p.AngleDeg * math.Pi / 180

		switch m {
		case ModeParametric:
			a.secondaryParamDabs.Push(dab.Parametric{
				X: float32(x), Y: float32(y), Radius: float32(radius), Hardness: float32(p.effectiveHardness01()),
				R: float32(r), G: float32(g), B: float32(b),
				DabOpacity: float32(p.dabOpacityOrFlow()), Flow: float32(p.Flow),
				Roundness: float32(p.Roundness), CosTheta: float32(math.Cos(theta)), SinTheta: float32(math.Sin(theta)),
			}, footprint)
		case ModeTextured:
			a.secondaryTexturedDabs.Push(dab.Textured{
				X: float32(x), Y: float32(y), Diameter: float32(radius * 2), Roundness: float32(p.Roundness),
				AngleRadians: float32(theta), R: float32(r), G: float32(g), B: float32(b),
				DabOpacity: float32(p.dabOpacityOrFlow()), Flow: float32(p.Flow),
				SrcTexWidth: 64, SrcTexHeight: 64,
			}, footprint)
		}
		a.dualDirty.expand(footprint)
	}
}

// SetDualBrushState enables or disables the dual-brush post-process path.
func (a *Accumulator) SetDualBrushState(enabled bool) {
	a.dualActive = enabled
	if !enabled {
		a.dualPostPending = false
	}
}

// ConsumeFallbackRequest returns and clears a pending CPU-fallback reason,
// or ("", false) if none is pending.
func (a *Accumulator) ConsumeFallbackRequest() (string, bool) {
	if !a.fallback.set {
		return "", false
	}
	reason := a.fallback.reason
	a.fallback = fallbackRequest{}
	return reason, true
}

func (a *Accumulator) requestFallback(reason string) {
	a.fallback = fallbackRequest{reason: reason, set: true}
	a.metrics.FallbackCount++
}

// AbortStroke discards staged dabs and returns to Idle without waiting for
// outstanding GPU work; in-flight readbacks complete and are discarded.
func (a *Accumulator) AbortStroke() {
	if a.state == StateIdle {
		return
	}
	a.primaryParamDabs.Clear()
	a.primaryTexturedDabs.Clear()
	a.secondaryParamDabs.Clear()
	a.secondaryTexturedDabs.Clear()
	a.preview.reset()
	a.dirty.reset()
	a.dualDirty.reset()
	a.state = StateIdle
}

// Clear is equivalent to AbortStroke at the external interface level
// (spec.md §4.5 groups them together); kept as a distinct method since
// callers reach for them in different contexts (scrap vs. cancel).
func (a *Accumulator) Clear() { a.AbortStroke() }

// GetCanvas returns the current host-raster preview of the accumulator's
// presentable texture (spec.md §6: "get_canvas() -> HostRaster"), or nil if
// no preview has been produced yet (no flush has run since begin_stroke).
func (a *Accumulator) GetCanvas() *common.Raster { return a.previewRaster }

// GetDirtyRect returns the stroke's accumulated dirty rectangle so far.
func (a *Accumulator) GetDirtyRect() common.Rect { return a.dirty.rect }

// GetDimensions returns the canvas's logical dimensions.
func (a *Accumulator) GetDimensions() (w, h int) { return a.canvasW, a.canvasH }

// GetPerformanceSummary returns the accumulated metrics for the current (or
// most recently completed) stroke.
func (a *Accumulator) GetPerformanceSummary() Metrics { return a.metrics }

// GetPresentableTexture returns the texture that should be displayed right
// now: the display texture if wet-edge is on, otherwise the dual blend
// output if dual is active, otherwise the raw accumulator (spec.md §4.5.1).
func (a *Accumulator) GetPresentableTexture() *gpu.Texture {
	if a.cfg.WetEdgeEnabled && a.primary.Display() != nil {
		return a.primary.Display()
	}
	if a.dualActive && a.blendOut != nil {
		return a.blendOut
	}
	return a.primary.Source()
}

// patternChanged reports whether p differs from the currently staged
// pattern settings.
func (a *Accumulator) patternChanged(p *PatternSettings) bool {
	if a.pendingPattern == nil {
		return true
	}
	return *a.pendingPattern != *p
}

// flushPrimaryOnly flushes the primary instance buffers without running the
// rest of Flush's post-processing, used when a pattern change forces a
// mid-stroke flush (spec.md §4.5).
func (a *Accumulator) flushPrimaryOnly() {
	if a.primaryParamDabs.Pending() > 0 || a.primaryTexturedDabs.Pending() > 0 {
		a.Flush()
	}
}

// dabFootprint returns the pixel-space bounding rect a dab's effective
// radius covers, expanded by a 2-texel margin (spec.md §4.5, §4.6).
func dabFootprint(x, y, radius, hardness01 float64) common.Rect {
	eff := strokemath.EffectiveRadius(radius, hardness01) + 2
	return common.Rect{
		X: int(math.Floor(x - eff)),
		Y: int(math.Floor(y - eff)),
		W: int(math.Ceil(eff*2)) + 1,
		H: int(math.Ceil(eff*2)) + 1,
	}
}

// Destroy releases every GPU resource the accumulator owns.
func (a *Accumulator) Destroy() {
	a.primary.Release()
	a.dualMask.Release()
	if a.blendOut != nil {
		a.blendOut.Release()
	}
	if a.placeholder != nil {
		a.placeholder.Release()
	}
	if a.erfTable != nil {
		a.erfTable.Release()
	}
	a.primaryParamDabs.Release()
	a.primaryTexturedDabs.Release()
	a.secondaryParamDabs.Release()
	a.secondaryTexturedDabs.Release()
}

// OnDeviceLost marks the accumulator permanently unusable: no further GPU
// work is submitted, and the next end_stroke returns an empty rect
// (spec.md §7).
func (a *Accumulator) OnDeviceLost() {
	a.deviceLost = true
	if a.dualActive {
		a.requestFallback("device lost during dual-brush stroke")
	}
}
