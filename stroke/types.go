// Package stroke implements the StrokeAccumulator orchestrator (spec.md
// §4.5): the state machine and lifecycle operations that turn a stream of
// dab parameters into an accumulated stroke texture, with preview readback
// and dual-brush post-processing.
package stroke

import (
	"math"

	"github.com/LiuYangArt/sutu-sub000/common"
)

// State is the StrokeAccumulator's lifecycle state (spec.md §4.5).
type State int

const (
	StateIdle State = iota
	StateActive
	StateEndingPrepare
	StateEndingCommit
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateEndingPrepare:
		return "ending_prepare"
	case StateEndingCommit:
		return "ending_commit"
	default:
		return "unknown"
	}
}

// Mode is fixed on the first dab of a stroke and cannot change mid-stroke.
type Mode int

const (
	ModeUnset Mode = iota
	ModeParametric
	ModeTextured
)

// ScatterSettings configures stamp_secondary_dab's scatter helper
// (spec.md §4.5, supplemented in the expanded data model).
type ScatterSettings struct {
	Amount            float64
	ScatterControlOff bool
	BothAxes          bool
	Count             int
	CountControlOff   bool
	CountJitter       float64
}

// PatternSettings identifies the pattern texture + parameters currently
// staged for a dab batch; comparing settings drives the "flush both
// instance buffers before switching patterns" rule in stamp_dab.
type PatternSettings struct {
	PatternKey    string
	ScaleX, ScaleY float64
	Rotation      float64
}

// GPUDabParams is the external dab-stamp request shape (spec.md §6):
// position, size, flow, hardness, CSS hex color, optional dab opacity,
// roundness, angle in degrees, optional brush-tip/pattern settings, and an
// optional noise flag.
type GPUDabParams struct {
	X, Y       float64
	Size       float64 // diameter, external units
	Flow       float64
	Hardness   float64 // external 0-100 scale
	ColorHex   string
	DabOpacity *float64 // nil means "use flow"
	Roundness  float64  // 0-1, 1 = circular
	AngleDeg   float64

	BrushTipKey *string // set => textured mode
	Pattern     *PatternSettings
	NoiseEnable bool
}

// effectiveHardness01 normalizes the external 0-100 hardness scale to [0,1]
// for use in the internal dab record.
func (p GPUDabParams) effectiveHardness01() float64 {
	return math.Max(0, math.Min(1, p.Hardness/100))
}

// dabOpacityOrFlow resolves the optional dab_opacity field.
func (p GPUDabParams) dabOpacityOrFlow() float64 {
	if p.DabOpacity != nil {
		return *p.DabOpacity
	}
	return p.Flow
}

// previewPhase tracks the single-flight coalescing state for preview
// readback: idle (no request), inFlight (a MapAsync is pending), or
// retryPending (another dirty-rect update arrived while one was in flight,
// and must trigger one more round once the in-flight one completes).
// Resolves the REDESIGN FLAG calling out the source's self-chaining async
// preview-update task as a cyclic dependency; this is a three-state
// single-consumer channel instead.
type previewPhase int

const (
	previewIdle previewPhase = iota
	previewInFlight
	previewRetryPending
)

// fallbackRequest, when set, holds a reason returned once by ConsumeFallbackRequest
// and then cleared (spec.md §4.5: "the host reads the reason via
// consume_fallback_request").
type fallbackRequest struct {
	reason string
	set    bool
}

// dirtyUnion tracks a stroke's accumulated dirty rectangle, expanded as dabs
// are staged.
type dirtyUnion struct {
	rect common.Rect
	set  bool
}

func (d *dirtyUnion) expand(r common.Rect) {
	if !d.set {
		d.rect = r
		d.set = true
		return
	}
	d.rect = d.rect.Union(r)
}

func (d *dirtyUnion) reset() {
	*d = dirtyUnion{}
}
