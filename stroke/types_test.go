package stroke

import (
	"testing"

	"github.com/LiuYangArt/sutu-sub000/common"
)

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:           "idle",
		StateActive:         "active",
		StateEndingPrepare:  "ending_prepare",
		StateEndingCommit:   "ending_commit",
		State(99):           "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestEffectiveHardness01ClampsToUnitRange(t *testing.T) {
	cases := []struct {
		name     string
		hardness float64
		want     float64
	}{
		{"mid", 50, 0.5},
		{"zero", 0, 0},
		{"full", 100, 1},
		{"over", 150, 1},
		{"negative", -10, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := GPUDabParams{Hardness: c.hardness}
			if got := p.effectiveHardness01(); got != c.want {
				t.Errorf("effectiveHardness01() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestDabOpacityOrFlowPrefersExplicitOpacity(t *testing.T) {
	opacity := 0.3
	p := GPUDabParams{Flow: 0.9, DabOpacity: &opacity}
	if got := p.dabOpacityOrFlow(); got != 0.3 {
		t.Errorf("dabOpacityOrFlow() = %v, want 0.3", got)
	}
}

func TestDabOpacityOrFlowFallsBackToFlow(t *testing.T) {
	p := GPUDabParams{Flow: 0.75}
	if got := p.dabOpacityOrFlow(); got != 0.75 {
		t.Errorf("dabOpacityOrFlow() = %v, want 0.75", got)
	}
}

func TestDirtyUnionExpandFromUnset(t *testing.T) {
	var d dirtyUnion
	r := common.Rect{X: 5, Y: 5, W: 10, H: 10}
	d.expand(r)
	if d.rect != r {
		t.Errorf("rect = %+v, want %+v", d.rect, r)
	}
}

func TestDirtyUnionExpandUnions(t *testing.T) {
	var d dirtyUnion
	d.expand(common.Rect{X: 0, Y: 0, W: 4, H: 4})
	d.expand(common.Rect{X: 10, Y: 10, W: 4, H: 4})
	want := common.Rect{X: 0, Y: 0, W: 14, H: 14}
	if d.rect != want {
		t.Errorf("rect = %+v, want %+v", d.rect, want)
	}
}

func TestDirtyUnionReset(t *testing.T) {
	var d dirtyUnion
	d.expand(common.Rect{X: 1, Y: 1, W: 1, H: 1})
	d.reset()
	if d.set {
		t.Error("set = true after reset, want false")
	}
	if d.rect != (common.Rect{}) {
		t.Errorf("rect = %+v after reset, want zero value", d.rect)
	}
}
