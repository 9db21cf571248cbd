package stroke

import "testing"

func TestDabModeOfParametricWhenNoBrushTip(t *testing.T) {
	if got := dabModeOf(GPUDabParams{}); got != ModeParametric {
		t.Errorf("dabModeOf = %v, want ModeParametric", got)
	}
}

func TestDabModeOfTexturedWhenBrushTipSet(t *testing.T) {
	tip := "round-bristle"
	if got := dabModeOf(GPUDabParams{BrushTipKey: &tip}); got != ModeTextured {
		t.Errorf("dabModeOf = %v, want ModeTextured", got)
	}
}

func TestDabFootprintCentersOnPosition(t *testing.T) {
	r := dabFootprint(100, 100, 10, 0.5)
	cx := r.X + r.W/2
	cy := r.Y + r.H/2
	if abs(cx-100) > 1 || abs(cy-100) > 1 {
		t.Errorf("footprint center = (%d,%d), want near (100,100)", cx, cy)
	}
	if r.W <= 20 || r.H <= 20 {
		t.Errorf("footprint %+v too small for radius 10 plus margin", r)
	}
}

func TestDabFootprintGrowsWithSofterHardness(t *testing.T) {
	hard := dabFootprint(0, 0, 10, 1.0)
	soft := dabFootprint(0, 0, 10, 0.0)
	if soft.W < hard.W {
		t.Errorf("soft-edge footprint width %d should be >= hard-edge width %d", soft.W, hard.W)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
