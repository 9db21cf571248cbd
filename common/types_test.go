package common

import "testing"

func TestRectUnion(t *testing.T) {
	cases := []struct {
		name string
		a, b Rect
		want Rect
	}{
		{"both empty", Rect{}, Rect{}, Rect{}},
		{"one empty", Rect{X: 1, Y: 1, W: 2, H: 2}, Rect{}, Rect{X: 1, Y: 1, W: 2, H: 2}},
		{"disjoint", Rect{X: 0, Y: 0, W: 2, H: 2}, Rect{X: 10, Y: 10, W: 2, H: 2}, Rect{X: 0, Y: 0, W: 12, H: 12}},
		{"overlap", Rect{X: 0, Y: 0, W: 4, H: 4}, Rect{X: 2, Y: 2, W: 4, H: 4}, Rect{X: 0, Y: 0, W: 6, H: 6}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Union(c.b); got != c.want {
				t.Errorf("Union(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestRectIntersect(t *testing.T) {
	cases := []struct {
		name string
		a, b Rect
		want Rect
	}{
		{"no overlap", Rect{X: 0, Y: 0, W: 2, H: 2}, Rect{X: 10, Y: 10, W: 2, H: 2}, Rect{}},
		{"partial overlap", Rect{X: 0, Y: 0, W: 4, H: 4}, Rect{X: 2, Y: 2, W: 4, H: 4}, Rect{X: 2, Y: 2, W: 2, H: 2}},
		{"touching edges", Rect{X: 0, Y: 0, W: 2, H: 2}, Rect{X: 2, Y: 0, W: 2, H: 2}, Rect{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Intersect(c.b); got != c.want {
				t.Errorf("Intersect(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestRectClamp(t *testing.T) {
	r := Rect{X: -5, Y: -5, W: 20, H: 20}
	got := r.Clamp(10, 10)
	want := Rect{X: 0, Y: 0, W: 10, H: 10}
	if got != want {
		t.Errorf("Clamp() = %v, want %v", got, want)
	}
}

func TestRectScaleRoundsOutward(t *testing.T) {
	r := Rect{X: 1, Y: 1, W: 3, H: 3}
	got := r.Scale(0.5)
	if got.X > 0 || got.Y > 0 {
		t.Errorf("Scale rounded the origin inward: %v", got)
	}
	// the scaled rect must still cover every scaled source pixel
	if got.X+got.W < int(ceilf64(4*0.5)) {
		t.Errorf("Scale(%v) = %v does not cover the source extent", r, got)
	}
}

func TestDualBlendModeAlphaLift(t *testing.T) {
	lift := map[DualBlendMode]bool{
		DualBlendMultiply:    false,
		DualBlendDarken:      true,
		DualBlendOverlay:     true,
		DualBlendColorDodge:  false,
		DualBlendColorBurn:   false,
		DualBlendLinearBurn:  true,
		DualBlendHardMix:     true,
		DualBlendLinearHeight: false,
	}
	for mode, want := range lift {
		if got := mode.AllowsAlphaLift(); got != want {
			t.Errorf("%v.AllowsAlphaLift() = %v, want %v", mode, got, want)
		}
	}
}
