package strokemath

import "testing"

func TestEffectiveRadius(t *testing.T) {
	cases := []struct {
		name               string
		radius, hardness   float64
		want               float64
	}{
		{"tiny radius floor", 1.0, 0.5, 2.0},
		{"tiny radius above floor", 0.8, 0.2, 1.8},
		{"hard edge", 10, 0.99, 11},
		{"soft edge", 10, 0.5, 18},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := EffectiveRadius(c.radius, c.hardness); got != c.want {
				t.Errorf("EffectiveRadius(%v, %v) = %v, want %v", c.radius, c.hardness, got, c.want)
			}
		})
	}
}

func TestAlphaDarkenNeverExceedsCeiling(t *testing.T) {
	dst := 0.0
	for i := 0; i < 5; i++ {
		dst = AlphaDarken(dst, 0.5, 0.5)
	}
	if dst != 0.5 {
		t.Errorf("AlphaDarken converged to %v, want exactly ceiling 0.5", dst)
	}
}

func TestAlphaDarkenMonotone(t *testing.T) {
	dst := 0.0
	prev := dst
	for i := 0; i < 10; i++ {
		dst = AlphaDarken(dst, 0.3, 1.0)
		if dst < prev {
			t.Fatalf("alpha decreased: %v -> %v", prev, dst)
		}
		prev = dst
	}
}

func TestAutoRenderScale(t *testing.T) {
	cases := []struct {
		name     string
		mode     RenderScaleMode
		radius   float64
		hardness float64
		textured bool
		want     float64
	}{
		{"off always full", RenderScaleOff, 1000, 10, true, 1.0},
		{"auto large soft", RenderScaleAuto, 400, 40, false, 0.5},
		{"auto large hard stays full", RenderScaleAuto, 400, 90, false, 1.0},
		{"auto large textured always drops", RenderScaleAuto, 400, 90, true, 0.5},
		{"auto small never drops", RenderScaleAuto, 100, 10, true, 1.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := AutoRenderScale(c.mode, 1.0, c.radius, c.hardness, c.textured); got != c.want {
				t.Errorf("AutoRenderScale() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestScaledTextureDimRoundsUp(t *testing.T) {
	if got := ScaledTextureDim(101, 0.5); got != 51 {
		t.Errorf("ScaledTextureDim(101, 0.5) = %d, want 51", got)
	}
}
