package pipelines

import "testing"

func TestUniformSizesMatchSpec(t *testing.T) {
	cases := []struct {
		name string
		want int
		got  int
	}{
		{"ParametricDabUniform", 112, ParametricDabUniform{}.Size()},
		{"TexturedDabUniform", 80, TexturedDabUniform{}.Size()},
		{"DualMaskUniform", 32, DualMaskUniform{}.Size()},
		{"DualBlendUniform", 32, DualBlendUniform{}.Size()},
		{"WetEdgeUniform", 32, WetEdgeUniform{}.Size()},
		{"LayerCompositeUniform", 48, LayerCompositeUniform{}.Size()},
		{"LayerBlendUniform", 16, LayerBlendUniform{}.Size()},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s.Size() = %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestUniformMarshalLengthsMatchSize(t *testing.T) {
	if got := len(ParametricDabUniform{DabCount: 3}.Marshal()); got != 112 {
		t.Errorf("ParametricDabUniform.Marshal() length = %d, want 112", got)
	}
	if got := len(TexturedDabUniform{DabCount: 3}.Marshal()); got != 80 {
		t.Errorf("TexturedDabUniform.Marshal() length = %d, want 80", got)
	}
	if got := len(DualMaskUniform{}.Marshal()); got != 32 {
		t.Errorf("DualMaskUniform.Marshal() length = %d, want 32", got)
	}
	if got := len(DualBlendUniform{}.Marshal()); got != 32 {
		t.Errorf("DualBlendUniform.Marshal() length = %d, want 32", got)
	}
	if got := len(WetEdgeUniform{}.Marshal()); got != 32 {
		t.Errorf("WetEdgeUniform.Marshal() length = %d, want 32", got)
	}
	if got := len(LayerCompositeUniform{}.Marshal()); got != 48 {
		t.Errorf("LayerCompositeUniform.Marshal() length = %d, want 48", got)
	}
	if got := len(LayerBlendUniform{}.Marshal()); got != 16 {
		t.Errorf("LayerBlendUniform.Marshal() length = %d, want 16", got)
	}
}

func TestWetEdgeUniformRoundTrip(t *testing.T) {
	u := WetEdgeUniform{BBoxOffsetX: 1, BBoxOffsetY: 2, BBoxSizeX: 3, BBoxSizeY: 4, CanvasWidth: 5, CanvasHeight: 6, Hardness: 0.65, Strength: 1.8}
	b := u.Marshal()
	if got := putU32Get(b, 0); got != 1 {
		t.Errorf("BBoxOffsetX round-trip = %d, want 1", got)
	}
	if got := putU32Get(b, 20); got != 6 {
		t.Errorf("CanvasHeight round-trip = %d, want 6", got)
	}
}

func putU32Get(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}
