package dab

import (
	"math"
	"testing"

	"github.com/LiuYangArt/sutu-sub000/common"
)

func TestParametricMarshalSize(t *testing.T) {
	d := Parametric{X: 1, Y: 2, Radius: 3, Hardness: 1, R: 1, G: 0, B: 0, DabOpacity: 1, Flow: 1, Roundness: 1, CosTheta: 1, SinTheta: 0}
	b := d.Marshal()
	if len(b) != 48 {
		t.Fatalf("Marshal() length = %d, want 48", len(b))
	}
	if d.Size() != 48 {
		t.Fatalf("Size() = %d, want 48", d.Size())
	}
	// first four bytes should decode back to X=1
	got := math.Float32frombits(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
	if got != 1 {
		t.Errorf("decoded X = %v, want 1", got)
	}
}

func TestTexturedMarshalSize(t *testing.T) {
	d := Textured{X: 5, Y: 5, Diameter: 10, Roundness: 1, AngleRadians: 0, R: 1, G: 1, B: 1, DabOpacity: 1, Flow: 1, SrcTexWidth: 64, SrcTexHeight: 64}
	if len(d.Marshal()) != 48 {
		t.Fatalf("Marshal() length = %d, want 48", len(d.Marshal()))
	}
}

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		hex              string
		r, g, b          float32
		wantErr          bool
	}{
		{"#FF0000", 1, 0, 0, false},
		{"00FF00", 0, 1, 0, false},
		{"#0000FF", 0, 0, 1, false},
		{"#ZZZZZZ", 0, 0, 0, true},
		{"#FFF", 0, 0, 0, true},
	}
	for _, c := range cases {
		t.Run(c.hex, func(t *testing.T) {
			r, g, b, err := ParseHexColor(c.hex)
			if (err != nil) != c.wantErr {
				t.Fatalf("ParseHexColor(%q) err = %v, wantErr %v", c.hex, err, c.wantErr)
			}
			if c.wantErr {
				return
			}
			if r != c.r || g != c.g || b != c.b {
				t.Errorf("ParseHexColor(%q) = (%v,%v,%v), want (%v,%v,%v)", c.hex, r, g, b, c.r, c.g, c.b)
			}
		})
	}
}

func TestInstanceBufferBoundingBoxUnion(t *testing.T) {
	ib := NewInstanceBuffer[Parametric](nil, "test")
	ib.Push(Parametric{}, common.Rect{X: 0, Y: 0, W: 4, H: 4})
	ib.Push(Parametric{}, common.Rect{X: 10, Y: 10, W: 4, H: 4})
	got := ib.BoundingBox()
	if got.X != 0 || got.Y != 0 || got.W != 14 || got.H != 14 {
		t.Errorf("BoundingBox() = %+v", got)
	}
	if ib.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", ib.Pending())
	}
	ib.Clear()
	if ib.Pending() != 0 {
		t.Errorf("Pending() after Clear = %d, want 0", ib.Pending())
	}
}
