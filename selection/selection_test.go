package selection

import (
	"testing"

	"github.com/LiuYangArt/sutu-sub000/common"
)

func newTestMask(width, height int, host []byte) *Mask {
	return &Mask{width: width, height: height, host: host}
}

func TestAlphaAtInBounds(t *testing.T) {
	host := []byte{255, 0, 128, 64}
	m := newTestMask(2, 2, host)
	if got := m.AlphaAt(0, 0); got != 1 {
		t.Errorf("AlphaAt(0,0) = %v, want 1", got)
	}
	if got := m.AlphaAt(1, 0); got != 0 {
		t.Errorf("AlphaAt(1,0) = %v, want 0", got)
	}
	if got := m.AlphaAt(0, 1); got != 128.0/255 {
		t.Errorf("AlphaAt(0,1) = %v, want %v", got, 128.0/255)
	}
}

func TestAlphaAtOutOfBounds(t *testing.T) {
	m := newTestMask(2, 2, make([]byte, 4))
	cases := [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 2}}
	for _, c := range cases {
		if got := m.AlphaAt(c[0], c[1]); got != 0 {
			t.Errorf("AlphaAt(%d,%d) = %v, want 0", c[0], c[1], got)
		}
	}
}

func TestClipRectFullySelectedLeavesAlphaUnchanged(t *testing.T) {
	host := make([]byte, 4)
	for i := range host {
		host[i] = 255
	}
	m := newTestMask(2, 2, host)

	raster := common.NewRaster(2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			px := raster.At(x, y)
			px[3] = 200
		}
	}
	m.ClipRect(raster, common.Rect{X: 0, Y: 0, W: 2, H: 2})
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if px := raster.At(x, y); px[3] != 200 {
				t.Errorf("At(%d,%d) alpha = %d, want 200", x, y, px[3])
			}
		}
	}
}

func TestClipRectHalfSelectedZeroesExcludedHalf(t *testing.T) {
	// left column selected, right column excluded
	host := []byte{255, 0, 255, 0}
	m := newTestMask(2, 2, host)

	raster := common.NewRaster(2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			px := raster.At(x, y)
			px[3] = 200
		}
	}
	m.ClipRect(raster, common.Rect{X: 0, Y: 0, W: 2, H: 2})
	if px := raster.At(0, 0); px[3] != 200 {
		t.Errorf("At(0,0) alpha = %d, want 200", px[3])
	}
	if px := raster.At(1, 0); px[3] != 0 {
		t.Errorf("At(1,0) alpha = %d, want 0", px[3])
	}
}
