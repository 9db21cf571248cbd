// Package selection implements SelectionMaskGpu (spec.md §2 item 6): a
// single-channel clipping mask uploaded from a host raster, consulted by the
// LayerRenderer during preview composition and final stroke commit.
package selection

import (
	"fmt"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Mask is a single-channel (red-channel-only) GPU texture holding a
// selection's per-pixel alpha, plus the host-side raster it was built from
// so clipping math (AlphaAt) can run entirely on the CPU without a readback.
type Mask struct {
	device  *gpu.Device
	texture *gpu.Texture
	host    []byte // one byte per pixel, row-major, tightly packed
	width   int
	height  int
}

// Upload builds a Mask from src, a full-canvas single-channel host raster
// (one byte per pixel: 255 = fully selected, 0 = fully excluded). Rows are
// written to the texture tightly packed, without row padding; the Mask keeps
// its own copy of src for CPU-side AlphaAt queries.
func Upload(device *gpu.Device, width, height int, src []byte) (*Mask, error) {
	if len(src) != width*height {
		return nil, fmt.Errorf("selection: source length %d does not match %dx%d", len(src), width, height)
	}

	tex, err := device.CreateTexture("selection mask", uint32(width), uint32(height), wgpu.TextureFormatR8Unorm, 0)
	if err != nil {
		return nil, fmt.Errorf("selection: create mask texture: %w", err)
	}
	device.WriteTexture(tex, src, 1)

	host := make([]byte, len(src))
	copy(host, src)

	return &Mask{device: device, texture: tex, host: host, width: width, height: height}, nil
}

// Full returns a Mask with every pixel fully selected (255), used as the
// default when no selection is active — clipping degenerates to a no-op.
func Full(device *gpu.Device, width, height int) (*Mask, error) {
	src := make([]byte, width*height)
	for i := range src {
		src[i] = 255
	}
	return Upload(device, width, height, src)
}

// Texture returns the GPU texture backing this mask, for binding into the
// compute pipelines that need GPU-side clipping (layerrender's layer_composite pass).
func (m *Mask) Texture() *gpu.Texture { return m.texture }

// AlphaAt returns the selection alpha in [0,1] at pixel (x,y), used by the
// CPU-side preview/commit compositor for anti-aliased clipping
// (spec.md §4.5: "maskAlpha/255 as a factor"). Out-of-bounds returns 0.
func (m *Mask) AlphaAt(x, y int) float64 {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return 0
	}
	return float64(m.host[y*m.width+x]) / 255
}

// ClipRect restricts the per-pixel byte values of dst (a tightly packed RGBA8
// raster covering rect) by multiplying each pixel's alpha channel by this
// mask's alpha at the corresponding canvas coordinate, in place. Used for
// selection-clipped compositing (spec.md §4.5, scenario 6).
func (m *Mask) ClipRect(dst *common.Raster, rect common.Rect) {
	for y := 0; y < rect.H; y++ {
		for x := 0; x < rect.W; x++ {
			px := dst.At(x, y)
			if px == nil {
				continue
			}
			a := float64(px[3]) * m.AlphaAt(rect.X+x, rect.Y+y)
			px[3] = byte(a + 0.5)
		}
	}
}

// Release frees the mask's GPU texture.
func (m *Mask) Release() {
	if m.texture != nil {
		m.texture.Release()
		m.texture = nil
	}
}
