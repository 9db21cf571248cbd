// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds RGBA pixel data for a texture binding pending GPU upload.
// This is primarily used in the BindGroupProvider to stage texture data before creating the GPU texture and bind group.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Width uint32
	// Height is the height of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// This is primarily used in the BindGroupProvider to stage sampler data before creating the GPU sampler and bind group.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// Compare specifies the comparison function for comparison samplers, used in shadow mapping and similar techniques.
	Compare wgpu.CompareFunction
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering, which can improve texture quality at oblique viewing angles.
	MaxAnisotropy uint16
}

// Raster is a host-resident RGBA8 pixel buffer, 4 bytes per pixel, row-major,
// stride bytes per row (stride may exceed Width*4 when sourced from a GPU readback).
type Raster struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
}

// NewRaster allocates a tightly-packed Raster (Stride == Width*4) cleared to transparent black.
func NewRaster(width, height int) *Raster {
	return &Raster{
		Pix:    make([]byte, width*height*4),
		Width:  width,
		Height: height,
		Stride: width * 4,
	}
}

// At returns the RGBA bytes for pixel (x,y). Out-of-bounds coordinates return nil.
func (r *Raster) At(x, y int) []byte {
	if r == nil || x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return nil
	}
	o := y*r.Stride + x*4
	return r.Pix[o : o+4 : o+4]
}

// Rect is an axis-aligned integer rectangle, half-open on [X, X+W) x [Y, Y+H).
type Rect struct {
	X, Y, W, H int
}

// IsEmpty reports whether the rectangle covers zero area.
func (r Rect) IsEmpty() bool {
	return r.W <= 0 || r.H <= 0
}

// Union returns the smallest rectangle containing both r and o. An empty
// operand is ignored; unioning two empty rectangles yields an empty rectangle.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.X+r.W, o.X+o.W)
	y1 := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Intersect returns the overlapping region of r and o, or an empty rectangle
// if they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.X+r.W, o.X+o.W)
	y1 := min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Expand grows the rectangle by n pixels on every side.
func (r Rect) Expand(n int) Rect {
	return Rect{X: r.X - n, Y: r.Y - n, W: r.W + 2*n, H: r.H + 2*n}
}

// Clamp restricts the rectangle to fit within [0,0,w,h], producing an empty
// rectangle if there is no remaining overlap.
func (r Rect) Clamp(w, h int) Rect {
	return r.Intersect(Rect{X: 0, Y: 0, W: w, H: h})
}

// Scale multiplies the rectangle's origin and extent by s, rounding outward so
// the scaled rectangle always fully covers the original at the new scale.
func (r Rect) Scale(s float64) Rect {
	if r.IsEmpty() {
		return Rect{}
	}
	x0 := int(float64(r.X) * s)
	y0 := int(float64(r.Y) * s)
	x1 := int(ceilf64(float64(r.X+r.W) * s))
	y1 := int(ceilf64(float64(r.Y+r.H) * s))
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func ceilf64(v float64) float64 {
	i := float64(int64(v))
	if v > i {
		return i + 1
	}
	return i
}
