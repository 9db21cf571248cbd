// Package pingpong implements the double-buffered stroke accumulator
// described in spec.md §4.1: two textures of one caller-chosen format with
// source/dest roles that swap after every compute flush, honoring the
// hardware rule that a single pass may never read and write the same
// texture.
package pingpong

import (
	"fmt"
	"math"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// accumulatorUsage is shared by every texture a Buffer owns: sampled by the
// compute shaders, written by storage-texture dispatches, cleared via a
// render pass, and copied rect-by-rect between roles.
const accumulatorUsage = wgpu.TextureUsageRenderAttachment

// Buffer is a pair of same-format textures (plus a lazily allocated
// display texture) with swappable source/dest roles.
type Buffer struct {
	device *gpu.Device
	format wgpu.TextureFormat
	label  string

	a, b    *gpu.Texture
	sourceIsA bool

	display *gpu.Texture

	logicalW, logicalH int
	scale              float64
}

// New allocates a Buffer at the given logical dimensions and render scale.
// format is any storage-writable format, e.g. wgpu.TextureFormatRGBA16Float
// for the stroke accumulator or wgpu.TextureFormatR8Unorm for the dual mask.
func New(device *gpu.Device, label string, format wgpu.TextureFormat, logicalW, logicalH int, scale float64) (*Buffer, error) {
	buf := &Buffer{device: device, format: format, label: label, sourceIsA: true}
	if err := buf.Resize(logicalW, logicalH, scale); err != nil {
		return nil, err
	}
	return buf, nil
}

// Source returns the texture compute pipelines read from.
func (p *Buffer) Source() *gpu.Texture {
	if p.sourceIsA {
		return p.a
	}
	return p.b
}

// Dest returns the texture compute pipelines write to.
func (p *Buffer) Dest() *gpu.Texture {
	if p.sourceIsA {
		return p.b
	}
	return p.a
}

// Swap exchanges the source/dest roles.
func (p *Buffer) Swap() {
	p.sourceIsA = !p.sourceIsA
}

// TextureSize returns the current texture-space (post-render-scale) dimensions.
func (p *Buffer) TextureSize() (w, h int) {
	return p.a.Width, p.a.Height
}

// LogicalSize returns the canvas-space dimensions (pre-render-scale).
func (p *Buffer) LogicalSize() (w, h int) {
	return p.logicalW, p.logicalH
}

// Scale returns the current render scale.
func (p *Buffer) Scale() float64 { return p.scale }

// CopyRect copies source→dest over rect (given in logical/canvas-space
// pixels), scaled by the current render scale and clamped to texture
// bounds, per spec.md §4.1.
func (p *Buffer) CopyRect(rect common.Rect) error {
	if rect.W <= 0 || rect.H <= 0 {
		return nil
	}
	scaled := rect.Scale(p.scale).Clamp(p.a.Width, p.a.Height)
	if scaled.IsEmpty() {
		return nil
	}
	return p.device.CopyTextureRegion(p.Source(), p.Dest(), scaled)
}

// CopySourceToDest performs a whole-texture copy from source to dest.
func (p *Buffer) CopySourceToDest() error {
	w, h := p.TextureSize()
	return p.device.CopyTextureRegion(p.Source(), p.Dest(), common.Rect{X: 0, Y: 0, W: w, H: h})
}

// Clear clears both textures (and the display texture, if allocated) to
// (0,0,0,0) via a render pass.
func (p *Buffer) Clear() error {
	if err := p.device.ClearTexture(p.a); err != nil {
		return fmt.Errorf("pingpong: clear A: %w", err)
	}
	if err := p.device.ClearTexture(p.b); err != nil {
		return fmt.Errorf("pingpong: clear B: %w", err)
	}
	if p.display != nil {
		if err := p.device.ClearTexture(p.display); err != nil {
			return fmt.Errorf("pingpong: clear display: %w", err)
		}
	}
	return nil
}

// Resize releases both textures and reallocates at ceil(w*scale) x
// ceil(h*scale), implicitly clearing. The display texture, if it existed, is
// released and must be re-requested via EnsureDisplay.
func (p *Buffer) Resize(logicalW, logicalH int, scale float64) error {
	if p.a != nil {
		p.a.Release()
	}
	if p.b != nil {
		p.b.Release()
	}
	if p.display != nil {
		p.display.Release()
		p.display = nil
	}

	p.logicalW, p.logicalH, p.scale = logicalW, logicalH, scale
	texW := uint32(math.Ceil(float64(logicalW) * scale))
	texH := uint32(math.Ceil(float64(logicalH) * scale))
	if texW < 1 {
		texW = 1
	}
	if texH < 1 {
		texH = 1
	}

	a, err := p.device.CreateTexture(p.label+" A", texW, texH, p.format, accumulatorUsage)
	if err != nil {
		return fmt.Errorf("pingpong: create A: %w", err)
	}
	b, err := p.device.CreateTexture(p.label+" B", texW, texH, p.format, accumulatorUsage)
	if err != nil {
		a.Release()
		return fmt.Errorf("pingpong: create B: %w", err)
	}
	p.a, p.b, p.sourceIsA = a, b, true

	return p.Clear()
}

// EnsureDisplay lazily allocates the display texture used by the wet-edge
// pass, same dimensions as the accumulator. Never written in the same pass
// that reads it.
func (p *Buffer) EnsureDisplay() (*gpu.Texture, error) {
	if p.display != nil {
		return p.display, nil
	}
	w, h := p.TextureSize()
	tex, err := p.device.CreateTexture(p.label+" display", uint32(w), uint32(h), p.format, accumulatorUsage)
	if err != nil {
		return nil, fmt.Errorf("pingpong: create display texture: %w", err)
	}
	if err := p.device.ClearTexture(tex); err != nil {
		tex.Release()
		return nil, fmt.Errorf("pingpong: clear display texture: %w", err)
	}
	p.display = tex
	return p.display, nil
}

// Display returns the display texture, or nil if EnsureDisplay was never called.
func (p *Buffer) Display() *gpu.Texture { return p.display }

// Release releases all textures owned by this Buffer.
func (p *Buffer) Release() {
	if p.a != nil {
		p.a.Release()
		p.a = nil
	}
	if p.b != nil {
		p.b.Release()
		p.b = nil
	}
	if p.display != nil {
		p.display.Release()
		p.display = nil
	}
}
