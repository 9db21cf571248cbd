package gpu

import (
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

// TextureID is an opaque identifier assigned to every texture a Device
// creates. Pipeline bind-group caches key on tuples of TextureID rather than
// on debug label strings, so two textures sharing a label (e.g. two tiles
// both labeled "layer-tile") never collide in the cache.
type TextureID uint64

var nextTextureID uint64

func newTextureID() TextureID {
	return TextureID(atomic.AddUint64(&nextTextureID, 1))
}

// Texture wraps a GPU texture resource together with the identity and
// metadata a residency manager and bind-group cache need to track it.
type Texture struct {
	ID     TextureID
	Label  string
	Format wgpu.TextureFormat
	Width  uint32
	Height uint32

	Texture *wgpu.Texture
	View    *wgpu.TextureView
}

// ByteSize returns the approximate GPU byte footprint of this texture,
// assuming a tightly packed single mip level. Used by the residency manager
// to track budget usage.
func (t *Texture) ByteSize() uint64 {
	bpp := uint64(4)
	switch t.Format {
	case wgpu.TextureFormatR8Unorm:
		bpp = 1
	case wgpu.TextureFormatRG8Unorm:
		bpp = 2
	}
	return uint64(t.Width) * uint64(t.Height) * bpp
}

// Release frees the underlying wgpu resources. Safe to call once; the
// Texture must not be used afterward.
func (t *Texture) Release() {
	if t.View != nil {
		t.View.Release()
		t.View = nil
	}
	if t.Texture != nil {
		t.Texture.Release()
		t.Texture = nil
	}
}
