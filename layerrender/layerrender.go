// Package layerrender implements LayerRenderer and CommitCoordinator
// (spec.md §4.8): composing a layer stack (with an in-progress stroke's
// scratch texture overlaid on the active layer) into a displayable raster,
// and committing a finished stroke's scratch contents permanently into the
// active layer's resident tiles.
package layerrender

import (
	"fmt"
	"strings"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/LiuYangArt/sutu-sub000/gpu/bindgroup"
	"github.com/LiuYangArt/sutu-sub000/gpu/shader"
	"github.com/LiuYangArt/sutu-sub000/pipelines"
	"github.com/LiuYangArt/sutu-sub000/selection"
	"github.com/LiuYangArt/sutu-sub000/tilestore"
	"github.com/cogentcore/webgpu/wgpu"
)

// dynamicUniformStride mirrors stroke/dispatch.go's per-tile uniform offset
// stride: WebGPU's minimum uniform buffer offset alignment on every backend
// this engine targets.
const dynamicUniformStride = 256

// Layer is one entry of the stack the Renderer composites (spec.md §3):
// identity, visibility, opacity, blend mode against the layer below it, a
// stack-order revision counter, and a content generation counter that
// increments independently whenever the layer's pixels change (a commit, a
// clear, a fill) — the two are tracked separately because reordering a
// layer changes Revision without touching its pixels, and painting on a
// layer changes ContentGen without moving it in the stack.
type Layer struct {
	ID         string
	Visible    bool
	Opacity    float64
	BlendMode  common.LayerBlendMode
	Revision   uint64
	ContentGen uint64
}

// activeIndex returns the index of the layer with id activeID in layers, or
// -1 if absent.
func activeIndex(layers []Layer, activeID string) int {
	for i, l := range layers {
		if l.ID == activeID {
			return i
		}
	}
	return -1
}

// stackSignature builds the below-active cache key spec.md §3 describes:
// the active layer's id followed by, for every visible layer stacked below it
// (layers is ordered bottom-to-top), its id|revision|content_gen|opacity|blend_mode.
// Any change to any term changes the signature, which is exactly the
// invalidation condition the cache needs.
func stackSignature(layers []Layer, activeID string) string {
	idx := activeIndex(layers, activeID)
	var b strings.Builder
	b.WriteString(activeID)
	for i := 0; i < idx; i++ {
		l := layers[i]
		if !l.Visible {
			continue
		}
		fmt.Fprintf(&b, "|%s:%d:%d:%.6f:%d", l.ID, l.Revision, l.ContentGen, l.Opacity, l.BlendMode)
	}
	return b.String()
}

// belowCacheEntry holds the composited below-active-layer result, one
// texture per tile coordinate, valid for exactly one stack signature.
type belowCacheEntry struct {
	signature string
	tiles     map[tilestore.Coord]*gpu.Texture
}

// Renderer owns no tile storage of its own: it composites from the shared
// tilestore.Store and selection.Mask the surrounding engine constructs,
// exclusively through the layer_composite/layer_blend compute pipelines
// (spec.md §4.8: "the LayerRenderer is the sole owner of ... tile textures
// and the selection mask" — ownership of the resources, not exclusive
// authorship of every texture, since TileStore and selection.Upload build
// them).
type Renderer struct {
	device          *gpu.Device
	pipelines       *pipelines.Set
	tiles           *tilestore.Store
	selection       *selection.Mask
	below           belowCacheEntry
	placeholder     *gpu.Texture
	transparentTile *gpu.Texture
}

// New creates a Renderer backed by device, compiled pipeline set pset, the
// shared tile store, and the active selection mask (may be nil, meaning no
// selection is active).
func New(device *gpu.Device, pset *pipelines.Set, tiles *tilestore.Store, sel *selection.Mask) *Renderer {
	return &Renderer{device: device, pipelines: pset, tiles: tiles, selection: sel}
}

// SetSelection updates the mask consulted for clip_to_selection compositing,
// and invalidates the below cache since a new selection can change which
// pixels are visible regardless of layer content.
func (r *Renderer) SetSelection(sel *selection.Mask) {
	r.selection = sel
	r.InvalidateBelowCache()
}

// InvalidateBelowCache discards the cached below-active-layer composite,
// forcing the next RenderLayerStackFrame to rebuild it.
func (r *Renderer) InvalidateBelowCache() {
	for _, tex := range r.below.tiles {
		tex.Release()
	}
	r.below = belowCacheEntry{}
}

func (r *Renderer) ensurePlaceholder() (*gpu.Texture, error) {
	if r.placeholder != nil {
		return r.placeholder, nil
	}
	tex, err := r.device.CreateTexture("layerrender placeholder", 1, 1, wgpu.TextureFormatR8Unorm, 0)
	if err != nil {
		return nil, fmt.Errorf("layerrender: create placeholder: %w", err)
	}
	r.device.WriteTexture(tex, []byte{255}, 1)
	r.placeholder = tex
	return tex, nil
}

func (r *Renderer) maskView(clipToSelection bool) (*wgpu.TextureView, error) {
	if clipToSelection && r.selection != nil {
		return r.selection.Texture().View, nil
	}
	placeholder, err := r.ensurePlaceholder()
	if err != nil {
		return nil, err
	}
	return placeholder.View, nil
}

// providerFor realizes a fresh bind-group Provider for key's dispatch,
// evicting whatever was previously cached under dest's texture ID, mirroring
// stroke/dispatch.go's providerFor: every layerrender dispatch's uniform
// buffer is a per-call scratch allocation, so the cached bind group is never
// reused across calls — only its release-on-eviction behavior matters.
func (r *Renderer) providerFor(key pipelines.Key, dest *gpu.Texture, setup func(bindgroup.Provider) error) (bindgroup.Provider, error) {
	cache := r.pipelines.BindGroupCache(key)
	p := bindgroup.New(string(key))
	if err := setup(p); err != nil {
		return nil, err
	}
	pl := r.pipelines.Pipeline(key)
	descriptor := pl.Shader(shader.ShaderTypeCompute).BindGroupLayoutDescriptors()[0]
	if err := r.device.InitBindGroup(p, descriptor, nil, nil); err != nil {
		return nil, fmt.Errorf("layerrender: init bind group for %q: %w", key, err)
	}
	cache.Put(dest.ID, p)
	return p, nil
}

// Destroy releases the renderer's own cached GPU resources (the below cache
// and placeholder mask). It does not touch the tile store or selection mask,
// which the caller owns.
func (r *Renderer) Destroy() {
	r.InvalidateBelowCache()
	if r.placeholder != nil {
		r.placeholder.Release()
		r.placeholder = nil
	}
	if r.transparentTile != nil {
		r.transparentTile.Release()
		r.transparentTile = nil
	}
}
