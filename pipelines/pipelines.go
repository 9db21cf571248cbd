package pipelines

import (
	_ "embed"
	"fmt"

	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/LiuYangArt/sutu-sub000/gpu/bindgroup"
	"github.com/LiuYangArt/sutu-sub000/gpu/pipeline"
	"github.com/LiuYangArt/sutu-sub000/gpu/shader"
)

//go:embed shaders/parametric_dab.wgsl
var parametricDabWGSL string

//go:embed shaders/textured_dab.wgsl
var texturedDabWGSL string

//go:embed shaders/dual_mask.wgsl
var dualMaskWGSL string

//go:embed shaders/dual_blend.wgsl
var dualBlendWGSL string

//go:embed shaders/wet_edge.wgsl
var wetEdgeWGSL string

//go:embed shaders/layer_composite.wgsl
var layerCompositeWGSL string

//go:embed shaders/layer_blend.wgsl
var layerBlendWGSL string

// Key identifies one of the compute pipelines spec.md §4.4/§4.8 names.
type Key string

const (
	KeyParametricDab  Key = "parametric_dab"
	KeyTexturedDab    Key = "textured_dab"
	KeyDualMask       Key = "dual_mask"
	KeyDualBlend      Key = "dual_blend"
	KeyWetEdge        Key = "wet_edge"
	KeyLayerComposite Key = "layer_composite"
	KeyLayerBlend     Key = "layer_blend"
)

var wgslSource = map[Key]string{
	KeyParametricDab:  parametricDabWGSL,
	KeyTexturedDab:    texturedDabWGSL,
	KeyDualMask:       dualMaskWGSL,
	KeyDualBlend:      dualBlendWGSL,
	KeyWetEdge:        wetEdgeWGSL,
	KeyLayerComposite: layerCompositeWGSL,
	KeyLayerBlend:     layerBlendWGSL,
}

// Set holds every registered compute pipeline, built once at device startup.
// Grounded on wgpu_renderer_backend.go's own eager pipeline-registration
// pattern at engine init, generalized from one object-drawing pipeline to
// the fixed small set this domain needs.
type Set struct {
	device    *gpu.Device
	pipelines map[Key]pipeline.Pipeline
	// bindGroups caches one Provider per destination texture ID per pipeline,
	// cleared whenever canvas size or render scale changes (spec.md §4.4).
	bindGroups map[Key]*bindgroup.Cache[gpu.TextureID]
}

// NewSet compiles and registers every compute pipeline against device.
func NewSet(device *gpu.Device) (*Set, error) {
	s := &Set{
		device:     device,
		pipelines:  make(map[Key]pipeline.Pipeline),
		bindGroups: make(map[Key]*bindgroup.Cache[gpu.TextureID]),
	}
	for key, src := range wgslSource {
		sh := shader.New(string(key), shader.ShaderTypeCompute, src)
		p := pipeline.New(string(key), pipeline.PipelineTypeCompute, pipeline.WithComputeShader(sh))
		if err := device.RegisterComputePipeline(p); err != nil {
			return nil, fmt.Errorf("pipelines: register %q: %w", key, err)
		}
		s.pipelines[key] = p
		s.bindGroups[key] = bindgroup.NewCache[gpu.TextureID]()
	}
	return s, nil
}

// Pipeline returns the compiled pipeline for key.
func (s *Set) Pipeline(key Key) pipeline.Pipeline { return s.pipelines[key] }

// BindGroupCache returns key's bind-group cache, keyed by a single
// representative texture ID (callers typically key by the destination
// texture, since source/dest pairing is 1:1 per ping-pong buffer).
func (s *Set) BindGroupCache(key Key) *bindgroup.Cache[gpu.TextureID] { return s.bindGroups[key] }

// InvalidateBindGroups clears every pipeline's bind-group cache, called
// whenever canvas size or render scale changes and referenced textures may
// have been recreated (spec.md §4.4, §4.5 "Shared-resource policy").
func (s *Set) InvalidateBindGroups() {
	for _, cache := range s.bindGroups {
		cache.Clear()
	}
}

// DispatchTiles runs pipeline key once per tile in tiles, reusing provider
// with a dynamic uniform offset per tile (tileIndex * uniformStride) and a
// fixed storage offset (batchOffset), per spec.md §4.4's dispatch shape.
func (s *Set) DispatchTiles(key Key, provider bindgroup.Provider, tiles []Tile, uniformStride uint64, batchOffset uint32) error {
	if len(tiles) > MaxTileCount {
		return fmt.Errorf("pipelines: %d tiles exceeds the %d-tile dispatch limit", len(tiles), MaxTileCount)
	}
	p := s.pipelines[key]
	if p == nil {
		return fmt.Errorf("pipelines: unknown pipeline %q", key)
	}
	if err := s.device.BeginComputeFrame(); err != nil {
		return fmt.Errorf("pipelines: begin compute frame for %q: %w", key, err)
	}
	for i, tile := range tiles {
		offsets := []uint32{uint32(uint64(i) * uniformStride), batchOffset}
		s.device.DispatchCompute(p, provider, tile.WorkgroupCount, offsets)
	}
	s.device.EndComputeFrame()
	return nil
}
