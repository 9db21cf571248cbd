// Package pipeline wraps a compiled wgpu render or compute pipeline together
// with the configuration used to build it, keyed by a stable pipeline key for
// caching and lookup.
package pipeline

import (
	"github.com/LiuYangArt/sutu-sub000/gpu/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string

	vertexShader, fragmentShader, computeShader shader.Shader

	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline

	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthBias           int32
	depthBiasSlopeScale float32
	blendEnabled        bool
	cullMode            wgpu.CullMode
	topology            wgpu.PrimitiveTopology
	frontFace           wgpu.FrontFace
	writeMask           wgpu.ColorWriteMask
	blendState          *wgpu.BlendState
}

// Pipeline encapsulates either a render pipeline (vertex + fragment shaders)
// or a compute pipeline (compute shader) along with its configuration state.
type Pipeline interface {
	Type() PipelineType
	PipelineKey() string
	Shader(shaderType shader.ShaderType) shader.Shader

	// Pipeline returns the underlying pipeline object, either *wgpu.RenderPipeline or *wgpu.ComputePipeline.
	Pipeline() any

	DepthTestEnabled() bool
	DepthWriteEnabled() bool
	DepthBias() int32
	DepthBiasSlopeScale() float32
	BlendEnabled() bool
	CullMode() wgpu.CullMode
	Topology() wgpu.PrimitiveTopology
	FrontFace() wgpu.FrontFace
	WriteMask() wgpu.ColorWriteMask
	BlendState() *wgpu.BlendState

	SetRenderPipeline(p *wgpu.RenderPipeline)
	SetComputePipeline(p *wgpu.ComputePipeline)
}

var _ Pipeline = &pipeline{}

// New creates a new Pipeline with sensible render-pipeline defaults (depth
// test/write on, no blend, no culling, triangle list, CCW winding), all
// overridable via opts. Compute pipelines ignore the render-only fields.
func New(pipelineKey string, pipelineType PipelineType, opts ...Option) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		pipelineType:      pipelineType,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		blendEnabled:      false,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType   { return p.pipelineType }
func (p *pipeline) PipelineKey() string  { return p.pipelineKey }

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender:
		return p.renderPipeline
	case PipelineTypeCompute:
		return p.computePipeline
	default:
		return nil
	}
}

func (p *pipeline) DepthTestEnabled() bool           { return p.depthTestEnabled }
func (p *pipeline) DepthWriteEnabled() bool          { return p.depthWriteEnabled }
func (p *pipeline) DepthBias() int32                 { return p.depthBias }
func (p *pipeline) DepthBiasSlopeScale() float32     { return p.depthBiasSlopeScale }
func (p *pipeline) BlendEnabled() bool               { return p.blendEnabled }
func (p *pipeline) CullMode() wgpu.CullMode          { return p.cullMode }
func (p *pipeline) Topology() wgpu.PrimitiveTopology { return p.topology }
func (p *pipeline) FrontFace() wgpu.FrontFace        { return p.frontFace }
func (p *pipeline) WriteMask() wgpu.ColorWriteMask   { return p.writeMask }
func (p *pipeline) BlendState() *wgpu.BlendState     { return p.blendState }

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline)   { p.renderPipeline = rp }
func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) { p.computePipeline = cp }
