// Package shader parses WGSL source into the CPU-side descriptors a Device
// needs to build pipelines: entry points, vertex buffer layouts, workgroup
// size, and bind-group layouts. The reflection logic (wgsl_parser*.go) is
// WGSL-structural and shader-content-agnostic; it doesn't know anything about
// stroke accumulation, tiles, or dabs.
package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies whether a shader is a render shader or a compute shader.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexLayouts              map[int][]wgpu.VertexBufferLayout
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
}

// Shader exposes a loaded and reflected WGSL shader: its key, source, entry
// point, bind-group layout descriptors, vertex buffer layouts, and workgroup
// size, needed for pipeline creation and resource wiring.
type Shader interface {
	Key() string
	Source() string

	BindGroupLayoutDescriptor(bindingKey int) wgpu.BindGroupLayoutDescriptor
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor
	BindGroupVarName(group, binding int) string
	BindGroupFromVarName(group int, varName string) (int, bool)
	BindGroupVarNames() map[int]map[int]string

	VertexLayout(key int) []wgpu.VertexBufferLayout
	VertexLayouts() map[int][]wgpu.VertexBufferLayout

	EntryPoint() string
	WorkgroupSize() [3]uint32
	Module() *wgpu.ShaderModuleDescriptor
	ShaderType() ShaderType
}

var _ Shader = &shader{}

// New reflects WGSL source into a Shader. Source is provided directly
// (typically from a //go:embed asset next to the pipeline that owns it)
// rather than read from a path, since every pipeline's WGSL ships inside the
// binary.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and pipeline labels
//   - shaderType: the type of shader (vertex, fragment or compute)
//   - source: the raw WGSL source text
//
// Returns:
//   - Shader: a new Shader instance with its descriptors parsed from source
func New(key string, shaderType ShaderType, source string) Shader {
	if source == "" {
		panic(fmt.Sprintf("shader: %s must have non-empty source", key))
	}
	s := &shader{
		key:                        key,
		source:                     source,
		shaderType:                 shaderType,
		bindGroupLayoutDescriptors: make(map[int]wgpu.BindGroupLayoutDescriptor),
		bindingVarNames:            make(map[int]map[int]string),
		vertexLayouts:              make(map[int][]wgpu.VertexBufferLayout),
		workGroupSize:              [3]uint32{0, 0, 0},
	}
	s.parseSource()
	return s
}

func (s *shader) Key() string    { return s.key }
func (s *shader) Source() string { return s.source }

func (s *shader) VertexLayout(key int) []wgpu.VertexBufferLayout {
	return s.vertexLayouts[key]
}

func (s *shader) VertexLayouts() map[int][]wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) EntryPoint() string { return s.entryPoint }

func (s *shader) WorkgroupSize() [3]uint32 { return s.workGroupSize }

func (s *shader) BindGroupLayoutDescriptor(bindingKey int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[bindingKey]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	if s.bindingVarNames[group] == nil {
		return -1, false
	}
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) BindGroupVarNames() map[int]map[int]string {
	return s.bindingVarNames
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor { return s.module }

func (s *shader) ShaderType() ShaderType { return s.shaderType }

// parseSource builds the shader module descriptor, parses the entry point
// name, and extracts layout metadata appropriate for the shader type. Vertex
// shaders get vertex buffer layouts parsed. Compute shaders get workgroup
// size parsed. All shader types get bind group layout descriptors parsed.
func (s *shader) parseSource() {
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	s.entryPoint = parseEntryPoint(s.source, s.shaderType)
	if s.shaderType == ShaderTypeVertex {
		s.vertexLayouts = parseVertexLayouts(s.source)
	}
	if s.shaderType == ShaderTypeCompute {
		s.workGroupSize = parseWorkgroupSize(s.source)
	}
	var visibility wgpu.ShaderStage
	switch s.shaderType {
	case ShaderTypeVertex:
		visibility = wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		visibility = wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		visibility = wgpu.ShaderStageCompute
	default:
		visibility = wgpu.ShaderStageNone
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(s.source, visibility)
}
