// Package bindgroup wraps a GPU bind group together with the buffers,
// texture views and samplers that back it, and a generic cache keyed by a
// caller-supplied comparable identifier rather than a debug label string.
//
// The teacher renderer this package is adapted from cached bind groups by
// label, which silently collides whenever two distinct resources share a
// label (e.g. two tiles both labeled "layer-tile"). Every texture here
// instead carries a gpu.TextureID assigned at creation, and callers build
// cache keys out of those IDs.
package bindgroup

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// provider is the unexported implementation of Provider.
type provider struct {
	label string

	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout
	buffers         map[int]*wgpu.Buffer
	textureViews    map[int]*wgpu.TextureView
	samplers        map[int]*wgpu.Sampler
}

// Provider describes the GPU resources backing a single bind group: the
// buffers, texture views and samplers at each binding index, plus the
// realized bind group and its layout. Compute pipelines in this engine never
// issue vertex-pulling draw calls, so unlike the renderer this is adapted
// from, Provider carries no vertex/index buffer fields.
type Provider interface {
	// Release releases all GPU resources held by this provider.
	Release()

	Label() string

	BindGroup() *wgpu.BindGroup
	BindGroupLayout() *wgpu.BindGroupLayout

	Buffer(binding int) *wgpu.Buffer
	Buffers() map[int]*wgpu.Buffer

	TextureView(binding int) *wgpu.TextureView
	TextureViews() map[int]*wgpu.TextureView

	Sampler(binding int) *wgpu.Sampler
	Samplers() map[int]*wgpu.Sampler

	SetBindGroup(bg *wgpu.BindGroup)
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)
	SetBuffer(binding int, buf *wgpu.Buffer)
	SetBuffers(buffers map[int]*wgpu.Buffer)
	SetTextureView(binding int, tv *wgpu.TextureView)
	SetTextureViews(textureViews map[int]*wgpu.TextureView)
	SetSampler(binding int, s *wgpu.Sampler)
	SetSamplers(samplers map[int]*wgpu.Sampler)
}

var _ Provider = &provider{}

// New creates a new Provider with the given options.
func New(label string, options ...Option) Provider {
	p := &provider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *provider) Label() string                           { return p.label }
func (p *provider) BindGroup() *wgpu.BindGroup               { return p.bindGroup }
func (p *provider) BindGroupLayout() *wgpu.BindGroupLayout   { return p.bindGroupLayout }
func (p *provider) Buffer(binding int) *wgpu.Buffer          { return p.buffers[binding] }
func (p *provider) Buffers() map[int]*wgpu.Buffer            { return p.buffers }
func (p *provider) TextureView(binding int) *wgpu.TextureView { return p.textureViews[binding] }
func (p *provider) TextureViews() map[int]*wgpu.TextureView  { return p.textureViews }
func (p *provider) Sampler(binding int) *wgpu.Sampler        { return p.samplers[binding] }
func (p *provider) Samplers() map[int]*wgpu.Sampler          { return p.samplers }

func (p *provider) SetBindGroup(bg *wgpu.BindGroup)             { p.bindGroup = bg }
func (p *provider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) { p.bindGroupLayout = bgl }

func (p *provider) SetBuffer(binding int, buf *wgpu.Buffer) {
	if p.buffers == nil {
		p.buffers = make(map[int]*wgpu.Buffer)
	}
	p.buffers[binding] = buf
}

func (p *provider) SetBuffers(buffers map[int]*wgpu.Buffer) { p.buffers = buffers }

func (p *provider) SetTextureView(binding int, tv *wgpu.TextureView) {
	if p.textureViews == nil {
		p.textureViews = make(map[int]*wgpu.TextureView)
	}
	p.textureViews[binding] = tv
}

func (p *provider) SetTextureViews(textureViews map[int]*wgpu.TextureView) {
	p.textureViews = textureViews
}

func (p *provider) SetSampler(binding int, s *wgpu.Sampler) {
	if p.samplers == nil {
		p.samplers = make(map[int]*wgpu.Sampler)
	}
	p.samplers[binding] = s
}

func (p *provider) SetSamplers(samplers map[int]*wgpu.Sampler) { p.samplers = samplers }

func (p *provider) Release() {
	for i, tv := range p.textureViews {
		if tv != nil {
			tv.Release()
			delete(p.textureViews, i)
		}
	}
	for i, s := range p.samplers {
		if s != nil {
			s.Release()
			delete(p.samplers, i)
		}
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
			delete(p.buffers, i)
		}
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}
