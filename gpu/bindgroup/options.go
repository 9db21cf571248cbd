package bindgroup

import "github.com/cogentcore/webgpu/wgpu"

// Option is a functional option used to configure a Provider during construction.
type Option func(*provider)

// WithBindGroup sets the bind group for this provider.
func WithBindGroup(bg *wgpu.BindGroup) Option {
	return func(p *provider) {
		p.bindGroup = bg
	}
}

// WithBindGroupLayout sets the bind group layout for this provider.
func WithBindGroupLayout(bgl *wgpu.BindGroupLayout) Option {
	return func(p *provider) {
		p.bindGroupLayout = bgl
	}
}

// WithBuffer sets a buffer for a specific binding index.
func WithBuffer(binding int, buf *wgpu.Buffer) Option {
	return func(p *provider) {
		p.buffers[binding] = buf
	}
}

// WithBuffers sets multiple buffers for this provider using a map of binding indices to buffers.
func WithBuffers(buffers map[int]*wgpu.Buffer) Option {
	return func(p *provider) {
		p.buffers = buffers
	}
}
