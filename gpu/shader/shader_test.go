package shader

import "testing"

const testComputeWGSL = `
struct TileUniform {
    bboxOrigin: vec2<u32>,
    bboxSize: vec2<u32>,
};

@group(0) @binding(0) var<uniform> tile: TileUniform;
@group(0) @binding(1) var destTex: texture_storage_2d<rgba8unorm, write>;
@group(0) @binding(2) var srcTex: texture_2d<f32>;
@group(0) @binding(3) var srcSampler: sampler;

@compute @workgroup_size(8, 8, 1)
fn cs_main(@builtin(global_invocation_id) gid: vec3<u32>) {
}
`

func TestNewComputeShaderReflection(t *testing.T) {
	s := New("parametric-dab", ShaderTypeCompute, testComputeWGSL)

	if got := s.EntryPoint(); got != "cs_main" {
		t.Errorf("EntryPoint() = %q, want %q", got, "cs_main")
	}
	if got := s.WorkgroupSize(); got != [3]uint32{8, 8, 1} {
		t.Errorf("WorkgroupSize() = %v, want [8 8 1]", got)
	}

	descs := s.BindGroupLayoutDescriptors()
	desc, ok := descs[0]
	if !ok {
		t.Fatalf("expected bind group 0 to be present")
	}
	if len(desc.Entries) != 4 {
		t.Fatalf("expected 4 entries in group 0, got %d", len(desc.Entries))
	}
}

func TestWorkgroupSizeDefaultsToOnes(t *testing.T) {
	if got := parseWorkgroupSize("@compute fn main() {}"); got != [3]uint32{1, 1, 1} {
		t.Errorf("parseWorkgroupSize() = %v, want [1 1 1]", got)
	}
}

func TestRoundUpAlign(t *testing.T) {
	cases := []struct {
		alignment, value, want uint64
	}{
		{16, 0, 0},
		{16, 1, 16},
		{16, 16, 16},
		{16, 17, 32},
		{256, 100, 256},
	}
	for _, c := range cases {
		if got := roundUpAlign(c.alignment, c.value); got != c.want {
			t.Errorf("roundUpAlign(%d, %d) = %d, want %d", c.alignment, c.value, got, c.want)
		}
	}
}
