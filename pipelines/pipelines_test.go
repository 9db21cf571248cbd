package pipelines

import (
	"testing"

	"github.com/LiuYangArt/sutu-sub000/gpu/shader"
)

func TestEmbeddedShadersReflectCorrectly(t *testing.T) {
	for key, src := range wgslSource {
		t.Run(string(key), func(t *testing.T) {
			if src == "" {
				t.Fatalf("empty embedded WGSL source for %q", key)
			}
			sh := shader.New(string(key), shader.ShaderTypeCompute, src)
			if sh.EntryPoint() != "cs_main" {
				t.Errorf("EntryPoint() = %q, want cs_main", sh.EntryPoint())
			}
			if got := sh.WorkgroupSize(); got != ([3]uint32{8, 8, 1}) {
				t.Errorf("WorkgroupSize() = %v, want [8 8 1]", got)
			}
			if len(sh.BindGroupLayoutDescriptors()) == 0 {
				t.Errorf("BindGroupLayoutDescriptors() is empty for %q", key)
			}
		})
	}
}

func TestAllPipelineKeysHaveSource(t *testing.T) {
	keys := []Key{KeyParametricDab, KeyTexturedDab, KeyDualMask, KeyDualBlend, KeyWetEdge, KeyLayerComposite, KeyLayerBlend}
	for _, k := range keys {
		if _, ok := wgslSource[k]; !ok {
			t.Errorf("missing WGSL source for pipeline key %q", k)
		}
	}
}
