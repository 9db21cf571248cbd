package layerrender

import "testing"

func layerStack() []Layer {
	return []Layer{
		{ID: "bg", Visible: true, Opacity: 1, BlendMode: 0, Revision: 1, ContentGen: 1},
		{ID: "mid", Visible: true, Opacity: 0.8, BlendMode: 1, Revision: 2, ContentGen: 3},
		{ID: "active", Visible: true, Opacity: 1, BlendMode: 0, Revision: 1, ContentGen: 1},
		{ID: "top", Visible: true, Opacity: 1, BlendMode: 0, Revision: 1, ContentGen: 1},
	}
}

func TestActiveIndexFindsLayer(t *testing.T) {
	layers := layerStack()
	if idx := activeIndex(layers, "mid"); idx != 1 {
		t.Errorf("activeIndex = %d, want 1", idx)
	}
	if idx := activeIndex(layers, "missing"); idx != -1 {
		t.Errorf("activeIndex(missing) = %d, want -1", idx)
	}
}

func TestStackSignatureIgnoresLayersAboveActive(t *testing.T) {
	layers := layerStack()
	sigBefore := stackSignature(layers, "active")

	layers[3].ContentGen++ // "top" is above "active"; must not affect the signature
	sigAfter := stackSignature(layers, "active")

	if sigBefore != sigAfter {
		t.Errorf("signature changed after editing a layer above active: %q -> %q", sigBefore, sigAfter)
	}
}

func TestStackSignatureChangesOnBelowLayerEdits(t *testing.T) {
	cases := []func(l *Layer){
		func(l *Layer) { l.Revision++ },
		func(l *Layer) { l.ContentGen++ },
		func(l *Layer) { l.Opacity -= 0.1 },
		func(l *Layer) { l.BlendMode = 2 },
	}
	for _, mutate := range cases {
		layers := layerStack()
		before := stackSignature(layers, "active")
		mutate(&layers[1]) // "mid" is below "active"
		after := stackSignature(layers, "active")
		if before == after {
			t.Errorf("signature unchanged after mutating a below-active layer: %q", before)
		}
	}
}

func TestStackSignatureChangesWithDifferentActiveLayer(t *testing.T) {
	layers := layerStack()
	a := stackSignature(layers, "mid")
	b := stackSignature(layers, "active")
	if a == b {
		t.Error("signature should differ when the active layer id differs")
	}
}

func TestStackSignatureSkipsInvisibleBelowLayers(t *testing.T) {
	layers := layerStack()
	withVisible := stackSignature(layers, "active")
	layers[1].Visible = false
	withHidden := stackSignature(layers, "active")
	if withVisible == withHidden {
		t.Error("signature should change when a below layer's visibility changes")
	}
}
