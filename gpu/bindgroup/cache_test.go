package bindgroup

import "testing"

type fakeKey struct {
	pipeline string
	textures [2]uint64
}

func TestCachePutGet(t *testing.T) {
	c := NewCache[fakeKey]()
	p := New("dab-tile")
	key := fakeKey{pipeline: "parametric", textures: [2]uint64{1, 2}}

	c.Put(key, p)

	got, ok := c.Get(key)
	if !ok {
		t.Fatalf("expected cache hit for %v", key)
	}
	if got != p {
		t.Fatalf("Get returned a different provider than was Put")
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheDistinctKeysDoNotAlias(t *testing.T) {
	c := NewCache[fakeKey]()
	pA := New("layer-tile")
	pB := New("layer-tile")

	keyA := fakeKey{pipeline: "compose", textures: [2]uint64{5, 6}}
	keyB := fakeKey{pipeline: "compose", textures: [2]uint64{7, 8}}

	c.Put(keyA, pA)
	c.Put(keyB, pB)

	gotA, _ := c.Get(keyA)
	gotB, _ := c.Get(keyB)
	if gotA == gotB {
		t.Fatalf("two distinct texture-id keys aliased to the same provider despite sharing a label")
	}
}

func TestCacheEvict(t *testing.T) {
	c := NewCache[fakeKey]()
	key := fakeKey{pipeline: "parametric", textures: [2]uint64{1, 1}}
	c.Put(key, New("x"))

	c.Evict(key)

	if _, ok := c.Get(key); ok {
		t.Fatalf("expected cache miss after Evict")
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after Evict", c.Len())
	}
}
