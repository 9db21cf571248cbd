// Package tilestore implements the tiled layer storage described in
// spec.md §3/§4: a sparse per-layer map from tile coordinate to GPU texture,
// with tile-rect math and bulk upload from a host raster.
package tilestore

import (
	"fmt"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/LiuYangArt/sutu-sub000/residency"
	"github.com/cogentcore/webgpu/wgpu"
)

// TileSize is the fixed edge length of a tile texture (spec.md glossary:
// "typically 256² or 512²"); 256 keeps single-tile GPU allocations small
// relative to the residency budget's default 512 MiB.
const TileSize = 256

// Coord identifies one tile within a layer's grid.
type Coord struct {
	TX, TY int
}

// residencyKey identifies a tile across every layer, so the residency
// manager's LRU eviction operates over the whole store, not per layer
// (spec.md §3: "residency evicts least-recently-touched tiles across all
// layers").
type residencyKey struct {
	LayerID string
	Coord   Coord
}

// Tile is one resident chunk of a layer: its coordinate, GPU texture/view,
// pixel origin, and dimensions (every tile, edge tiles included, is
// TileSize x TileSize).
type Tile struct {
	Coord         Coord
	Texture       *gpu.Texture
	OriginX       int
	OriginY       int
	Width, Height int
}

// Rect returns the tile's pixel-space rectangle within the layer.
func (t *Tile) Rect() common.Rect {
	return common.Rect{X: t.OriginX, Y: t.OriginY, W: t.Width, H: t.Height}
}

// Store holds every layer's sparse tile map and enforces residency via an
// LRU byte budget shared across all layers.
type Store struct {
	device    *gpu.Device
	residency *residency.Manager[residencyKey]

	layers map[string]map[Coord]*Tile
}

// New creates a Store backed by device, evicting tiles via the shared
// residency manager when over budget.
func New(device *gpu.Device, residencyMgr *residency.Manager[residencyKey]) *Store {
	return &Store{
		device:    device,
		residency: residencyMgr,
		layers:    make(map[string]map[Coord]*Tile),
	}
}

// CoordRange returns every tile coordinate rect intersects, in canvas pixels.
func CoordRange(rect common.Rect) []Coord {
	if rect.IsEmpty() {
		return nil
	}
	minTX := floorDiv(rect.X, TileSize)
	minTY := floorDiv(rect.Y, TileSize)
	maxTX := floorDiv(rect.X+rect.W-1, TileSize)
	maxTY := floorDiv(rect.Y+rect.H-1, TileSize)

	var coords []Coord
	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			coords = append(coords, Coord{TX: tx, TY: ty})
		}
	}
	return coords
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Get returns the tile at coord in layerID, or (nil, false) if not resident.
func (s *Store) Get(layerID string, coord Coord) (*Tile, bool) {
	layer, ok := s.layers[layerID]
	if !ok {
		return nil, false
	}
	t, ok := layer[coord]
	if ok {
		s.residency.Touch(residencyKey{LayerID: layerID, Coord: coord})
	}
	return t, ok
}

// GetOrCreate returns the tile at coord in layerID, creating and registering
// it (cleared to transparent) if it doesn't already exist.
func (s *Store) GetOrCreate(layerID string, coord Coord) (*Tile, error) {
	if t, ok := s.Get(layerID, coord); ok {
		return t, nil
	}

	w, h := TileSize, TileSize
	label := fmt.Sprintf("tile %s (%d,%d)", layerID, coord.TX, coord.TY)
	tex, err := s.device.CreateTexture(label, uint32(w), uint32(h), wgpu.TextureFormatRGBA8UnormSrgb, 0)
	if err != nil {
		return nil, fmt.Errorf("tilestore: create tile texture: %w", err)
	}
	if err := s.device.ClearTexture(tex); err != nil {
		tex.Release()
		return nil, fmt.Errorf("tilestore: clear tile texture: %w", err)
	}

	t := &Tile{
		Coord:   coord,
		Texture: tex,
		OriginX: coord.TX * TileSize,
		OriginY: coord.TY * TileSize,
		Width:   w,
		Height:  h,
	}

	if s.layers[layerID] == nil {
		s.layers[layerID] = make(map[Coord]*Tile)
	}
	s.layers[layerID][coord] = t

	key := residencyKey{LayerID: layerID, Coord: coord}
	if err := s.residency.Register(key, tex.ByteSize(), func() {
		s.evictLocked(layerID, coord)
	}); err != nil {
		delete(s.layers[layerID], coord)
		tex.Release()
		return nil, fmt.Errorf("tilestore: register tile residency: %w", err)
	}

	return t, nil
}

// evictLocked is the residency eviction callback: it releases the tile's GPU
// texture and removes it from the layer map. Named "Locked" to mirror the
// residency package's own convention even though tilestore itself holds no
// separate mutex — the residency manager serializes calls into this callback.
func (s *Store) evictLocked(layerID string, coord Coord) {
	layer, ok := s.layers[layerID]
	if !ok {
		return
	}
	t, ok := layer[coord]
	if !ok {
		return
	}
	t.Texture.Release()
	delete(layer, coord)
}

// Tiles returns every resident tile for layerID that intersects rect.
func (s *Store) Tiles(layerID string, rect common.Rect) []*Tile {
	var out []*Tile
	for _, coord := range CoordRange(rect) {
		if t, ok := s.Get(layerID, coord); ok {
			out = append(out, t)
		}
	}
	return out
}

// UploadRaster bulk-uploads src into layerID's tiles, creating tiles as
// needed, writing only the region of each tile that src covers.
func (s *Store) UploadRaster(layerID string, src *common.Raster) error {
	full := common.Rect{X: 0, Y: 0, W: src.Width, H: src.Height}
	for _, coord := range CoordRange(full) {
		t, err := s.GetOrCreate(layerID, coord)
		if err != nil {
			return err
		}
		region := t.Rect().Intersect(full)
		if region.IsEmpty() {
			continue
		}
		pixels := make([]byte, region.W*region.H*4)
		for row := 0; row < region.H; row++ {
			srcRow := src.At(region.X, region.Y+row)
			copy(pixels[row*region.W*4:(row+1)*region.W*4], srcRow[:region.W*4])
		}
		localRect := common.Rect{X: region.X - t.OriginX, Y: region.Y - t.OriginY, W: region.W, H: region.H}
		s.device.WriteTextureRegion(t.Texture, localRect, pixels, 4)
	}
	return nil
}

// DropLayer releases and removes every tile belonging to layerID.
func (s *Store) DropLayer(layerID string) {
	layer, ok := s.layers[layerID]
	if !ok {
		return
	}
	for coord := range layer {
		s.residency.Release(residencyKey{LayerID: layerID, Coord: coord})
	}
	delete(s.layers, layerID)
}
