package pipelines

import (
	"encoding/binary"
	"math"
)

// The structs below are the compute/composite uniform blocks named in
// spec.md §6's bit-exact contract: parametric dab 112 bytes, textured dab 80
// bytes, dual mask 32 bytes, dual blend 32 bytes, wet edge 32 bytes, layer
// composite 48 bytes, layer blend 16 bytes. Every block's size is a multiple
// of 16 bytes and every vec2<u32>/vec2<f32> pair is kept within one 16-byte
// span, matching std140 layout rules.

func putU32(buf []byte, off int, v uint32) { binary.LittleEndian.PutUint32(buf[off:off+4], v) }
func putF32(buf []byte, off int, v float32) { binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v)) }

// ParametricDabUniform is the 112-byte uniform block for the parametric dab
// pipeline (spec.md §4.4.1).
type ParametricDabUniform struct {
	TileOffsetX, TileOffsetY   uint32
	TileSizeX, TileSizeY       uint32
	CanvasWidth, CanvasHeight  uint32
	DabCount                   uint32
	ColorBlendMode             uint32
	PatternEnable              uint32
	PatternScaleX, PatternScaleY float32
	PatternRotation            float32
	PatternTexelWidth, PatternTexelHeight float32
	NoiseEnable                uint32
	NoiseStrength              float32
	AlphaCeiling               float32
}

// Size returns the packed byte size of ParametricDabUniform.
func (ParametricDabUniform) Size() int { return 112 }

// Marshal packs u into its 112-byte little-endian representation, padded to
// a 16-byte block boundary.
func (u ParametricDabUniform) Marshal() []byte {
	buf := make([]byte, 112)
	putU32(buf, 0, u.TileOffsetX)
	putU32(buf, 4, u.TileOffsetY)
	putU32(buf, 8, u.TileSizeX)
	putU32(buf, 12, u.TileSizeY)
	putU32(buf, 16, u.CanvasWidth)
	putU32(buf, 20, u.CanvasHeight)
	putU32(buf, 24, u.DabCount)
	putU32(buf, 28, u.ColorBlendMode)
	putU32(buf, 32, u.PatternEnable)
	putF32(buf, 40, u.PatternScaleX)
	putF32(buf, 44, u.PatternScaleY)
	putF32(buf, 48, u.PatternRotation)
	putF32(buf, 56, u.PatternTexelWidth)
	putF32(buf, 60, u.PatternTexelHeight)
	putU32(buf, 64, u.NoiseEnable)
	putF32(buf, 68, u.NoiseStrength)
	putF32(buf, 72, u.AlphaCeiling)
	// bytes 36..39 and 52..55 align the vec2 fields to 8 bytes, as the WGSL
	// TileUniform does; bytes 76..111 are reserved padding rounding the block up to 112 bytes
	// (7 x 16-byte blocks), room for the Gaussian erf lookup table's texel
	// size should a future pipeline variant need it.
	return buf
}

// TexturedDabUniform is the 80-byte uniform block for the textured dab
// pipeline (spec.md §4.4.2).
type TexturedDabUniform struct {
	TileOffsetX, TileOffsetY   uint32
	TileSizeX, TileSizeY       uint32
	CanvasWidth, CanvasHeight  uint32
	DabCount                   uint32
	ColorBlendMode             uint32
	PatternEnable              uint32
	PatternScaleX, PatternScaleY float32
	PatternRotation            float32
	PatternTexelWidth, PatternTexelHeight float32
	NoiseEnable                uint32
	NoiseStrength              float32
	AlphaCeiling               float32
}

// Size returns the packed byte size of TexturedDabUniform.
func (TexturedDabUniform) Size() int { return 80 }

// Marshal packs u into its 80-byte little-endian representation.
func (u TexturedDabUniform) Marshal() []byte {
	buf := make([]byte, 80)
	putU32(buf, 0, u.TileOffsetX)
	putU32(buf, 4, u.TileOffsetY)
	putU32(buf, 8, u.TileSizeX)
	putU32(buf, 12, u.TileSizeY)
	putU32(buf, 16, u.CanvasWidth)
	putU32(buf, 20, u.CanvasHeight)
	putU32(buf, 24, u.DabCount)
	putU32(buf, 28, u.ColorBlendMode)
	putU32(buf, 32, u.PatternEnable)
	putF32(buf, 40, u.PatternScaleX)
	putF32(buf, 44, u.PatternScaleY)
	putF32(buf, 48, u.PatternRotation)
	putF32(buf, 56, u.PatternTexelWidth)
	putF32(buf, 60, u.PatternTexelHeight)
	putU32(buf, 64, u.NoiseEnable)
	putF32(buf, 68, u.NoiseStrength)
	putF32(buf, 72, u.AlphaCeiling)
	// bytes 36..39 and 52..55 align the vec2 fields to 8 bytes; 76..79
	// reserved padding, rounds up to 5 x 16-byte blocks.
	return buf
}

// DualMaskUniform is the 32-byte uniform block for the dual mask pipeline
// (spec.md §4.4.3), shared by both the parametric and textured secondary
// accumulator.
type DualMaskUniform struct {
	TileOffsetX, TileOffsetY  uint32
	TileSizeX, TileSizeY      uint32
	CanvasWidth, CanvasHeight uint32
	DabCount                  uint32
	AlphaCeiling              float32
}

// Size returns the packed byte size of DualMaskUniform.
func (DualMaskUniform) Size() int { return 32 }

// Marshal packs u into its 32-byte little-endian representation.
func (u DualMaskUniform) Marshal() []byte {
	buf := make([]byte, 32)
	putU32(buf, 0, u.TileOffsetX)
	putU32(buf, 4, u.TileOffsetY)
	putU32(buf, 8, u.TileSizeX)
	putU32(buf, 12, u.TileSizeY)
	putU32(buf, 16, u.CanvasWidth)
	putU32(buf, 20, u.CanvasHeight)
	putU32(buf, 24, u.DabCount)
	putF32(buf, 28, u.AlphaCeiling)
	return buf
}

// DualBlendUniform is the 32-byte uniform block for the dual blend pipeline
// (spec.md §4.4.4).
type DualBlendUniform struct {
	BBoxOffsetX, BBoxOffsetY  uint32
	BBoxSizeX, BBoxSizeY      uint32
	CanvasWidth, CanvasHeight uint32
	BlendMode                 uint32
	_Pad                      uint32
}

// Size returns the packed byte size of DualBlendUniform.
func (DualBlendUniform) Size() int { return 32 }

// Marshal packs u into its 32-byte little-endian representation.
func (u DualBlendUniform) Marshal() []byte {
	buf := make([]byte, 32)
	putU32(buf, 0, u.BBoxOffsetX)
	putU32(buf, 4, u.BBoxOffsetY)
	putU32(buf, 8, u.BBoxSizeX)
	putU32(buf, 12, u.BBoxSizeY)
	putU32(buf, 16, u.CanvasWidth)
	putU32(buf, 20, u.CanvasHeight)
	putU32(buf, 24, u.BlendMode)
	putU32(buf, 28, u._Pad)
	return buf
}

// WetEdgeUniform is the 32-byte uniform block for the wet-edge display
// filter pipeline (spec.md §4.4.5).
type WetEdgeUniform struct {
	BBoxOffsetX, BBoxOffsetY  uint32
	BBoxSizeX, BBoxSizeY      uint32
	CanvasWidth, CanvasHeight uint32
	Hardness                  float32
	Strength                  float32
}

// Size returns the packed byte size of WetEdgeUniform.
func (WetEdgeUniform) Size() int { return 32 }

// Marshal packs u into its 32-byte little-endian representation.
func (u WetEdgeUniform) Marshal() []byte {
	buf := make([]byte, 32)
	putU32(buf, 0, u.BBoxOffsetX)
	putU32(buf, 4, u.BBoxOffsetY)
	putU32(buf, 8, u.BBoxSizeX)
	putU32(buf, 12, u.BBoxSizeY)
	putU32(buf, 16, u.CanvasWidth)
	putU32(buf, 20, u.CanvasHeight)
	putF32(buf, 24, u.Hardness)
	putF32(buf, 28, u.Strength)
	return buf
}

// LayerCompositeUniform is the 48-byte uniform block used by the
// LayerRenderer's per-tile composite pass when drawing the layer stack
// (spec.md §4.8, and the byte-exact contract in §6).
type LayerCompositeUniform struct {
	TileOffsetX, TileOffsetY  uint32
	TileSizeX, TileSizeY      uint32
	CanvasWidth, CanvasHeight uint32
	Opacity                   float32
	BlendMode                 uint32
	ClipToSelection           uint32
	_Pad                      [3]uint32
}

// Size returns the packed byte size of LayerCompositeUniform.
func (LayerCompositeUniform) Size() int { return 48 }

// Marshal packs u into its 48-byte little-endian representation.
func (u LayerCompositeUniform) Marshal() []byte {
	buf := make([]byte, 48)
	putU32(buf, 0, u.TileOffsetX)
	putU32(buf, 4, u.TileOffsetY)
	putU32(buf, 8, u.TileSizeX)
	putU32(buf, 12, u.TileSizeY)
	putU32(buf, 16, u.CanvasWidth)
	putU32(buf, 20, u.CanvasHeight)
	putF32(buf, 24, u.Opacity)
	putU32(buf, 28, u.BlendMode)
	putU32(buf, 32, u.ClipToSelection)
	putU32(buf, 36, u._Pad[0])
	putU32(buf, 40, u._Pad[1])
	putU32(buf, 44, u._Pad[2])
	return buf
}

// LayerBlendUniform is the 16-byte uniform block for a single layer-to-layer
// blend step (spec.md §6).
type LayerBlendUniform struct {
	BlendMode uint32
	Opacity   float32
	_Pad      [2]uint32
}

// Size returns the packed byte size of LayerBlendUniform.
func (LayerBlendUniform) Size() int { return 16 }

// Marshal packs u into its 16-byte little-endian representation.
func (u LayerBlendUniform) Marshal() []byte {
	buf := make([]byte, 16)
	putU32(buf, 0, u.BlendMode)
	putF32(buf, 4, u.Opacity)
	putU32(buf, 8, u._Pad[0])
	putU32(buf, 12, u._Pad[1])
	return buf
}
