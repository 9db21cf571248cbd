// Package dab packs individual brush stamp events into the fixed-size GPU
// records the compute pipelines consume (spec.md §3, §6): 48-byte parametric
// and textured dab records, twelve 32-bit floats each, little-endian.
package dab

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parametric is a single parametric-brush dab: position, radius, hardness,
// color, opacity, flow, roundness, and a precomputed rotation (cos,sin).
// 48 bytes packed: twelve float32 fields in this field order.
type Parametric struct {
	X, Y        float32
	Radius      float32
	Hardness    float32
	R, G, B     float32
	DabOpacity  float32
	Flow        float32
	Roundness   float32
	CosTheta    float32
	SinTheta    float32
}

// Size returns the packed byte size of a Parametric dab record.
func (Parametric) Size() int { return 48 }

// Marshal packs d into its 48-byte little-endian GPU representation.
func (d Parametric) Marshal() []byte {
	buf := make([]byte, 48)
	putFloats(buf, d.X, d.Y, d.Radius, d.Hardness, d.R, d.G, d.B, d.DabOpacity, d.Flow, d.Roundness, d.CosTheta, d.SinTheta)
	return buf
}

// Textured is a single textured-brush dab: position, diameter, roundness,
// angle, color, opacity, flow, and the source brush-tip texture's size (used
// by the shader to derive the affine sampling transform).
// 48 bytes packed: twelve float32 fields in this field order.
type Textured struct {
	X, Y         float32
	Diameter     float32
	Roundness    float32
	AngleRadians float32
	R, G, B      float32
	DabOpacity   float32
	Flow         float32
	SrcTexWidth  float32
	SrcTexHeight float32
}

// Size returns the packed byte size of a Textured dab record.
func (Textured) Size() int { return 48 }

// Marshal packs d into its 48-byte little-endian GPU representation.
func (d Textured) Marshal() []byte {
	buf := make([]byte, 48)
	putFloats(buf, d.X, d.Y, d.Diameter, d.Roundness, d.AngleRadians, d.R, d.G, d.B, d.DabOpacity, d.Flow, d.SrcTexWidth, d.SrcTexHeight)
	return buf
}

func putFloats(buf []byte, values ...float32) {
	for i, v := range values {
		bits := math.Float32bits(v)
		off := i * 4
		buf[off] = byte(bits)
		buf[off+1] = byte(bits >> 8)
		buf[off+2] = byte(bits >> 16)
		buf[off+3] = byte(bits >> 24)
	}
}

// ParseHexColor parses a CSS-style "#RRGGBB" string into normalized [0,1]
// float32 components, as used by GPUDabParams' color field (spec.md §6).
func ParseHexColor(hex string) (r, g, b float32, err error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("dab: invalid hex color %q: want 6 hex digits", hex)
	}
	rv, err := strconv.ParseUint(hex[0:2], 16, 8)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("dab: invalid hex color %q: %w", hex, err)
	}
	gv, err := strconv.ParseUint(hex[2:4], 16, 8)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("dab: invalid hex color %q: %w", hex, err)
	}
	bv, err := strconv.ParseUint(hex[4:6], 16, 8)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("dab: invalid hex color %q: %w", hex, err)
	}
	return float32(rv) / 255, float32(gv) / 255, float32(bv) / 255, nil
}
