package texcache

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/LiuYangArt/sutu-sub000/common"
)

func encodeTestPNG(t *testing.T, w, h int, fill color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestRasterFromImageDecodesPixels(t *testing.T) {
	b64 := encodeTestPNG(t, 2, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	raster := rasterFromImage(img)
	if raster.Width != 2 || raster.Height != 2 {
		t.Fatalf("raster dims = %dx%d, want 2x2", raster.Width, raster.Height)
	}
	px := raster.At(0, 0)
	if px[0] != 10 || px[1] != 20 || px[2] != 30 || px[3] != 255 {
		t.Errorf("At(0,0) = %v, want [10 20 30 255]", px)
	}
}

func TestResampleNearestPreservesSolidColor(t *testing.T) {
	src := common.NewRaster(2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			px := src.At(x, y)
			px[0], px[1], px[2], px[3] = 100, 150, 200, 255
		}
	}
	dst := ResampleNearest(src, 8, 8)
	if dst.Width != 8 || dst.Height != 8 {
		t.Fatalf("dst dims = %dx%d, want 8x8", dst.Width, dst.Height)
	}
	px := dst.At(4, 4)
	if px[0] != 100 || px[1] != 150 || px[2] != 200 || px[3] != 255 {
		t.Errorf("At(4,4) after upsample = %v, want [100 150 200 255]", px)
	}
}

func TestResampleNearestDownscale(t *testing.T) {
	src := common.NewRaster(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			px := src.At(x, y)
			px[3] = 255
		}
	}
	dst := ResampleNearest(src, 2, 2)
	if dst.Width != 2 || dst.Height != 2 {
		t.Fatalf("dst dims = %dx%d, want 2x2", dst.Width, dst.Height)
	}
}
