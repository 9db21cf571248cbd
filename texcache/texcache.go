// Package texcache implements the PatternCache/TextureAtlas component
// (spec.md §4.3): a keyed upload cache mapping a pattern id or brush-tip
// fingerprint to a resident GPU texture, with a synchronous fast path for
// already-decoded rasters and an asynchronous base64-PNG decode path.
package texcache

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/LiuYangArt/sutu-sub000/residency"
	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/image/draw"
)

// Entry is one resident cached texture plus its sampler view.
type Entry struct {
	Key     string
	Texture *gpu.Texture
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler
}

// Cache is a keyed upload cache: id -> GPU texture. It tracks which entry is
// "current" (the most recently successfully set()) and evicts via a shared
// residency.Manager, exactly as gogpu-gg's internal/cache.Cache tracks
// tick-based access order but specialized here to own GPU resources.
type Cache struct {
	device   *gpu.Device
	sampler  common.SamplerStagingData
	residency *residency.Manager[string]

	mu      sync.Mutex
	entries map[string]*Entry
	decoded map[string]*common.Raster // already-decoded host rasters awaiting upload
	current string
}

// New creates a Cache backed by device, using samplerDesc for every texture
// it uploads and residencyMgr for LRU eviction.
func New(device *gpu.Device, samplerDesc common.SamplerStagingData, residencyMgr *residency.Manager[string]) *Cache {
	return &Cache{
		device:    device,
		sampler:   samplerDesc,
		residency: residencyMgr,
		entries:   make(map[string]*Entry),
		decoded:   make(map[string]*common.Raster),
	}
}

// StageDecoded registers an already-decoded host raster under key, so a
// subsequent synchronous Set(key) can succeed without decoding.
func (c *Cache) StageDecoded(key string, raster *common.Raster) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoded[key] = raster
}

// Set is the synchronous fast path: it succeeds only if a decoded raster for
// key was already staged via StageDecoded, in which case it uploads and marks
// key current. Returns false (no error) if no decoded raster is staged.
func (c *Cache) Set(key string) (bool, error) {
	c.mu.Lock()
	raster, ok := c.decoded[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := c.upload(key, raster); err != nil {
		return false, err
	}
	c.mu.Lock()
	c.current = key
	c.mu.Unlock()
	return true, nil
}

// SetAsync decodes a base64-encoded PNG into a host raster, then uploads and
// marks key current. Spec.md §4.3 describes this as asynchronous; callers
// wanting non-blocking behavior should invoke this from their own goroutine —
// the method itself is synchronous top to bottom, matching the teacher's own
// preference for explicit, un-hidden control flow over hidden async machinery.
func (c *Cache) SetAsync(key, base64PNG string) error {
	raw, err := base64.StdEncoding.DecodeString(base64PNG)
	if err != nil {
		return fmt.Errorf("texcache: decode base64 for %q: %w", key, err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("texcache: decode PNG for %q: %w", key, err)
	}
	raster := rasterFromImage(img)

	c.mu.Lock()
	c.decoded[key] = raster
	c.mu.Unlock()

	if err := c.upload(key, raster); err != nil {
		return err
	}
	c.mu.Lock()
	c.current = key
	c.mu.Unlock()
	return nil
}

// GetCurrent returns the most recently set entry, or nil if none has been set.
func (c *Cache) GetCurrent() *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == "" {
		return nil
	}
	return c.entries[c.current]
}

// Clear destroys the GPU texture referenced by key and drops the cache entry.
func (c *Cache) Clear(key string) {
	c.mu.Lock()
	delete(c.decoded, key)
	if c.current == key {
		c.current = ""
	}
	c.mu.Unlock()
	c.residency.Release(key)
}

func (c *Cache) upload(key string, raster *common.Raster) error {
	tex, err := c.device.CreateTexture(key, uint32(raster.Width), uint32(raster.Height), wgpu.TextureFormatRGBA8UnormSrgb, 0)
	if err != nil {
		return fmt.Errorf("texcache: create texture for %q: %w", key, err)
	}
	c.device.WriteTexture(tex, raster.Pix, 4)

	sampler, err := c.device.CreateSampler(key+" sampler", c.sampler)
	if err != nil {
		tex.Release()
		return fmt.Errorf("texcache: create sampler for %q: %w", key, err)
	}

	c.mu.Lock()
	if old, ok := c.entries[key]; ok {
		old.Texture.Release()
	}
	entry := &Entry{Key: key, Texture: tex, View: tex.View, Sampler: sampler}
	c.entries[key] = entry
	c.mu.Unlock()

	if err := c.residency.Register(key, tex.ByteSize(), func() {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok {
			e.Texture.Release()
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}); err != nil {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		tex.Release()
		return fmt.Errorf("texcache: register residency for %q: %w", key, err)
	}
	c.residency.Touch(key)
	return nil
}

// rasterFromImage converts an arbitrary decoded image into a tightly packed
// RGBA8 common.Raster, nearest-neighbor resampling is not applied here —
// that's ResampleNearest's job for the render-scale preview path.
func rasterFromImage(img image.Image) *common.Raster {
	b := img.Bounds()
	out := common.NewRaster(b.Dx(), b.Dy())
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	copy(out.Pix, rgba.Pix)
	return out
}

// ResampleNearest upsamples src to width x height using nearest-neighbor
// resampling, per spec.md §4.7/§8 scenario 5's render-scale preview path:
// the accumulator renders at a reduced internal resolution and the display
// path must upsample without introducing new blend artifacts.
func ResampleNearest(src *common.Raster, width, height int) *common.Raster {
	srcImg := &image.RGBA{Pix: src.Pix, Stride: src.Stride, Rect: image.Rect(0, 0, src.Width, src.Height)}
	dstImg := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dstImg, dstImg.Bounds(), srcImg, srcImg.Bounds(), draw.Over, nil)
	out := common.NewRaster(width, height)
	copy(out.Pix, dstImg.Pix)
	return out
}
