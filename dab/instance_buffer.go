package dab

import (
	"fmt"

	"github.com/LiuYangArt/sutu-sub000/common"
	"github.com/LiuYangArt/sutu-sub000/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// MaxDabsPerBatch is the compute shader's fixed shared-memory slab size
// (spec.md §4.4): callers must never flush more than this many dabs in one
// dispatch. stamp_dab's auto-flush-at-64 policy keeps batches well under it.
const MaxDabsPerBatch = 128

// record is satisfied by Parametric and Textured.
type record interface {
	Size() int
	Marshal() []byte
}

// InstanceBuffer is a CPU staging area for one dab variant: it accumulates
// packed records, tracks a running bounding box in canvas space, and flushes
// the staged bytes to a growable GPU storage buffer in one write.
type InstanceBuffer[T record] struct {
	device *gpu.Device
	label  string

	pending  []T
	bbox     common.Rect
	bboxSet  bool

	buf      *wgpu.Buffer
	capacity int // in records
}

// NewInstanceBuffer creates an empty InstanceBuffer.
func NewInstanceBuffer[T record](device *gpu.Device, label string) *InstanceBuffer[T] {
	return &InstanceBuffer[T]{device: device, label: label}
}

// Push appends a dab and expands the running bounding box by its
// strokemath.EffectiveRadius-derived footprint. Callers pass the already
// computed bounding rect for this dab (strokemath owns the radius math; this
// package only accumulates it) so InstanceBuffer stays independent of the
// dab's concrete shape math.
func (ib *InstanceBuffer[T]) Push(d T, footprint common.Rect) {
	ib.pending = append(ib.pending, d)
	if !ib.bboxSet {
		ib.bbox = footprint
		ib.bboxSet = true
	} else {
		ib.bbox = ib.bbox.Union(footprint)
	}
}

// Pending returns the number of staged (not yet flushed) dabs.
func (ib *InstanceBuffer[T]) Pending() int { return len(ib.pending) }

// BoundingBox returns the running bounding box of all staged dabs.
func (ib *InstanceBuffer[T]) BoundingBox() common.Rect { return ib.bbox }

// Clear discards all staged dabs without uploading.
func (ib *InstanceBuffer[T]) Clear() {
	ib.pending = ib.pending[:0]
	ib.bboxSet = false
	ib.bbox = common.Rect{}
}

// Flush uploads the pending bytes to the GPU buffer (growing it, doubling
// capacity, if needed) and resets staging. Returns the buffer handle and the
// number of dabs flushed. Rejects (without truncating) if pending exceeds
// MaxDabsPerBatch, per spec.md §4.4/§5's hard shared-memory limit.
func (ib *InstanceBuffer[T]) Flush() (*wgpu.Buffer, int, error) {
	count := len(ib.pending)
	if count == 0 {
		return ib.buf, 0, nil
	}
	if count > MaxDabsPerBatch {
		return nil, 0, fmt.Errorf("dab: %d pending dabs exceeds the %d-dab shared-memory limit", count, MaxDabsPerBatch)
	}

	recordSize := ib.pending[0].Size()
	data := make([]byte, 0, count*recordSize)
	for _, d := range ib.pending {
		data = append(data, d.Marshal()...)
	}

	if ib.buf == nil || ib.capacity < count {
		newCapacity := max(count, ib.capacity*2)
		if newCapacity < 1 {
			newCapacity = MaxDabsPerBatch
		}
		if ib.buf != nil {
			ib.buf.Release()
		}
		buf, err := ib.device.Raw().CreateBuffer(&wgpu.BufferDescriptor{
			Label: ib.label + " storage buffer",
			Size:  uint64(newCapacity * recordSize),
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("dab: grow instance buffer: %w", err)
		}
		ib.buf = buf
		ib.capacity = newCapacity
	}

	ib.device.Queue().WriteBuffer(ib.buf, 0, data)
	ib.Clear()
	return ib.buf, count, nil
}

// Release frees the GPU buffer, if allocated.
func (ib *InstanceBuffer[T]) Release() {
	if ib.buf != nil {
		ib.buf.Release()
		ib.buf = nil
	}
}
