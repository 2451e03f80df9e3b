package pools

import (
	"sync"
	"sync/atomic"
)

// Buffer tiers for serialized responses
const (
	SmallBufferSize  = 2 * 1024  // status line, headers and a short JSON body
	MediumBufferSize = 8 * 1024  // typical JSON
	LargeBufferSize  = 32 * 1024 // anything above is allocated and dropped
)

// BufferPool hands out byte slices for writing responses in three size tiers.
type BufferPool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool

	smallGets  atomic.Uint64
	mediumGets atomic.Uint64
	largeGets  atomic.Uint64
	puts       atomic.Uint64
	dropped    atomic.Uint64
}

// NewBufferPool creates a new buffer pool
func NewBufferPool() *BufferPool {
	return &BufferPool{
		small:  sync.Pool{New: newBuffer(SmallBufferSize)},
		medium: sync.Pool{New: newBuffer(MediumBufferSize)},
		large:  sync.Pool{New: newBuffer(LargeBufferSize)},
	}
}

func newBuffer(size int) func() any {
	return func() any {
		buf := make([]byte, 0, size)
		return &buf
	}
}

// Get returns an empty buffer with room for at least estimatedSize bytes when
// estimatedSize fits one of the tiers.
func (bp *BufferPool) Get(estimatedSize int) *[]byte {
	switch {
	case estimatedSize <= SmallBufferSize:
		bp.smallGets.Add(1)
		return bp.small.Get().(*[]byte)
	case estimatedSize <= MediumBufferSize:
		bp.mediumGets.Add(1)
		return bp.medium.Get().(*[]byte)
	case estimatedSize <= LargeBufferSize:
		bp.largeGets.Add(1)
		return bp.large.Get().(*[]byte)
	default:
		bp.dropped.Add(1)
		buf := make([]byte, 0, estimatedSize)
		return &buf
	}
}

// Put returns buf to the tier matching its capacity. Buffers that grew past
// the largest tier are left to the GC.
func (bp *BufferPool) Put(buf *[]byte) {
	if buf == nil {
		return
	}
	*buf = (*buf)[:0]

	switch c := cap(*buf); {
	case c > LargeBufferSize:
		bp.dropped.Add(1)
		return
	case c >= LargeBufferSize:
		bp.large.Put(buf)
	case c >= MediumBufferSize:
		bp.medium.Put(buf)
	default:
		bp.small.Put(buf)
	}
	bp.puts.Add(1)
}

// Stats returns buffer pool statistics
func (bp *BufferPool) Stats() BufferStats {
	return BufferStats{
		SmallGets:  bp.smallGets.Load(),
		MediumGets: bp.mediumGets.Load(),
		LargeGets:  bp.largeGets.Load(),
		Puts:       bp.puts.Load(),
		Dropped:    bp.dropped.Load(),
	}
}

// BufferStats contains buffer pool statistics
type BufferStats struct {
	SmallGets  uint64 `json:"small_gets"`
	MediumGets uint64 `json:"medium_gets"`
	LargeGets  uint64 `json:"large_gets"`
	Puts       uint64 `json:"puts"`
	Dropped    uint64 `json:"dropped"`
}

var globalBufferPool = NewBufferPool()

// AcquireBuffer gets a buffer from the global pool
func AcquireBuffer(estimatedSize int) *[]byte {
	return globalBufferPool.Get(estimatedSize)
}

// ReleaseBuffer returns a buffer to the global pool
func ReleaseBuffer(buf *[]byte) {
	globalBufferPool.Put(buf)
}

// GetBufferStats returns statistics for the global buffer pool
func GetBufferStats() BufferStats {
	return globalBufferPool.Stats()
}
