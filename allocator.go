package mxpack

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

const (
	// DEFAULT_MAX_ALLOCATOR_CAPACITY bounds auxiliary buffer requests and,
	// in effect, the maximum UTF-8 string byte length (1 MiB).
	DEFAULT_MAX_ALLOCATOR_CAPACITY = 1 << 20

	// Size classes are multiples of allocGranularity with a small floor,
	// so released buffers of similar sizes land in the same free list.
	allocGranularity = 1024
	allocFloor       = 64
)

// sizeClass maps a requested capacity to the capacity actually allocated.
func sizeClass(minCapacity int) int {
	if minCapacity <= allocFloor {
		return allocFloor
	}
	return Roundup(minCapacity, allocGranularity)
}

// UnpooledAllocator returns a fresh buffer for every request. Release is
// a no-op, which makes the allocator stateless and trivially safe for
// concurrent use.
type UnpooledAllocator struct {
	max int
}

var _ BufferAllocator = (*UnpooledAllocator)(nil)

// NewUnpooledAllocator creates an allocator that refuses requests above
// maxCapacity. A non-positive maxCapacity selects the 1 MiB default.
func NewUnpooledAllocator(maxCapacity int) *UnpooledAllocator {
	if maxCapacity <= 0 {
		maxCapacity = DEFAULT_MAX_ALLOCATOR_CAPACITY
	}
	return &UnpooledAllocator{max: maxCapacity}
}

func (a *UnpooledAllocator) ByteBuffer(minCapacity int) ([]byte, error) {
	if minCapacity > a.max {
		return nil, &CapacityError{Requested: minCapacity, Max: a.max}
	}
	return make([]byte, minCapacity), nil
}

func (a *UnpooledAllocator) Release(buf []byte) {} // nothing to do

func (a *UnpooledAllocator) Close() error { return nil } // nothing to do

// PooledAllocator recycles released buffers through a size-segregated
// free list. The free list is internally synchronized; the allocator is
// safe for concurrent use.
type PooledAllocator struct {
	max    int
	pools  *xsync.Map[int, *sync.Pool]
	closed atomic.Bool
}

var _ BufferAllocator = (*PooledAllocator)(nil)

// NewPooledAllocator creates a pooling allocator that refuses requests
// above maxCapacity. A non-positive maxCapacity selects the 1 MiB default.
func NewPooledAllocator(maxCapacity int) *PooledAllocator {
	if maxCapacity <= 0 {
		maxCapacity = DEFAULT_MAX_ALLOCATOR_CAPACITY
	}
	return &PooledAllocator{max: maxCapacity, pools: xsync.NewMap[int, *sync.Pool]()}
}

func (a *PooledAllocator) ByteBuffer(minCapacity int) ([]byte, error) {
	if minCapacity > a.max {
		return nil, &CapacityError{Requested: minCapacity, Max: a.max}
	}
	class := sizeClass(minCapacity)
	if a.closed.Load() {
		return make([]byte, class), nil
	}
	pool, _ := a.pools.LoadOrCompute(class, func() (*sync.Pool, bool) {
		return &sync.Pool{New: func() any {
			buf := make([]byte, class)
			return &buf
		}}, false
	})
	return *pool.Get().(*[]byte), nil
}

func (a *PooledAllocator) Release(buf []byte) {
	if a.closed.Load() {
		return
	}
	// Only buffers this allocator handed out come back here; anything
	// whose capacity is not a size class is dropped on the floor.
	class := cap(buf)
	pool, ok := a.pools.Load(class)
	if !ok {
		return
	}
	full := buf[:class]
	pool.Put(&full)
}

// Close discards the free list. The allocator keeps working afterwards
// but behaves like an unpooled one.
func (a *PooledAllocator) Close() error {
	if a.closed.CompareAndSwap(false, true) {
		a.pools.Clear()
	}
	return nil
}
