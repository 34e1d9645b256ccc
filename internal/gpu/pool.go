package gpu

import "sync"

// BufferPool recycles host storage slabs for the host runtime. Slabs are
// bucketed by power-of-two capacity so a released slab can serve any later
// request that rounds to the same bucket.
type BufferPool struct {
	mu       sync.Mutex
	pools    map[int64][][]byte // capacity -> available slabs, oldest first
	maxBytes int64              // Maximum total bytes to keep pooled (0 = unlimited)
	curBytes int64              // Current pooled bytes
	active   int64              // Bytes handed out and not yet released
	dirty    bool               // Hand out reused slabs without clearing them
	stats    PoolStats
}

// PoolStats tracks buffer pool statistics
type PoolStats struct {
	Allocations int64 // Total allocations
	Reuses      int64 // Slabs reused from pool
	Evictions   int64 // Slabs dropped due to the byte limit
	PoolHits    int64 // Successful pool lookups
	PoolMisses  int64 // Failed pool lookups (allocated new)
}

// NewBufferPool creates a new buffer pool
// maxBytes: maximum memory to keep in pool (0 = unlimited)
func NewBufferPool(maxBytes int64) *BufferPool {
	return &BufferPool{
		pools:    make(map[int64][][]byte),
		maxBytes: maxBytes,
	}
}

// SetDirtyReuse controls whether reused slabs keep their previous contents,
// the way device allocations do.
func (p *BufferPool) SetDirtyReuse(dirty bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dirty = dirty
}

// Allocate returns a slice of length size, reusing a pooled slab when one
// of a suitable capacity is available. The slice is zeroed unless dirty
// reuse is enabled and the slab was reused.
func (p *BufferPool) Allocate(size int64) []byte {
	if size <= 0 {
		return []byte{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Allocations++

	// Check the rounded size and the next bucket up
	poolSize := roundUpPowerOf2(size)
	for checkSize := poolSize; checkSize <= poolSize*2; checkSize *= 2 {
		if slabs := p.pools[checkSize]; len(slabs) > 0 {
			slab := slabs[len(slabs)-1]
			p.pools[checkSize] = slabs[:len(slabs)-1]
			p.curBytes -= checkSize
			p.active += checkSize
			p.stats.Reuses++
			p.stats.PoolHits++

			buf := slab[:size]
			if !p.dirty {
				clear(buf)
			}
			return buf
		}
	}

	p.stats.PoolMisses++
	p.active += poolSize
	return make([]byte, size, poolSize)
}

// Release returns a slab obtained from Allocate to the pool.
func (p *BufferPool) Release(buf []byte) {
	key := int64(cap(buf))
	if key == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.active -= key
	if key != roundUpPowerOf2(key) {
		// Not one of ours
		return
	}

	if p.maxBytes > 0 {
		for p.curBytes+key > p.maxBytes && p.evictOldest() {
		}
		if p.curBytes+key > p.maxBytes {
			p.stats.Evictions++
			return
		}
	}

	p.pools[key] = append(p.pools[key], buf[:key])
	p.curBytes += key
}

// evictOldest drops the oldest slab of the largest bucket. Reports whether
// anything was evicted.
func (p *BufferPool) evictOldest() bool {
	var largest int64
	for size, slabs := range p.pools {
		if len(slabs) > 0 && size > largest {
			largest = size
		}
	}
	if largest == 0 {
		return false
	}
	slabs := p.pools[largest]
	slabs[0] = nil
	p.pools[largest] = slabs[1:]
	p.curBytes -= largest
	p.stats.Evictions++
	return true
}

// Clear empties the pool
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for size := range p.pools {
		delete(p.pools, size)
	}
	p.curBytes = 0
}

// Stats returns current pool statistics
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// MemoryUsage returns current pooled memory, memory handed out and the limit
func (p *BufferPool) MemoryUsage() (pooled, active, max int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.curBytes, p.active, p.maxBytes
}

// roundUpPowerOf2 rounds up to the nearest power of 2
func roundUpPowerOf2(n int64) int64 {
	if n <= 0 {
		return 0
	}

	// Handle small sizes specially for efficiency
	if n <= 256 {
		return 256
	}

	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++

	return n
}
