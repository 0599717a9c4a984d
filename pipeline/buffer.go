// Package pipeline implements the bounded connection pipeline: acquiring a
// connection slot, driving a peer's connect/discover/read sequence through
// the radio's CentralReader, and guaranteeing every exit path releases its
// resources, per §4.5 of the governing specification.
package pipeline

import (
	"fmt"
	"sync"
)

// BufferPool is a fixed-capacity pool of payload buffers, mirroring the
// original's array-backed buffer pool (§5, "Payload buffer pool — array
// guarded by the pipeline's own mutex"). Acquire fails once every buffer
// is checked out or the requested size exceeds MaxPayloadSize.
type BufferPool struct {
	mu      sync.Mutex
	buffers [][]byte
	inUse   []bool
	maxSize int
}

// NewBufferPool builds a pool of `count` buffers, each maxSize bytes.
func NewBufferPool(count, maxSize int) *BufferPool {
	p := &BufferPool{
		buffers: make([][]byte, count),
		inUse:   make([]bool, count),
		maxSize: maxSize,
	}
	for i := range p.buffers {
		p.buffers[i] = make([]byte, maxSize)
	}
	return p
}

// ErrPoolExhausted is returned by Acquire when every buffer is checked out.
var ErrPoolExhausted = fmt.Errorf("pipeline: payload buffer pool exhausted")

// ErrPayloadTooBig is returned by Acquire when size exceeds the pool's
// per-buffer capacity, or by Handle.Append when a read would overflow the
// checked-out buffer.
var ErrPayloadTooBig = fmt.Errorf("pipeline: payload exceeds buffer capacity")

// Handle is one checked-out buffer; callers must call Release exactly once.
type Handle struct {
	pool *BufferPool
	idx  int
	n    int
}

// Acquire checks out a free buffer able to hold size bytes.
func (p *BufferPool) Acquire(size int) (*Handle, error) {
	if size > p.maxSize {
		return nil, ErrPayloadTooBig
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, used := range p.inUse {
		if !used {
			p.inUse[i] = true
			return &Handle{pool: p, idx: i}, nil
		}
	}
	return nil, ErrPoolExhausted
}

// Append copies b into the handle's buffer, failing with ErrPayloadTooBig
// if it would overflow. A payload whose length exactly equals the
// buffer's capacity succeeds; one byte more fails (§8).
func (h *Handle) Append(b []byte) error {
	buf := h.pool.buffers[h.idx]
	if h.n+len(b) > len(buf) {
		return ErrPayloadTooBig
	}
	copy(buf[h.n:], b)
	h.n += len(b)
	return nil
}

// Bytes returns the data written so far.
func (h *Handle) Bytes() []byte {
	return h.pool.buffers[h.idx][:h.n]
}

// Release returns the buffer to the pool. Safe to call multiple times;
// only the first call has effect, so a pipeline exit path can always call
// Release unconditionally without double-freeing.
func (h *Handle) Release() {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()
	if h.pool.inUse[h.idx] {
		h.pool.inUse[h.idx] = false
		h.n = 0
	}
}
