package buffer

import (
	"sync"
	"sync/atomic"
)

const (
	minClassShift = 6  // 64 bytes
	maxClassShift = 20 // 1 MiB
)

// Pool hands out byte buffers in power-of-two size classes. Requests larger
// than the biggest class are allocated directly and dropped on release.
type Pool struct {
	classes     [maxClassShift - minClassShift + 1]sync.Pool
	outstanding int64
}

var defaultPool Pool

// DefaultPool returns the process-wide pool.
func DefaultPool() *Pool {
	return &defaultPool
}

// Lease is an exclusively owned buffer. It must be released exactly once.
type Lease struct {
	data  []byte
	class int
	pool  *Pool
}

func classFor(size int) int {
	shift := minClassShift
	for (1<<shift) < size && shift <= maxClassShift {
		shift++
	}
	if shift > maxClassShift {
		return -1
	}
	return shift - minClassShift
}

// Lease returns a buffer with exactly size usable bytes. The contents are not
// zeroed.
func (p *Pool) Lease(size int) *Lease {
	atomic.AddInt64(&p.outstanding, 1)
	class := classFor(size)
	if class < 0 {
		return &Lease{data: make([]byte, size), class: -1, pool: p}
	}
	if v := p.classes[class].Get(); v != nil {
		buf := v.(*[]byte)
		return &Lease{data: (*buf)[:size], class: class, pool: p}
	}
	buf := make([]byte, 1<<(class+minClassShift))
	return &Lease{data: buf[:size], class: class, pool: p}
}

// Outstanding returns the number of leases not yet released.
func (p *Pool) Outstanding() int64 {
	return atomic.LoadInt64(&p.outstanding)
}

// Bytes returns the leased span.
func (l *Lease) Bytes() []byte {
	return l.data
}

// Len returns the leased size.
func (l *Lease) Len() int {
	return len(l.data)
}

// Release returns the buffer to its pool. Calling Release on a nil lease is a
// no-op.
func (l *Lease) Release() {
	if l == nil || l.pool == nil {
		return
	}
	p := l.pool
	l.pool = nil
	atomic.AddInt64(&p.outstanding, -1)
	if l.class >= 0 {
		buf := l.data[:cap(l.data)]
		p.classes[l.class].Put(&buf)
	}
	l.data = nil
}
