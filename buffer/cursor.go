package buffer

// View is a chunk of bytes owned by whoever produced it.
type View []byte

// Cursor is a read-only window over a sequence of views. Slicing a cursor
// never copies the underlying bytes, so a header block that arrived split over
// several frames can be decoded in place.
type Cursor struct {
	views []View
	off   int // offset into views[0]
	size  int
}

// NewCursor returns a cursor over the given chunks in order. Empty chunks are
// allowed.
func NewCursor(chunks ...[]byte) Cursor {
	c := Cursor{views: make([]View, 0, len(chunks))}
	for _, ch := range chunks {
		if len(ch) == 0 {
			continue
		}
		c.views = append(c.views, View(ch))
		c.size += len(ch)
	}
	return c
}

// Len returns the number of readable bytes.
func (c Cursor) Len() int {
	return c.size
}

// Empty reports whether no bytes remain.
func (c Cursor) Empty() bool {
	return c.size == 0
}

// Peek returns the next byte without consuming it. ok is false at the end of
// the cursor.
func (c Cursor) Peek() (b byte, ok bool) {
	if c.size == 0 {
		return 0, false
	}
	return c.views[0][c.off], true
}

// Next consumes and returns the next byte.
func (c *Cursor) Next() (byte, bool) {
	b, ok := c.Peek()
	if ok {
		*c = c.Slice(1)
	}
	return b, ok
}

// Slice returns the cursor positioned n bytes further. It panics when n is
// larger than Len; callers check the length first.
func (c Cursor) Slice(n int) Cursor {
	if n < 0 || n > c.size {
		panic("buffer: slice out of range")
	}
	c.size -= n
	if c.size == 0 {
		return Cursor{}
	}
	n += c.off
	for n >= len(c.views[0]) {
		n -= len(c.views[0])
		c.views = c.views[1:]
	}
	c.off = n
	return c
}

// Head returns a cursor over the first n bytes.
func (c Cursor) Head(n int) Cursor {
	if n < 0 || n > c.size {
		panic("buffer: head out of range")
	}
	if n == 0 {
		return Cursor{}
	}
	c.size = n
	return c
}

// Each calls fn for every contiguous span of the cursor, in order.
func (c Cursor) Each(fn func(span []byte)) {
	remaining := c.size
	off := c.off
	for _, v := range c.views {
		if remaining == 0 {
			return
		}
		span := v[off:]
		off = 0
		if len(span) > remaining {
			span = span[:remaining]
		}
		fn(span)
		remaining -= len(span)
	}
}

// CopyTo copies as many bytes as fit into dst and returns the count.
func (c Cursor) CopyTo(dst []byte) int {
	n := 0
	c.Each(func(span []byte) {
		n += copy(dst[n:], span)
	})
	return n
}

// Bytes returns the readable bytes. A cursor spanning one view returns a
// subslice of it; otherwise the bytes are copied into a new slice.
func (c Cursor) Bytes() []byte {
	if c.size == 0 {
		return nil
	}
	if first := c.views[0][c.off:]; len(first) >= c.size {
		return first[:c.size]
	}
	bs := make([]byte, c.size)
	c.CopyTo(bs)
	return bs
}

// String returns the readable bytes as a string. The bytes are always copied.
func (c Cursor) String() string {
	if c.size == 0 {
		return ""
	}
	if first := c.views[0][c.off:]; len(first) >= c.size {
		return string(first[:c.size])
	}
	return string(c.Bytes())
}
