package buffer

import (
	"errors"
	"io"
)

var ErrNegativeAdvance = errors.New("buffer: advance out of range")

const minGrow = 512

// Writer is an append-only sink. Bytes are staged in memory until Flush hands
// them to the underlying io.Writer. A nil io.Writer makes Flush a no-op and the
// staged bytes stay readable through Bytes.
type Writer struct {
	w   io.Writer
	buf []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Ensure returns a writable span of at least n bytes past the committed data.
// Bytes written into the span become part of the output only after Advance.
func (b *Writer) Ensure(n int) []byte {
	if cap(b.buf)-len(b.buf) < n {
		grow := n
		if grow < minGrow {
			grow = minGrow
		}
		if grow < cap(b.buf) {
			grow = cap(b.buf)
		}
		nb := make([]byte, len(b.buf), len(b.buf)+grow)
		copy(nb, b.buf)
		b.buf = nb
	}
	return b.buf[len(b.buf):cap(b.buf)]
}

// Advance commits n bytes previously written into the span returned by Ensure.
func (b *Writer) Advance(n int) {
	if n < 0 || len(b.buf)+n > cap(b.buf) {
		panic(ErrNegativeAdvance)
	}
	b.buf = b.buf[:len(b.buf)+n]
}

func (b *Writer) Write(p []byte) (int, error) {
	span := b.Ensure(len(p))
	n := copy(span, p)
	b.Advance(n)
	return n, nil
}

func (b *Writer) WriteByte(c byte) error {
	span := b.Ensure(1)
	span[0] = c
	b.Advance(1)
	return nil
}

func (b *Writer) WriteString(s string) (int, error) {
	span := b.Ensure(len(s))
	n := copy(span, s)
	b.Advance(n)
	return n, nil
}

// Len returns the number of staged bytes.
func (b *Writer) Len() int {
	return len(b.buf)
}

// Bytes returns the staged bytes. The slice is valid until the next write.
func (b *Writer) Bytes() []byte {
	return b.buf
}

// Reset drops staged bytes and keeps the allocation.
func (b *Writer) Reset() {
	b.buf = b.buf[:0]
}

// Flush writes the staged bytes to the underlying writer.
func (b *Writer) Flush() error {
	if b.w == nil || len(b.buf) == 0 {
		return nil
	}
	n, err := b.w.Write(b.buf)
	if err != nil {
		b.buf = b.buf[:copy(b.buf, b.buf[n:])]
		return err
	}
	b.buf = b.buf[:0]
	return nil
}
