package buffer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorAcrossChunks(t *testing.T) {
	c := NewCursor([]byte("ab"), nil, []byte("cde"), []byte("f"))
	assert.Equal(t, 6, c.Len())

	b, ok := c.Peek()
	require.True(t, ok)
	assert.Equal(t, byte('a'), b)

	c = c.Slice(3)
	b, ok = c.Peek()
	require.True(t, ok)
	assert.Equal(t, byte('d'), b)
	assert.Equal(t, "def", c.String())

	head := c.Head(2)
	assert.Equal(t, 2, head.Len())
	assert.Equal(t, []byte("de"), head.Bytes())

	c = c.Slice(3)
	assert.True(t, c.Empty())
	_, ok = c.Peek()
	assert.False(t, ok)
}

func TestCursorNext(t *testing.T) {
	c := NewCursor([]byte{1}, []byte{2, 3})
	var got []byte
	for {
		b, ok := c.Next()
		if !ok {
			break
		}
		got = append(got, b)
	}
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestCursorHeadLimitsReads(t *testing.T) {
	c := NewCursor([]byte("hello"), []byte("world")).Slice(3).Head(4)
	assert.Equal(t, "lowo", c.String())

	dst := make([]byte, 10)
	assert.Equal(t, 4, c.CopyTo(dst))
	assert.Equal(t, "lowo", string(dst[:4]))

	var spans []string
	c.Each(func(span []byte) { spans = append(spans, string(span)) })
	assert.Equal(t, []string{"lo", "wo"}, spans)
}

func TestCursorSliceDoesNotMutate(t *testing.T) {
	orig := NewCursor([]byte("abc"), []byte("def"))
	_ = orig.Slice(4)
	assert.Equal(t, "abcdef", orig.String())
}

func TestCursorSlicePanicsPastEnd(t *testing.T) {
	c := NewCursor([]byte("ab"))
	assert.Panics(t, func() { c.Slice(3) })
	assert.Panics(t, func() { c.Head(3) })
}

func TestWriterEnsureAdvance(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)

	span := w.Ensure(3)
	require.GreaterOrEqual(t, len(span), 3)
	copy(span, "abc")
	w.Advance(2)
	assert.Equal(t, []byte("ab"), w.Bytes())

	require.NoError(t, w.WriteByte('x'))
	_, err := w.WriteString("yz")
	require.NoError(t, err)
	_, err = w.Write([]byte("!"))
	require.NoError(t, err)
	assert.Equal(t, 6, w.Len())

	require.NoError(t, w.Flush())
	assert.Equal(t, "abxyz!", out.String())
	assert.Equal(t, 0, w.Len())
}

func TestWriterGrowKeepsData(t *testing.T) {
	w := NewWriter(nil)
	big := bytes.Repeat([]byte{0x5a}, 3*minGrow)
	for i := 0; i < 4; i++ {
		_, _ = w.Write(big)
	}
	assert.Equal(t, 12*minGrow, w.Len())
	assert.Equal(t, bytes.Repeat([]byte{0x5a}, 12*minGrow), w.Bytes())
	require.NoError(t, w.Flush())
	assert.Equal(t, 12*minGrow, w.Len())
}

func TestWriterAdvancePastSpanPanics(t *testing.T) {
	w := NewWriter(nil)
	span := w.Ensure(1)
	assert.Panics(t, func() { w.Advance(len(span) + 1) })
}

type failingWriter struct{ n int }

func (f *failingWriter) Write(p []byte) (int, error) {
	return f.n, errors.New("short write")
}

func TestWriterFlushKeepsUnwritten(t *testing.T) {
	w := NewWriter(&failingWriter{n: 2})
	_, _ = w.WriteString("abcd")
	assert.Error(t, w.Flush())
	assert.Equal(t, []byte("cd"), w.Bytes())
}

func TestPoolLeaseRelease(t *testing.T) {
	var p Pool
	l := p.Lease(100)
	assert.Equal(t, 100, l.Len())
	assert.Equal(t, int64(1), p.Outstanding())

	huge := p.Lease(2 << maxClassShift)
	assert.Equal(t, 2<<maxClassShift, len(huge.Bytes()))
	assert.Equal(t, int64(2), p.Outstanding())

	l.Release()
	l.Release()
	huge.Release()
	assert.Equal(t, int64(0), p.Outstanding())

	var nilLease *Lease
	assert.NotPanics(t, func() { nilLease.Release() })
}

func TestClassFor(t *testing.T) {
	assert.Equal(t, 0, classFor(0))
	assert.Equal(t, 0, classFor(64))
	assert.Equal(t, 1, classFor(65))
	assert.Equal(t, 6, classFor(4096))
	assert.Equal(t, maxClassShift-minClassShift, classFor(1<<maxClassShift))
	assert.Equal(t, -1, classFor(1<<maxClassShift+1))
}
