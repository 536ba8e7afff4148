package hpack

import (
	"math"

	"github.com/jakegut/gohpack/buffer"
)

// maxContinuations is the number of full 7-bit groups a prefixed integer may
// carry before the final group, which then may only hold a single bit
// (9*7 + 1 = 64 bits).
const maxContinuations = 9

func prefixMask(n uint8) uint64 {
	if n < 1 || n > 8 {
		panic("hpack: prefix width must be between 1 and 8")
	}
	return 1<<n - 1
}

// ReadVarint decodes an RFC 7541 5.1 integer whose first byte, already
// consumed, is first. Continuation bytes are taken from c.
func ReadVarint(c *buffer.Cursor, first byte, n uint8) (uint64, error) {
	mask := prefixMask(n)
	v := uint64(first) & mask
	if v < mask {
		return v, nil
	}

	var acc uint64
	for i := 0; i < maxContinuations; i++ {
		b, ok := c.Next()
		if !ok {
			return 0, ErrTruncatedInput
		}
		acc |= uint64(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return acc + mask, nil
		}
	}

	b, ok := c.Peek()
	if !ok {
		return 0, ErrTruncatedInput
	}
	if b > 1 {
		return 0, ErrIntegerOverflow
	}
	*c = c.Slice(1)
	acc |= uint64(b) << (7 * maxContinuations)
	if acc > math.MaxUint64-mask {
		return 0, ErrIntegerOverflow
	}
	return acc + mask, nil
}

// ReadPrefixed consumes the first byte and the integer that follows it.
func ReadPrefixed(c *buffer.Cursor, n uint8) (first byte, v uint64, err error) {
	first, ok := c.Next()
	if !ok {
		return 0, 0, ErrTruncatedInput
	}
	v, err = ReadVarint(c, first, n)
	return first, v, err
}

// AppendVarint appends v with an n-bit prefix. The bits of preamble above the
// prefix carry the representation flags.
func AppendVarint(dst []byte, v uint64, preamble byte, n uint8) []byte {
	mask := prefixMask(n)
	preamble &^= byte(mask)
	if v < mask {
		return append(dst, preamble|byte(v))
	}
	dst = append(dst, preamble|byte(mask))
	v -= mask
	for v >= 0x80 {
		dst = append(dst, byte(v&0x7f)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// WriteVarint writes v with an n-bit prefix to w.
func WriteVarint(w *buffer.Writer, v uint64, preamble byte, n uint8) {
	var scratch [11]byte
	w.Write(AppendVarint(scratch[:0], v, preamble, n))
}
