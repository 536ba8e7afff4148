package hpack

import (
	"fmt"

	"github.com/jakegut/gohpack/buffer"
)

const huffmanFlag = 0x80

// ReadString reads a length-prefixed string literal (RFC 7541 5.2).
func ReadString(c *buffer.Cursor) (s string, huffman bool, err error) {
	return readString(c, 0)
}

// readString is ReadString with a length limit; max <= 0 means no limit.
func readString(c *buffer.Cursor, max int) (string, bool, error) {
	first, n, err := ReadPrefixed(c, 7)
	if err != nil {
		return "", false, err
	}
	huffman := first&huffmanFlag != 0
	if n > uint64(c.Len()) {
		return "", huffman, ErrTruncatedInput
	}
	if max > 0 && n > uint64(max) {
		return "", huffman, fmt.Errorf("%w: %d > %d", ErrStringTooLong, n, max)
	}

	lit := c.Head(int(n))
	*c = c.Slice(int(n))
	if !huffman {
		return lit.String(), false, nil
	}
	s, err := HuffmanDecode(lit)
	if err != nil {
		return "", true, err
	}
	if max > 0 && len(s) > max {
		return "", true, fmt.Errorf("%w: decoded %d > %d", ErrStringTooLong, len(s), max)
	}
	return s, true, nil
}

// WriteString writes s as a string literal using the given compression.
func WriteString(w *buffer.Writer, s string, mode Compression) {
	switch mode {
	case CompressHuffman:
		WriteVarint(w, uint64(HuffmanEncodedLength(s)), huffmanFlag, 7)
		WriteHuffman(w, s)
	case CompressRaw:
		WriteVarint(w, uint64(len(s)), 0, 7)
		w.WriteString(s)
	default:
		if n := HuffmanEncodedLength(s); n < len(s) {
			WriteVarint(w, uint64(n), huffmanFlag, 7)
			WriteHuffman(w, s)
			return
		}
		WriteVarint(w, uint64(len(s)), 0, 7)
		w.WriteString(s)
	}
}
