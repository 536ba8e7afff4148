package hpack

import (
	"github.com/jakegut/gohpack/buffer"
)

const (
	eosSymbol        = 256
	huffmanMinLength = 5
	huffmanMaxLength = 30

	// huffmanChunk is how much writable space the encoder asks the sink for
	// at a time.
	huffmanChunk = 64

	unsetNode = 1<<15 - 1
)

// huffmanTree is the decoding tree flattened into (zero, one) child pairs,
// with node 0 as the root. A positive child is the index of the next internal
// node; a child <= 0 is a leaf holding the negated symbol.
var huffmanTree [256][2]int16

// huffmanJump maps the first five bits of a code straight to the node they
// reach, since no code is shorter than five bits.
var huffmanJump [1 << huffmanMinLength]int16

func init() {
	for i := range huffmanTree {
		huffmanTree[i] = [2]int16{unsetNode, unsetNode}
	}

	next := int16(1)
	for sym := 0; sym <= eosSymbol; sym++ {
		code, length := huffmanCodes[sym], huffmanCodeLen[sym]
		node := int16(0)
		for i := int(length) - 1; i > 0; i-- {
			bit := (code >> uint(i)) & 1
			child := huffmanTree[node][bit]
			if child == unsetNode {
				child = next
				next++
				huffmanTree[node][bit] = child
			}
			node = child
		}
		huffmanTree[node][code&1] = int16(-sym)
	}

	if next != int16(len(huffmanTree)) {
		panic("hpack: huffman tree has the wrong number of nodes")
	}
	for i := range huffmanTree {
		if huffmanTree[i][0] == unsetNode || huffmanTree[i][1] == unsetNode {
			panic("hpack: huffman tree is incomplete")
		}
	}

	for prefix := range huffmanJump {
		node := int16(0)
		for i := huffmanMinLength - 1; i >= 0; i-- {
			node = huffmanTree[node][(prefix>>uint(i))&1]
			if node <= 0 {
				break
			}
		}
		huffmanJump[prefix] = node
	}
}

type bitReader struct {
	c   buffer.Cursor
	acc uint64
	n   uint
}

func (r *bitReader) remaining() int {
	return int(r.n) + 8*r.c.Len()
}

// take returns the next k bits, MSB first. The caller checks remaining.
func (r *bitReader) take(k uint) uint64 {
	for r.n < k {
		b, _ := r.c.Next()
		r.acc = r.acc<<8 | uint64(b)
		r.n += 8
	}
	r.n -= k
	return (r.acc >> r.n) & (1<<k - 1)
}

// HuffmanDecode decodes a complete Huffman-coded string literal.
func HuffmanDecode(c buffer.Cursor) (string, error) {
	out := make([]byte, 0, c.Len()*8/huffmanMinLength)
	r := bitReader{c: c}
	for {
		left := r.remaining()
		if left == 0 {
			break
		}
		if left < huffmanMinLength {
			pad := r.take(uint(left))
			if pad != 1<<uint(left)-1 {
				return "", ErrInvalidHuffmanCode
			}
			break
		}

		code := r.take(huffmanMinLength)
		depth := huffmanMinLength
		node := huffmanJump[code]
		for node > 0 {
			if r.remaining() == 0 {
				// only EOS padding may end the input inside a code
				if depth > 7 || code != 1<<uint(depth)-1 {
					return "", ErrInvalidHuffmanCode
				}
				return string(out), nil
			}
			bit := r.take(1)
			code = code<<1 | bit
			depth++
			if depth > huffmanMaxLength {
				return "", ErrInvalidHuffmanCode
			}
			node = huffmanTree[node][bit]
		}

		sym := -int(node)
		if sym == eosSymbol {
			return "", ErrInvalidHuffmanCode
		}
		out = append(out, byte(sym))
	}
	return string(out), nil
}

// HuffmanEncodedLength returns the number of bytes s occupies once Huffman
// coded.
func HuffmanEncodedLength(s string) int {
	bits := 0
	for i := 0; i < len(s); i++ {
		bits += int(huffmanCodeLen[s[i]])
	}
	return (bits + 7) / 8
}

// WriteHuffman Huffman-codes s into w. The output is produced in chunks
// through Ensure/Advance, so w does not need to be sized up front.
func WriteHuffman(w *buffer.Writer, s string) {
	if len(s) == 0 {
		return
	}
	span := w.Ensure(huffmanChunk)
	pos := 0
	emit := func(b byte) {
		if pos == len(span) {
			w.Advance(pos)
			span = w.Ensure(huffmanChunk)
			pos = 0
		}
		span[pos] = b
		pos++
	}

	var acc uint64
	var n uint
	for i := 0; i < len(s); i++ {
		sym := s[i]
		acc = acc<<huffmanCodeLen[sym] | uint64(huffmanCodes[sym])
		n += uint(huffmanCodeLen[sym])
		for n >= 8 {
			n -= 8
			emit(byte(acc >> n))
		}
	}
	if n > 0 {
		// pad with the most significant bits of EOS
		emit(byte(acc<<(8-n)) | byte(1<<(8-n)-1))
	}
	w.Advance(pos)
}

// AppendHuffman appends the Huffman coding of s to dst.
func AppendHuffman(dst []byte, s string) []byte {
	w := buffer.NewWriter(nil)
	WriteHuffman(w, s)
	return append(dst, w.Bytes()...)
}
