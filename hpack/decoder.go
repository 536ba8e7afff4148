package hpack

import (
	"fmt"

	"github.com/jakegut/gohpack/buffer"
)

// Decoder turns header blocks into header lists. It owns the dynamic table of
// the receiving direction of one connection and must see every block of that
// direction in order.
type Decoder struct {
	table *Table

	allowedMaxSize    int
	maxStringLength   int
	maxHeaderListSize int
}

// NewDecoder returns a decoder whose table starts with the given budget,
// which is also the largest size a size update may ask for.
func NewDecoder(maxTableSize int, pool *buffer.Pool) *Decoder {
	return &Decoder{
		table:          NewTable(maxTableSize, pool),
		allowedMaxSize: maxTableSize,
	}
}

func (d *Decoder) Table() *Table {
	return d.table
}

// SetMaxDynamicTableSize resizes the table directly and makes n the new
// upper bound for size updates.
func (d *Decoder) SetMaxDynamicTableSize(n int) {
	d.allowedMaxSize = n
	d.table.SetMaxSize(n)
}

// SetAllowedMaxDynamicTableSize bounds the sizes the peer may select with a
// size update, typically the SETTINGS_HEADER_TABLE_SIZE we advertised. The
// table itself only shrinks when the peer's update arrives.
func (d *Decoder) SetAllowedMaxDynamicTableSize(n int) {
	d.allowedMaxSize = n
}

// SetMaxStringLength limits individual name and value literals; zero means
// unlimited.
func (d *Decoder) SetMaxStringLength(n int) {
	d.maxStringLength = n
}

// SetMaxHeaderListSize limits the size of a decoded list; zero means
// unlimited.
func (d *Decoder) SetMaxHeaderListSize(n int) {
	d.maxHeaderListSize = n
}

// Close releases the table storage.
func (d *Decoder) Close() {
	d.table.Close()
}

// ReadHeader decodes one header field representation from c. A dynamic table
// size update is applied and returned as a resize header.
func (d *Decoder) ReadHeader(c *buffer.Cursor) (Header, error) {
	first, ok := c.Next()
	if !ok {
		return Header{}, ErrTruncatedInput
	}

	switch {
	case first&0x80 != 0:
		// 6.1 Indexed Header Field
		idx, err := ReadVarint(c, first, 7)
		if err != nil {
			return Header{}, err
		}
		return d.table.Get(idx)
	case first&0x40 != 0:
		// 6.2.1 Literal Header Field with Incremental Indexing
		h, err := d.readLiteral(c, first, 6, IndexAddNew)
		if err != nil {
			return Header{}, err
		}
		d.table.Add(h)
		return h, nil
	case first&0x20 != 0:
		// 6.3 Dynamic Table Size Update
		n, err := ReadVarint(c, first, 5)
		if err != nil {
			return Header{}, err
		}
		if n > uint64(d.allowedMaxSize) {
			return Header{}, fmt.Errorf("%w: %d > %d", ErrTableSizeExceeded, n, d.allowedMaxSize)
		}
		d.table.SetMaxSize(int(n))
		return Resize(uint32(n)), nil
	case first&0x10 != 0:
		// 6.2.3 Literal Header Field Never Indexed
		return d.readLiteral(c, first, 4, IndexNever)
	default:
		// 6.2.2 Literal Header Field without Indexing
		return d.readLiteral(c, first, 4, IndexNone)
	}
}

func (d *Decoder) readLiteral(c *buffer.Cursor, first byte, n uint8, indexing Indexing) (Header, error) {
	h := Header{Indexing: indexing}
	idx, err := ReadVarint(c, first, n)
	if err != nil {
		return Header{}, err
	}

	if idx == 0 {
		name, huffman, err := readString(c, d.maxStringLength)
		if err != nil {
			return Header{}, err
		}
		h.Name = name
		h.NameCompression = compressionOf(huffman)
	} else {
		h.Name, err = d.table.Name(idx)
		if err != nil {
			return Header{}, err
		}
	}

	value, huffman, err := readString(c, d.maxStringLength)
	if err != nil {
		return Header{}, err
	}
	h.Value = value
	h.ValueCompression = compressionOf(huffman)
	return h, nil
}

func compressionOf(huffman bool) Compression {
	if huffman {
		return CompressHuffman
	}
	return CompressRaw
}

// DecodeHeaderList decodes a complete header block. Size updates are applied
// but do not appear in the list.
func (d *Decoder) DecodeHeaderList(c buffer.Cursor) (HeaderList, error) {
	headers := HeaderList{}
	for !c.Empty() {
		if first, _ := c.Peek(); first&0xe0 == 0x20 && len(headers) > 0 {
			return nil, ErrMisplacedSizeUpdate
		}
		h, err := d.ReadHeader(&c)
		if err != nil {
			return nil, err
		}
		if h.IsResize() {
			continue
		}
		headers = append(headers, h)
	}

	if d.maxHeaderListSize > 0 {
		if size := headers.Size(); size > d.maxHeaderListSize {
			return nil, fmt.Errorf("%w: %d > %d", ErrHeaderListTooLarge, size, d.maxHeaderListSize)
		}
	}
	return headers, nil
}

// Decode decodes a header block held in one contiguous slice.
func (d *Decoder) Decode(bs []byte) (HeaderList, error) {
	return d.DecodeHeaderList(buffer.NewCursor(bs))
}
