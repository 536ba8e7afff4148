package hpack

import (
	"fmt"
	"strconv"
	"strings"
)

// Indexing tells the encoder which representation to use for a header, and
// records on decoded headers which representation was seen on the wire.
type Indexing uint8

const (
	// IndexAutomatic references an exact table match when there is one,
	// adds headers whose name the IndexPolicy selects, and sends everything
	// else without indexing.
	IndexAutomatic Indexing = iota
	// IndexExisting references an entry that must already be in the table.
	IndexExisting
	// IndexAddNew sends a literal and adds it to the dynamic table.
	IndexAddNew
	// IndexNone sends a literal without touching the table.
	IndexNone
	// IndexNever sends a literal that intermediaries must not index either.
	IndexNever
	// IndexResize is a dynamic table size update; the new size is the
	// decimal Value of the header.
	IndexResize
)

var indexingNames = [...]string{"automatic", "existing", "add-new", "not-indexed", "never-indexed", "resize"}

func (i Indexing) String() string {
	if int(i) < len(indexingNames) {
		return indexingNames[i]
	}
	return fmt.Sprintf("Indexing(%d)", uint8(i))
}

// Compression selects how a string literal is written.
type Compression uint8

const (
	// CompressAuto uses Huffman coding only when it is strictly shorter.
	CompressAuto Compression = iota
	CompressHuffman
	CompressRaw
)

var compressionNames = [...]string{"auto", "huffman", "raw"}

func (c Compression) String() string {
	if int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

// ParseCompression maps "auto", "huffman" or "raw" to a Compression.
func ParseCompression(s string) (Compression, error) {
	for i, name := range compressionNames {
		if strings.EqualFold(s, name) {
			return Compression(i), nil
		}
	}
	return CompressAuto, fmt.Errorf("unknown compression %q", s)
}

type Header struct {
	Name  string
	Value string

	Indexing         Indexing
	NameCompression  Compression
	ValueCompression Compression
}

// NewHeader lower-cases the name as HTTP/2 requires.
func NewHeader(name, value string) Header {
	return Header{
		Name:  strings.ToLower(name),
		Value: value,
	}
}

// Resize builds the pseudo-header that asks the encoder to emit a dynamic
// table size update.
func Resize(size uint32) Header {
	return Header{
		Value:    strconv.FormatUint(uint64(size), 10),
		Indexing: IndexResize,
	}
}

// Size is the header's dynamic table footprint (RFC 7541 4.1).
func (h Header) Size() int {
	return len(h.Name) + len(h.Value) + entryOverhead
}

func (h Header) IsResize() bool {
	return h.Indexing == IndexResize
}

// Sensitive reports whether the header was, or must be, sent never-indexed.
func (h Header) Sensitive() bool {
	return h.Indexing == IndexNever
}

func (h Header) String() string {
	return h.Name + ": " + h.Value
}

// HeaderList is the ordered header set of one message.
type HeaderList []Header

// Get returns the value of the first header with the given name.
func (hl HeaderList) Get(name string) (string, bool) {
	for _, h := range hl {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

// Size is the RFC 7540 6.5.2 list size: the sum of the entry sizes.
func (hl HeaderList) Size() int {
	n := 0
	for _, h := range hl {
		n += h.Size()
	}
	return n
}

func (hl HeaderList) String() string {
	if len(hl) == 0 {
		return "(nil)"
	}
	var sb strings.Builder
	for _, h := range hl {
		sb.WriteString(h.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
