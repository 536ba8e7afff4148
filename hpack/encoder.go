package hpack

import (
	"fmt"
	"strconv"

	"github.com/jakegut/gohpack/buffer"
)

// Encoder turns header lists into header blocks. It owns the dynamic table of
// the sending direction of one connection.
type Encoder struct {
	table  *Table
	policy *IndexPolicy

	// limit is the largest table size the peer's decoder accepts.
	limit int

	// Size changes are announced before the next encoded field. minSize is
	// the smallest size chosen since the last announcement.
	pending bool
	minSize int
	newSize int
}

// NewEncoder returns an encoder with the default indexing policy. maxTableSize
// is both the initial table budget and the limit for later resizes.
func NewEncoder(maxTableSize int, pool *buffer.Pool) *Encoder {
	return &Encoder{
		table:  NewTable(maxTableSize, pool),
		policy: DefaultIndexPolicy(),
		limit:  maxTableSize,
	}
}

func (e *Encoder) Table() *Table {
	return e.table
}

// SetIndexPolicy replaces the policy used for IndexAutomatic headers. A nil
// policy never adds automatic headers to the table.
func (e *Encoder) SetIndexPolicy(p *IndexPolicy) {
	e.policy = p
}

// SetMaxDynamicTableSizeLimit records the largest size the peer accepts,
// usually its SETTINGS_HEADER_TABLE_SIZE. A current budget above the new
// limit is lowered.
func (e *Encoder) SetMaxDynamicTableSizeLimit(n int) {
	e.limit = n
	current := e.table.MaxSize()
	if e.pending {
		current = e.newSize
	}
	if current > n {
		e.SetMaxDynamicTableSize(n)
	}
}

// SetMaxDynamicTableSize changes the table budget, clamped to the limit. The
// change takes effect, and is announced to the peer, before the next encoded
// field.
func (e *Encoder) SetMaxDynamicTableSize(n int) {
	if n > e.limit {
		n = e.limit
	}
	if !e.pending || n < e.minSize {
		e.minSize = n
	}
	e.pending = true
	e.newSize = n
}

func (e *Encoder) flushSizeUpdates(w *buffer.Writer) {
	if !e.pending {
		return
	}
	e.pending = false
	if e.minSize < e.newSize {
		WriteVarint(w, uint64(e.minSize), 0x20, 5)
		e.table.SetMaxSize(e.minSize)
	}
	WriteVarint(w, uint64(e.newSize), 0x20, 5)
	e.table.SetMaxSize(e.newSize)
}

// Close releases the table storage.
func (e *Encoder) Close() {
	e.table.Close()
}

// EncodeHeader writes one header field representation chosen by h.Indexing.
func (e *Encoder) EncodeHeader(w *buffer.Writer, h Header) error {
	e.flushSizeUpdates(w)
	return e.encodeField(w, h)
}

func (e *Encoder) resizeValue(h Header) (int, error) {
	n, err := strconv.ParseUint(h.Value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: table size %q", ErrInvalidEncodeRequest, h.Value)
	}
	if n > uint64(e.limit) {
		return 0, fmt.Errorf("%w: %d > %d", ErrTableSizeExceeded, n, e.limit)
	}
	return int(n), nil
}

func (e *Encoder) encodeField(w *buffer.Writer, h Header) error {
	switch h.Indexing {
	case IndexAutomatic:
		if idx := e.table.Find(h.Name, h.Value); idx != 0 {
			WriteVarint(w, idx, 0x80, 7)
			return nil
		}
		nameIdx := e.table.FindName(h.Name)
		if e.policy.ShouldIndex(h.Name) {
			e.writeLiteral(w, h, nameIdx, 0x40, 6)
			e.table.Add(h)
			return nil
		}
		e.writeLiteral(w, h, nameIdx, 0x00, 4)
	case IndexExisting:
		idx := e.table.Find(h.Name, h.Value)
		if idx == 0 {
			return fmt.Errorf("%w: %q is not in the table", ErrInvalidEncodeRequest, h.String())
		}
		WriteVarint(w, idx, 0x80, 7)
	case IndexAddNew:
		e.writeLiteral(w, h, e.table.FindName(h.Name), 0x40, 6)
		e.table.Add(h)
	case IndexNone:
		e.writeLiteral(w, h, e.table.FindName(h.Name), 0x00, 4)
	case IndexNever:
		e.writeLiteral(w, h, e.table.FindName(h.Name), 0x10, 4)
	case IndexResize:
		n, err := e.resizeValue(h)
		if err != nil {
			return err
		}
		WriteVarint(w, uint64(n), 0x20, 5)
		e.table.SetMaxSize(n)
	default:
		return fmt.Errorf("%w: indexing %v", ErrInvalidEncodeRequest, h.Indexing)
	}
	return nil
}

func (e *Encoder) writeLiteral(w *buffer.Writer, h Header, nameIdx uint64, preamble byte, n uint8) {
	WriteVarint(w, nameIdx, preamble, n)
	if nameIdx == 0 {
		WriteString(w, h.Name, h.NameCompression)
	}
	WriteString(w, h.Value, h.ValueCompression)
}

// EncodeHeaderList writes every header of hl in order. Pending size updates
// are written even when hl is empty. Size updates may only open a block, so
// a resize that follows a field is held back for the next block.
func (e *Encoder) EncodeHeaderList(w *buffer.Writer, hl HeaderList) error {
	e.flushSizeUpdates(w)
	fields := false
	for _, h := range hl {
		if h.IsResize() && fields {
			n, err := e.resizeValue(h)
			if err != nil {
				return err
			}
			e.SetMaxDynamicTableSize(n)
			continue
		}
		if err := e.encodeField(w, h); err != nil {
			return err
		}
		fields = fields || !h.IsResize()
	}
	return nil
}

// Encode returns the header block for headers.
func (e *Encoder) Encode(headers []Header) ([]byte, error) {
	w := buffer.NewWriter(nil)
	if err := e.EncodeHeaderList(w, headers); err != nil {
		return nil, err
	}
	return append([]byte(nil), w.Bytes()...), nil
}
