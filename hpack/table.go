package hpack

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/jakegut/gohpack/buffer"
)

const (
	// DefaultMaxTableSize is the SETTINGS_HEADER_TABLE_SIZE initial value.
	DefaultMaxTableSize = 4096

	entryOverhead = 32
)

// Every stored entry starts with a 32-byte header: four little-endian uint32
// fields followed by zero padding. Name bytes and value bytes follow, so an
// entry occupies exactly its RFC 7541 size.
const (
	offNameLen   = 0
	offValueLen  = 4
	offNameHash  = 8
	offValueHash = 12
	offReserved  = 16
)

type entryHeader struct {
	nameLen, valueLen   int
	nameHash, valueHash uint32
}

func (e entryHeader) size() int {
	return entryOverhead + e.nameLen + e.valueLen
}

func readEntryHeader(b []byte) entryHeader {
	_ = b[entryOverhead-1]
	return entryHeader{
		nameLen:   int(binary.LittleEndian.Uint32(b[offNameLen:])),
		valueLen:  int(binary.LittleEndian.Uint32(b[offValueLen:])),
		nameHash:  binary.LittleEndian.Uint32(b[offNameHash:]),
		valueHash: binary.LittleEndian.Uint32(b[offValueHash:]),
	}
}

func writeEntry(b []byte, name, value string) {
	binary.LittleEndian.PutUint32(b[offNameLen:], uint32(len(name)))
	binary.LittleEndian.PutUint32(b[offValueLen:], uint32(len(value)))
	binary.LittleEndian.PutUint32(b[offNameHash:], hashString(name))
	binary.LittleEndian.PutUint32(b[offValueHash:], hashString(value))
	for i := offReserved; i < entryOverhead; i++ {
		b[i] = 0
	}
	n := copy(b[entryOverhead:], name)
	copy(b[entryOverhead+n:], value)
}

// hashString is 32-bit FNV-1a.
func hashString(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// Table is the combined static and dynamic header table of one direction of
// one connection. Index 1..61 is the static table, 62 is the newest dynamic
// entry. A Table is not safe for concurrent use.
type Table struct {
	pool  *buffer.Pool
	lease *buffer.Lease

	count   int
	size    int
	maxSize int
}

// NewTable returns an empty table with the given byte budget. Dynamic entry
// storage is leased from pool on first use; a nil pool means the default pool.
func NewTable(maxSize int, pool *buffer.Pool) *Table {
	if maxSize < 0 {
		maxSize = 0
	}
	if pool == nil {
		pool = buffer.DefaultPool()
	}
	return &Table{pool: pool, maxSize: maxSize}
}

// Count returns the number of dynamic entries.
func (t *Table) Count() int { return t.count }

// Size returns the summed RFC size of the dynamic entries.
func (t *Table) Size() int { return t.size }

func (t *Table) MaxSize() int { return t.maxSize }

// Len returns the number of addressable indices, static included.
func (t *Table) Len() int { return staticTableLen + t.count }

func (t *Table) reset() {
	t.lease.Release()
	t.lease = nil
	t.count = 0
	t.size = 0
}

// Close releases the dynamic table storage. The table is empty afterwards
// and can still be used.
func (t *Table) Close() {
	t.reset()
}

// fit reports how many of the newest entries, and how many bytes of them,
// fit in budget once reserved bytes are set aside.
func (t *Table) fit(reserved, budget int) (keepBytes, keepCount int) {
	if t.lease == nil {
		return 0, 0
	}
	buf := t.lease.Bytes()
	total := reserved
	for keepCount < t.count {
		n := readEntryHeader(buf[keepBytes:]).size()
		if total+n > budget {
			break
		}
		total += n
		keepBytes += n
		keepCount++
	}
	return keepBytes, keepCount
}

// Add inserts h as the newest entry, evicting the oldest entries until it
// fits. An entry larger than the whole budget empties the table and is not
// stored; Add reports whether h was stored.
func (t *Table) Add(h Header) bool {
	need := h.Size()
	if need > t.maxSize {
		t.reset()
		return false
	}
	if t.lease == nil {
		t.lease = t.pool.Lease(t.maxSize)
	}
	keepBytes, keepCount := t.fit(need, t.maxSize)
	buf := t.lease.Bytes()
	copy(buf[need:need+keepBytes], buf[:keepBytes])
	writeEntry(buf[:need], h.Name, h.Value)
	t.count = keepCount + 1
	t.size = need + keepBytes
	return true
}

// SetMaxSize changes the byte budget, evicting the oldest entries that no
// longer fit. Surviving entries move to fresh storage sized to the new
// budget.
func (t *Table) SetMaxSize(n int) {
	if n < 0 {
		n = 0
	}
	if n == t.maxSize {
		return
	}
	keepBytes, keepCount := t.fit(0, n)
	if keepCount == 0 {
		t.reset()
		t.maxSize = n
		return
	}
	lease := t.pool.Lease(n)
	copy(lease.Bytes(), t.lease.Bytes()[:keepBytes])
	t.lease.Release()
	t.lease = lease
	t.count = keepCount
	t.size = keepBytes
	t.maxSize = n
}

// offset returns where dynamic entry i (0 = newest) starts.
func (t *Table) offset(i int) int {
	buf := t.lease.Bytes()
	off := 0
	for ; i > 0; i-- {
		off += readEntryHeader(buf[off:]).size()
	}
	return off
}

func (t *Table) entryAt(off int) (entryHeader, []byte, []byte) {
	buf := t.lease.Bytes()
	e := readEntryHeader(buf[off:])
	name := buf[off+entryOverhead : off+entryOverhead+e.nameLen]
	value := buf[off+entryOverhead+e.nameLen : off+e.size()]
	return e, name, value
}

func (t *Table) dynamicIndex(index uint64) (int, error) {
	if index == 0 || index > uint64(t.Len()) {
		return 0, fmt.Errorf("%w: %d (table holds %d)", ErrIndexOutOfRange, index, t.Len())
	}
	return int(index) - staticTableLen - 1, nil
}

// Get returns a copy of the entry at index.
func (t *Table) Get(index uint64) (Header, error) {
	if index >= 1 && index <= staticTableLen {
		e := staticTable[index]
		return Header{Name: e.name, Value: e.value, Indexing: IndexExisting}, nil
	}
	i, err := t.dynamicIndex(index)
	if err != nil {
		return Header{}, err
	}
	_, name, value := t.entryAt(t.offset(i))
	return Header{Name: string(name), Value: string(value), Indexing: IndexExisting}, nil
}

// Name returns the name of the entry at index.
func (t *Table) Name(index uint64) (string, error) {
	if index >= 1 && index <= staticTableLen {
		return staticTable[index].name, nil
	}
	i, err := t.dynamicIndex(index)
	if err != nil {
		return "", err
	}
	_, name, _ := t.entryAt(t.offset(i))
	return string(name), nil
}

// FindName returns the lowest index whose name matches, or 0.
func (t *Table) FindName(name string) uint64 {
	if i := staticFindName(name); i != 0 {
		return i
	}
	hash := hashString(name)
	off := 0
	for i := 0; i < t.count; i++ {
		e, n, _ := t.entryAt(off)
		if e.nameLen == len(name) && e.nameHash == hash && string(n) == name {
			return uint64(staticTableLen + 1 + i)
		}
		off += e.size()
	}
	return 0
}

// Find returns the lowest index whose name and value both match, or 0.
func (t *Table) Find(name, value string) uint64 {
	if i := staticFind(name, value); i != 0 {
		return i
	}
	nameHash, valueHash := hashString(name), hashString(value)
	off := 0
	for i := 0; i < t.count; i++ {
		e, n, v := t.entryAt(off)
		if e.nameLen == len(name) && e.valueLen == len(value) &&
			e.nameHash == nameHash && e.valueHash == valueHash &&
			string(n) == name && string(v) == value {
			return uint64(staticTableLen + 1 + i)
		}
		off += e.size()
	}
	return 0
}

// Entries returns copies of the dynamic entries, newest first.
func (t *Table) Entries() []Header {
	hs := make([]Header, 0, t.count)
	off := 0
	for i := 0; i < t.count; i++ {
		e, n, v := t.entryAt(off)
		hs = append(hs, Header{Name: string(n), Value: string(v), Indexing: IndexExisting})
		off += e.size()
	}
	return hs
}

// String dumps the dynamic table the way RFC 7541 Appendix C does.
func (t *Table) String() string {
	if t.count == 0 {
		return "empty"
	}
	var sb strings.Builder
	for i, h := range t.Entries() {
		fmt.Fprintf(&sb, "[%d] (s = %d) %s\n", i+1, h.Size(), h)
	}
	fmt.Fprintf(&sb, "Table size: %d\n", t.size)
	return sb.String()
}
