package hpack

import (
	"strings"
	"testing"

	"github.com/jakegut/gohpack/buffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sized returns a header whose entry size is exactly n.
func sized(name string, n int) Header {
	return Header{Name: name, Value: strings.Repeat("v", n-entryOverhead-len(name))}
}

func TestTableStatic(t *testing.T) {
	tbl := NewTable(DefaultMaxTableSize, nil)
	defer tbl.Close()

	h, err := tbl.Get(2)
	require.NoError(t, err)
	assert.Equal(t, ":method: GET", h.String())

	h, err = tbl.Get(61)
	require.NoError(t, err)
	assert.Equal(t, "www-authenticate: ", h.String())

	assert.Equal(t, uint64(8), tbl.FindName(":status"))
	assert.Equal(t, uint64(13), tbl.Find(":status", "404"))
	assert.Equal(t, uint64(16), tbl.Find("accept-encoding", "gzip, deflate"))
	assert.Equal(t, uint64(1), tbl.Find(":authority", ""))
	assert.Equal(t, uint64(0), tbl.Find(":status", "418"))
	assert.Equal(t, uint64(0), tbl.FindName("x-custom"))

	for _, idx := range []uint64{0, 62, 1 << 40} {
		_, err := tbl.Get(idx)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
		_, err = tbl.Name(idx)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	}
}

func TestTableStaticLookupsDoNotMutate(t *testing.T) {
	pool := new(buffer.Pool)
	tbl := NewTable(DefaultMaxTableSize, pool)
	defer tbl.Close()

	want := make([]Header, staticTableLen+1)
	for i := uint64(1); i <= staticTableLen; i++ {
		h, err := tbl.Get(i)
		require.NoError(t, err)
		want[i] = h
	}

	allocs := testing.AllocsPerRun(100, func() {
		for i := uint64(1); i <= staticTableLen; i++ {
			h, _ := tbl.Get(i)
			if h != want[i] {
				t.Fatalf("entry %d changed: %v", i, h)
			}
		}
	})
	assert.Zero(t, allocs)
	assert.Equal(t, int64(0), pool.Outstanding())
	assert.Equal(t, 0, tbl.Count())
	assert.Equal(t, 0, tbl.Size())
}

func TestTableAddAndEvict(t *testing.T) {
	tbl := NewTable(110, nil)
	defer tbl.Close()

	assert.Equal(t, "empty", tbl.String())
	require.True(t, tbl.Add(sized("a", 55)))
	require.True(t, tbl.Add(sized("b", 55)))
	assert.Equal(t, 2, tbl.Count())
	assert.Equal(t, 110, tbl.Size())
	assert.Equal(t, 63, tbl.Len())

	name, err := tbl.Name(62)
	require.NoError(t, err)
	assert.Equal(t, "b", name)

	require.True(t, tbl.Add(sized("c", 55)))
	assert.Equal(t, 2, tbl.Count())
	assert.Equal(t, []string{"c", "b"}, names(tbl.Entries()))
	assert.Equal(t, uint64(0), tbl.FindName("a"))
	assert.Equal(t, uint64(63), tbl.FindName("b"))

	_, err = tbl.Get(64)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	// a larger entry evicts as many of the oldest as it needs
	require.True(t, tbl.Add(sized("d", 100)))
	assert.Equal(t, []string{"d"}, names(tbl.Entries()))
	assert.Equal(t, 100, tbl.Size())
}

func TestTableOversizeEntryEmpties(t *testing.T) {
	tbl := NewTable(100, nil)
	defer tbl.Close()

	require.True(t, tbl.Add(sized("a", 40)))
	assert.False(t, tbl.Add(sized("big", 101)))
	assert.Equal(t, 0, tbl.Count())
	assert.Equal(t, 0, tbl.Size())

	// an entry of exactly the budget fits
	assert.True(t, tbl.Add(sized("full", 100)))
	assert.Equal(t, 1, tbl.Count())
}

func TestTableSetMaxSize(t *testing.T) {
	tbl := NewTable(200, nil)
	defer tbl.Close()

	for _, n := range []string{"a", "b", "c"} {
		require.True(t, tbl.Add(sized(n, 60)))
	}

	tbl.SetMaxSize(130)
	assert.Equal(t, 130, tbl.MaxSize())
	assert.Equal(t, []string{"c", "b"}, names(tbl.Entries()))

	// growing keeps everything
	tbl.SetMaxSize(4096)
	assert.Equal(t, []string{"c", "b"}, names(tbl.Entries()))
	require.True(t, tbl.Add(sized("d", 60)))
	assert.Equal(t, []string{"d", "c", "b"}, names(tbl.Entries()))

	tbl.SetMaxSize(59)
	assert.Equal(t, 0, tbl.Count())
	tbl.SetMaxSize(0)
	assert.Equal(t, 0, tbl.Count())
	assert.False(t, tbl.Add(sized("e", 33)))
}

func TestTableFirstMatchWins(t *testing.T) {
	tbl := NewTable(DefaultMaxTableSize, nil)
	defer tbl.Close()

	tbl.Add(Header{Name: "x-dup", Value: "1"})
	tbl.Add(Header{Name: "x-dup", Value: "1"})
	tbl.Add(Header{Name: "x-other", Value: "2"})
	assert.Equal(t, uint64(63), tbl.Find("x-dup", "1"))
	assert.Equal(t, uint64(63), tbl.FindName("x-dup"))

	// static entries are always preferred
	tbl.Add(Header{Name: ":method", Value: "GET"})
	assert.Equal(t, uint64(2), tbl.Find(":method", "GET"))
	assert.Equal(t, uint64(2), tbl.FindName(":method"))
}

func TestTableString(t *testing.T) {
	tbl := NewTable(DefaultMaxTableSize, nil)
	defer tbl.Close()

	tbl.Add(Header{Name: ":authority", Value: "www.example.com"})
	tbl.Add(Header{Name: "cache-control", Value: "no-cache"})
	assert.Equal(t, `[1] (s = 53) cache-control: no-cache
[2] (s = 57) :authority: www.example.com
Table size: 110
`, tbl.String())
}

func TestTableReleasesStorage(t *testing.T) {
	pool := new(buffer.Pool)
	tbl := NewTable(256, pool)

	assert.Equal(t, int64(0), pool.Outstanding())
	tbl.Add(sized("a", 100))
	assert.Equal(t, int64(1), pool.Outstanding())

	tbl.SetMaxSize(512)
	assert.Equal(t, int64(1), pool.Outstanding())

	tbl.Add(sized("b", 600))
	assert.Equal(t, int64(0), pool.Outstanding())

	tbl.Add(sized("c", 100))
	tbl.Close()
	assert.Equal(t, int64(0), pool.Outstanding())
	assert.Equal(t, 0, tbl.Count())
	tbl.Close()
}

func names(hs []Header) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.Name)
	}
	return out
}
