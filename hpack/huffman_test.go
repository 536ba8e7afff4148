package hpack

import (
	"testing"

	"github.com/jakegut/gohpack/buffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xhpack "golang.org/x/net/http2/hpack"
)

var huffmanVectors = []struct {
	in    string
	inhex string
}{
	{"www.example.com", "f1e3c2e5f23a6ba0ab90f4ff"},
	{"no-cache", "a8eb10649cbf"},
	{"custom-key", "25a849e95ba97d7f"},
	{"custom-value", "25a849e95bb8e8b4bf"},
	{"302", "6402"},
	{"private", "aec3771a4b"},
	{"Mon, 21 Oct 2013 20:13:21 GMT", "d07abe941054d444a8200595040b8166e082a62d1bff"},
	{"https://www.example.com", "9d29ad171863c78f0b97c8e9ae82ae43d3"},
	{"0", "07"},
}

func TestHuffmanKnownAnswers(t *testing.T) {
	for _, tt := range huffmanVectors {
		t.Run(tt.in, func(t *testing.T) {
			want := mustHex(t, tt.inhex)
			assert.Equal(t, want, AppendHuffman(nil, tt.in))
			assert.Equal(t, len(want), HuffmanEncodedLength(tt.in))

			got, err := HuffmanDecode(buffer.NewCursor(want))
			require.NoError(t, err)
			assert.Equal(t, tt.in, got)
		})
	}
}

func TestHuffmanMatchesXNet(t *testing.T) {
	inputs := []string{
		"",
		"a",
		"foo=ASDJKHQKBZXOQWEOPIUAXQWEOIU; max-age=3600; version=1",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
		"\x00\x01\x7f\x80\xfe\xff",
	}
	for _, in := range inputs {
		assert.Equal(t, xhpack.AppendHuffmanString(nil, in), AppendHuffman(nil, in), "%q", in)
		assert.Equal(t, int(xhpack.HuffmanEncodeLength(in)), HuffmanEncodedLength(in), "%q", in)
	}
}

func TestHuffmanAllBytes(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	in := string(all) + string(all[:17])
	enc := AppendHuffman(nil, in)

	got, err := HuffmanDecode(buffer.NewCursor(enc))
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// the same bytes split at every boundary decode identically
	for i := 0; i <= len(enc); i++ {
		got, err := HuffmanDecode(buffer.NewCursor(enc[:i], enc[i:]))
		require.NoError(t, err)
		assert.Equal(t, in, got)
	}
}

func TestHuffmanLongOutputCrossesChunks(t *testing.T) {
	in := ""
	for len(in) < 4*huffmanChunk {
		in += "custom-value;"
	}
	w := buffer.NewWriter(nil)
	w.WriteByte(0xaa)
	WriteHuffman(w, in)
	assert.Equal(t, byte(0xaa), w.Bytes()[0])
	assert.Equal(t, xhpack.AppendHuffmanString(nil, in), w.Bytes()[1:])
}

func TestHuffmanInvalid(t *testing.T) {
	tests := map[string]string{
		"padding not ones":        "00",
		"padding of a full byte":  "07ff",
		"only padding, eight bit": "ff",
		"eos":                     "ffffffff",
		"eos after symbol":        "1fffffff" + "ff",
	}
	for name, inhex := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := HuffmanDecode(buffer.NewCursor(mustHex(t, inhex)))
			assert.ErrorIs(t, err, ErrInvalidHuffmanCode)
		})
	}
}

func TestHuffmanEmpty(t *testing.T) {
	got, err := HuffmanDecode(buffer.Cursor{})
	require.NoError(t, err)
	assert.Equal(t, "", got)
	assert.Empty(t, AppendHuffman(nil, ""))
}
