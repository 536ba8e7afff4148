package hpack

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tested_hpack "github.com/tatsuhiro-t/go-http2-hpack"
	xhpack "golang.org/x/net/http2/hpack"
)

var interopLists = [][][2]string{
	{
		{":method", "GET"},
		{":scheme", "https"},
		{":path", "/"},
		{":authority", "example.org"},
		{"user-agent", "gohpack-test/1.0"},
		{"accept", "*/*"},
	},
	{
		{":method", "POST"},
		{":scheme", "https"},
		{":path", "/upload?id=42"},
		{":authority", "example.org"},
		{"user-agent", "gohpack-test/1.0"},
		{"content-type", "application/x-www-form-urlencoded"},
		{"x-request-id", "0b9c1c5e-8d55-4d2c-a8e5-4c9a4f2d3b71"},
	},
	{
		{":status", "200"},
		{"cache-control", "private"},
		{"set-cookie", "foo=ASDJKHQKBZXOQWEOPIUAXQWEOIU; max-age=3600; version=1"},
		{"x-empty", ""},
	},
}

func TestDecodeFromXNetEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := xhpack.NewEncoder(&buf)
	d := NewDecoder(DefaultMaxTableSize, nil)
	defer d.Close()

	for round := 0; round < 2; round++ {
		for _, list := range interopLists {
			buf.Reset()
			for _, p := range list {
				require.NoError(t, enc.WriteField(xhpack.HeaderField{Name: p[0], Value: p[1]}))
			}
			hl, err := d.Decode(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, list, pairs(hl))
		}
	}

	buf.Reset()
	enc.SetMaxDynamicTableSize(128)
	require.NoError(t, enc.WriteField(xhpack.HeaderField{Name: "authorization", Value: "secret", Sensitive: true}))
	hl, err := d.Decode(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, hl, 1)
	assert.True(t, hl[0].Sensitive())
	assert.Equal(t, 128, d.Table().MaxSize())
}

func TestEncodeForXNetDecoder(t *testing.T) {
	e := NewEncoder(DefaultMaxTableSize, nil)
	defer e.Close()
	dec := xhpack.NewDecoder(DefaultMaxTableSize, nil)

	for round := 0; round < 2; round++ {
		for _, list := range interopLists {
			hl := make(HeaderList, 0, len(list))
			for i, p := range list {
				h := NewHeader(p[0], p[1])
				if i%2 == 1 {
					h.Indexing = IndexAddNew
				}
				hl = append(hl, h)
			}
			bs, err := e.Encode(hl)
			require.NoError(t, err)

			fields, err := dec.DecodeFull(bs)
			require.NoError(t, err)
			got := make([][2]string, 0, len(fields))
			for _, f := range fields {
				got = append(got, [2]string{f.Name, f.Value})
			}
			assert.Equal(t, list, got)
		}
	}

	e.SetMaxDynamicTableSize(512)
	bs, err := e.Encode([]Header{{Name: "authorization", Value: "secret", Indexing: IndexNever}})
	require.NoError(t, err)
	fields, err := dec.DecodeFull(bs)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.True(t, fields[0].Sensitive)
}

func TestDecodeFromTatsuhiroEncoder(t *testing.T) {
	enc := tested_hpack.NewEncoder(DefaultMaxTableSize)
	d := NewDecoder(DefaultMaxTableSize, nil)
	defer d.Close()

	for round := 0; round < 2; round++ {
		for _, list := range interopLists {
			headers := make([]*tested_hpack.Header, 0, len(list))
			for _, p := range list {
				headers = append(headers, tested_hpack.NewHeader(p[0], p[1], false))
			}
			encoded := &bytes.Buffer{}
			enc.Encode(encoded, headers)

			hl, err := d.Decode(encoded.Bytes())
			require.NoError(t, err)
			assert.Equal(t, list, pairs(hl))
		}
	}
}

func TestEncodeForTatsuhiroDecoder(t *testing.T) {
	e := NewEncoder(DefaultMaxTableSize, nil)
	defer e.Close()
	dec := tested_hpack.NewDecoder()

	for _, list := range interopLists {
		hl := make(HeaderList, 0, len(list))
		for _, p := range list {
			hl = append(hl, NewHeader(p[0], p[1]))
		}
		bs, err := e.Encode(hl)
		require.NoError(t, err)

		got := make([][2]string, 0, len(list))
		pos := 0
		for pos < len(bs) {
			h, n, err := dec.Decode(bs[pos:], true)
			require.NoError(t, err)
			if h == nil {
				break
			}
			pos += n
			got = append(got, [2]string{h.Name, h.Value})
		}
		assert.Equal(t, list, got)
	}
}
