package http2

import (
	"fmt"

	"github.com/jakegut/gohpack/buffer"
	"golang.org/x/net/http2"
)

// ReadHeaderBlock collects the header block that hf starts, reading
// CONTINUATION frames until END_HEADERS. The fragments are copied, since the
// framer reuses its read buffer, and returned as one cursor without joining
// them.
func ReadHeaderBlock(fr *http2.Framer, hf *http2.HeadersFrame) (buffer.Cursor, error) {
	chunks := [][]byte{append([]byte(nil), hf.HeaderBlockFragment()...)}
	ended := hf.HeadersEnded()
	for !ended {
		f, err := fr.ReadFrame()
		if err != nil {
			return buffer.Cursor{}, err
		}
		cf, ok := f.(*http2.ContinuationFrame)
		if !ok || cf.StreamID != hf.StreamID {
			return buffer.Cursor{}, fmt.Errorf("http2: expected CONTINUATION on stream %d, got %v: %w",
				hf.StreamID, f.Header(), http2.ConnectionError(http2.ErrCodeProtocol))
		}
		chunks = append(chunks, append([]byte(nil), cf.HeaderBlockFragment()...))
		ended = cf.HeadersEnded()
	}
	return buffer.NewCursor(chunks...), nil
}

// WriteHeaderBlock sends block on streamID as one HEADERS frame followed by as
// many CONTINUATION frames as maxFrameSize requires.
func WriteHeaderBlock(fr *http2.Framer, streamID uint32, block []byte, endStream bool, maxFrameSize uint32) error {
	first, rest := split(block, maxFrameSize)
	err := fr.WriteHeaders(http2.HeadersFrameParam{
		StreamID:      streamID,
		BlockFragment: first,
		EndStream:     endStream,
		EndHeaders:    len(rest) == 0,
	})
	if err != nil {
		return err
	}
	for len(rest) > 0 {
		var chunk []byte
		chunk, rest = split(rest, maxFrameSize)
		if err := fr.WriteContinuation(streamID, len(rest) == 0, chunk); err != nil {
			return err
		}
	}
	return nil
}

// WriteData sends data on streamID in frames of at most maxFrameSize bytes.
// END_STREAM goes on the last frame when endStream is set.
func WriteData(fr *http2.Framer, streamID uint32, data []byte, endStream bool, maxFrameSize uint32) error {
	for {
		var chunk []byte
		chunk, data = split(data, maxFrameSize)
		last := len(data) == 0
		if err := fr.WriteData(streamID, endStream && last, chunk); err != nil {
			return err
		}
		if last {
			return nil
		}
	}
}

func split(bs []byte, max uint32) ([]byte, []byte) {
	if max == 0 || uint32(len(bs)) <= max {
		return bs, nil
	}
	return bs[:max], bs[max:]
}
