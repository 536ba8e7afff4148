package http2

import (
	"fmt"
	"log"
	"strings"

	"github.com/jakegut/gohpack/buffer"
	"github.com/jakegut/gohpack/hpack"
	"golang.org/x/net/http2"
)

/*
                            +--------+
                    send PP |        | recv PP
                   ,--------|  idle  |--------.
                  /         |        |         \
                 v          +--------+          v
          +----------+          |           +----------+
          |          |          | send H /  |          |
   ,------| reserved |          | recv H    | reserved |------.
   |      | (local)  |          |           | (remote) |      |
   |      +----------+          v           +----------+      |
   |          |             +--------+             |          |
   |          |     recv ES |        | send ES     |          |
   |   send H |     ,-------|  open  |-------.     | recv H   |
   |          |    /        |        |        \    |          |
   |          v   v         +--------+         v   v          |
   |      +----------+          |           +----------+      |
   |      |   half   |          |           |   half   |      |
   |      |  closed  |          | send R /  |  closed  |      |
   |      | (remote) |          | recv R    | (local)  |      |
   |      +----------+          |           +----------+      |
   |           |                |                 |           |
   |           | send ES /      |       recv ES / |           |
   |           | send R /       v        send R / |           |
   |           | recv R     +--------+   recv R   |           |
   | send R /  `----------->|        |<-----------'  send R / |
   | recv R                 | closed |               recv R   |
   `----------------------->|        |<----------------------'
                            +--------+

   Only the server side of this diagram is used: push is never sent, so the
   reserved states are unreachable.
*/

type StreamState string

var (
	StreamStateIdle             StreamState = "idle"
	StreamStateOpen             StreamState = "open"
	StreamStateHalfClosedRemote StreamState = "half closed (remote)"
	StreamStateClosed           StreamState = "closed"
)

// Stream collects one request and answers it with a plain-text report of
// the decoded headers.
type Stream struct {
	id    uint32
	state StreamState
	conn  *Connection

	headers  hpack.HeaderList
	trailers hpack.HeaderList
	bodyLen  int

	log func(msg string, args ...interface{})
}

func newStream(id uint32, conn *Connection) *Stream {
	return &Stream{
		id:    id,
		state: StreamStateIdle,
		conn:  conn,
		log: func(msg string, args ...interface{}) {
			if !conn.Verbose {
				return
			}
			msg = fmt.Sprintf("[stream %02d]\t", id) + msg
			log.Printf(msg, args...)
		},
	}
}

func (s *Stream) State() StreamState {
	return s.state
}

func (s *Stream) handleHeaders(hl hpack.HeaderList, endStream bool) error {
	switch s.state {
	case StreamStateIdle:
		s.log("headers in idle")
		for _, header := range hl {
			s.log("[%s: %s]", header.Name, header.Value)
		}
		s.headers = hl
		s.transition(StreamStateOpen)
		s.conn.onHeaders(s.id, hl)
	case StreamStateOpen:
		if !endStream {
			return s.streamClosedErr(http2.ErrCodeProtocol)
		}
		s.log("trailers in open")
		s.trailers = hl
		s.conn.onHeaders(s.id, hl)
	default:
		return s.streamClosedErr(http2.ErrCodeStreamClosed)
	}

	if endStream {
		s.transition(StreamStateHalfClosedRemote)
		return s.respond()
	}
	return nil
}

func (s *Stream) handleData(data []byte, endStream bool) error {
	if s.state != StreamStateOpen {
		s.log("unhandled data in %s state", string(s.state))
		return s.streamClosedErr(http2.ErrCodeStreamClosed)
	}
	s.bodyLen += len(data)
	if endStream {
		s.transition(StreamStateHalfClosedRemote)
		return s.respond()
	}
	return nil
}

func (s *Stream) handleReset() {
	s.transition(StreamStateClosed)
}

// report is the response body: the decoded request and the decoder's table.
func (s *Stream) report() []byte {
	var sb strings.Builder
	sb.WriteString(s.headers.String())
	if len(s.trailers) > 0 {
		sb.WriteString("\ntrailers:\n")
		sb.WriteString(s.trailers.String())
	}
	fmt.Fprintf(&sb, "\nbody: %d bytes\n", s.bodyLen)
	fmt.Fprintf(&sb, "\ndecoder table:\n%s\n", s.conn.session.Decoder().Table())
	return []byte(sb.String())
}

func (s *Stream) respond() error {
	body := s.report()
	response := hpack.HeaderList{
		hpack.NewHeader(":status", "200"),
		hpack.NewHeader("content-type", "text/plain; charset=utf-8"),
		hpack.NewHeader("content-length", fmt.Sprintf("%d", len(body))),
		hpack.NewHeader("server", "hpackdump"),
	}

	w := buffer.NewWriter(nil)
	if err := s.conn.session.EncodeHeaderList(w, response); err != nil {
		return err
	}
	maxFrameSize := s.conn.session.RemoteSettings().MaxFrameSize
	if err := WriteHeaderBlock(s.conn.framer, s.id, w.Bytes(), false, maxFrameSize); err != nil {
		return err
	}
	if err := WriteData(s.conn.framer, s.id, body, true, maxFrameSize); err != nil {
		return err
	}
	s.transition(StreamStateClosed)
	return nil
}

func (s *Stream) streamClosedErr(code http2.ErrCode) error {
	s.transition(StreamStateClosed)
	return s.conn.framer.WriteRSTStream(s.id, code)
}

func (s *Stream) transition(to StreamState) {
	s.log("transitioning to %s", string(to))
	s.state = to
	if to == StreamStateClosed {
		s.conn.closeStream(s.id)
	}
}
