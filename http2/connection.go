package http2

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sort"

	"github.com/jakegut/gohpack/buffer"
	"github.com/jakegut/gohpack/hpack"
	"github.com/jakegut/gohpack/http11"
	"golang.org/x/net/http2"
)

type ConnectionState int

const (
	handshake ConnectionState = iota
	h2
)

// HeadersHook observes every header list a connection decodes, together with
// the decoder's table right after the block.
type HeadersHook func(streamID uint32, hl hpack.HeaderList, table *hpack.Table)

// hopByHop headers of an upgrade request do not become h2 fields.
var hopByHop = map[string]bool{
	"connection":        true,
	"host":              true,
	"http2-settings":    true,
	"keep-alive":        true,
	"transfer-encoding": true,
	"upgrade":           true,
}

// Connection serves one accepted connection, speaking h2 either with prior
// knowledge or after an h2c upgrade.
type Connection struct {
	net.Conn

	// Settings are advertised to the peer; nil means the initial values.
	Settings  *ConnectionSettings
	Pool      *buffer.Pool
	OnHeaders HeadersHook
	Verbose   bool

	// MaxStringLength limits literals in request blocks; zero is unlimited.
	MaxStringLength int
	// IndexPolicy replaces the encoder's default policy when set.
	IndexPolicy *hpack.IndexPolicy
	// EncoderTableSize is the dynamic table size for response blocks, still
	// bounded by the peer's SETTINGS_HEADER_TABLE_SIZE. Zero keeps 4096.
	EncoderTableSize int

	bufreader *bufio.Reader
	framer    *http2.Framer

	state   ConnectionState
	session *Session

	streams      map[uint32]*Stream
	lastStreamID uint32

	log func(msg string, args ...interface{})
}

func (c *Connection) Handle() error {
	defer c.Close()
	c.bufreader = bufio.NewReader(c.Conn)
	c.framer = http2.NewFramer(c.Conn, c.bufreader)
	c.session = NewSession(c.Settings, c.Pool)
	defer c.session.Close()
	c.session.Decoder().SetMaxStringLength(c.MaxStringLength)
	if c.IndexPolicy != nil {
		c.session.Encoder().SetIndexPolicy(c.IndexPolicy)
	}
	if n := c.EncoderTableSize; n > 0 && n != hpack.DefaultMaxTableSize {
		c.session.SetEncoderMaxDynamicTableSize(uint32(n))
	}
	c.framer.SetMaxReadFrameSize(c.session.LocalSettings().MaxFrameSize)
	c.streams = map[uint32]*Stream{}
	c.log = func(msg string, args ...interface{}) {
		msg = fmt.Sprintf("[%s]\t", c.RemoteAddr()) + msg
		log.Printf(msg, args...)
	}

	for {
		switch c.state {
		case handshake:
			if err := c.handleHandshake(); err != nil {
				c.log("handling handshake: %s", err)
				return err
			}
			c.state = h2
		case h2:
			err := c.handleH2()
			if err != nil && !errors.Is(err, io.EOF) {
				c.log("handling: %s", err)
				return err
			}
			return nil
		}
	}
}

func (c *Connection) handleHandshake() error {
	h1 := &http11.Request{}
	if err := h1.UnmarshalReader(c.bufreader); err != nil {
		return err
	}

	if h1.IsPreface() {
		return c.framer.WriteSettings(c.session.LocalSettings().Settings()...)
	}

	if !h1.IsH2CUpgrade() {
		return fmt.Errorf("expected an h2c upgrade, got %s %s %s", h1.Method, h1.Path, h1.Protocol)
	}
	if err := c.session.ApplyUpgradeSettings(h1.Headers["http2-settings"]); err != nil {
		return err
	}

	if _, err := c.Write(http11.SwitchingProtocols().Marshal()); err != nil {
		return err
	}
	if err := c.framer.WriteSettings(c.session.LocalSettings().Settings()...); err != nil {
		return err
	}

	preface := make([]byte, len(http2.ClientPreface))
	if _, err := io.ReadFull(c.bufreader, preface); err != nil {
		return err
	}
	if !bytes.Equal(preface, []byte(http2.ClientPreface)) {
		return http11.ErrBadPreface
	}

	// the upgraded request is stream 1, already half closed
	s := c.newStream(1)
	return s.handleHeaders(UpgradeHeaders(h1), true)
}

// UpgradeHeaders maps an h2c upgrade request head to the header list of
// stream 1.
func UpgradeHeaders(h1 *http11.Request) hpack.HeaderList {
	hl := hpack.HeaderList{
		hpack.NewHeader(":method", h1.Method),
		hpack.NewHeader(":scheme", "http"),
		hpack.NewHeader(":path", h1.Path),
	}
	if host, ok := h1.Headers["host"]; ok {
		hl = append(hl, hpack.NewHeader(":authority", host))
	}
	names := make([]string, 0, len(h1.Headers))
	for name := range h1.Headers {
		if !hopByHop[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		hl = append(hl, hpack.NewHeader(name, h1.Headers[name]))
	}
	return hl
}

func (c *Connection) handleH2() error {
	for {
		frame, err := c.framer.ReadFrame()
		if err != nil {
			return c.fail(err)
		}

		switch fr := frame.(type) {
		case *http2.SettingsFrame:
			if fr.IsAck() {
				continue
			}
			if err := c.session.ApplySettings(fr); err != nil {
				return c.fail(err)
			}
			if err := c.framer.WriteSettingsAck(); err != nil {
				return err
			}
		case *http2.HeadersFrame:
			block, err := ReadHeaderBlock(c.framer, fr)
			if err != nil {
				return c.fail(err)
			}
			// the block must be decoded even for a stream we refuse, to
			// keep the tables in step
			hl, err := c.session.DecodeHeaderList(block)
			if err != nil {
				return c.fail(err)
			}
			s, ok := c.streams[fr.StreamID]
			if !ok {
				if fr.StreamID <= c.lastStreamID {
					if err := c.framer.WriteRSTStream(fr.StreamID, http2.ErrCodeStreamClosed); err != nil {
						return err
					}
					continue
				}
				s = c.newStream(fr.StreamID)
			}
			if err := s.handleHeaders(hl, fr.StreamEnded()); err != nil {
				return err
			}
		case *http2.DataFrame:
			if n := len(fr.Data()); n > 0 {
				if err := c.framer.WriteWindowUpdate(0, uint32(n)); err != nil {
					return err
				}
			}
			s, ok := c.streams[fr.StreamID]
			if !ok {
				if err := c.framer.WriteRSTStream(fr.StreamID, http2.ErrCodeStreamClosed); err != nil {
					return err
				}
				continue
			}
			if err := s.handleData(fr.Data(), fr.StreamEnded()); err != nil {
				return err
			}
		case *http2.PingFrame:
			if !fr.IsAck() {
				if err := c.framer.WritePing(true, fr.Data); err != nil {
					return err
				}
			}
		case *http2.RSTStreamFrame:
			if s, ok := c.streams[fr.StreamID]; ok {
				s.handleReset()
			}
		case *http2.GoAwayFrame:
			c.log("peer sent GOAWAY: %v", fr.ErrCode)
			return nil
		case *http2.WindowUpdateFrame, *http2.PriorityFrame:
		default:
			if c.Verbose {
				c.log("ignoring %v", frame.Header())
			}
		}
	}
}

// fail ends the connection with a GOAWAY carrying the error code that
// matches err.
func (c *Connection) fail(err error) error {
	if errors.Is(err, io.EOF) {
		return err
	}
	code := http2.ErrCodeProtocol
	var compressionErr *CompressionError
	var connErr http2.ConnectionError
	switch {
	case errors.As(err, &compressionErr):
		code = compressionErr.Code()
	case errors.As(err, &connErr):
		code = http2.ErrCode(connErr)
	}
	if werr := c.framer.WriteGoAway(c.lastStreamID, code, nil); werr != nil {
		c.log("writing GOAWAY: %s", werr)
	}
	return err
}

func (c *Connection) newStream(id uint32) *Stream {
	s := newStream(id, c)
	c.streams[id] = s
	if id > c.lastStreamID {
		c.lastStreamID = id
	}
	return s
}

func (c *Connection) closeStream(id uint32) {
	delete(c.streams, id)
}

func (c *Connection) onHeaders(streamID uint32, hl hpack.HeaderList) {
	if c.OnHeaders != nil {
		c.OnHeaders(streamID, hl, c.session.Decoder().Table())
	}
}

// Server accepts connections and serves each on its own goroutine.
type Server struct {
	Settings        *ConnectionSettings
	Pool            *buffer.Pool
	OnHeaders       HeadersHook
	Verbose         bool
	MaxStringLength int
	IndexPolicy     *hpack.IndexPolicy
	// EncoderTableSize is copied to every Connection.
	EncoderTableSize int
}

func (s *Server) Serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		log.Printf("accepted from %s", conn.RemoteAddr().String())

		var settings *ConnectionSettings
		if s.Settings != nil {
			copied := *s.Settings
			settings = &copied
		}
		c := &Connection{
			Conn:            conn,
			Settings:        settings,
			Pool:            s.Pool,
			OnHeaders:       s.OnHeaders,
			Verbose:         s.Verbose,
			MaxStringLength: s.MaxStringLength,
			IndexPolicy:     s.IndexPolicy,

			EncoderTableSize: s.EncoderTableSize,
		}
		go c.Handle()
	}
}
