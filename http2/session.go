package http2

import (
	"fmt"

	"github.com/jakegut/gohpack/buffer"
	"github.com/jakegut/gohpack/hpack"
	"golang.org/x/net/http2"
)

// CompressionError is a header block that could not be decoded. It always
// ends the connection with COMPRESSION_ERROR.
type CompressionError struct {
	Err error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("http2: compression error: %s", e.Err)
}

func (e *CompressionError) Unwrap() error {
	return e.Err
}

func (e *CompressionError) Code() http2.ErrCode {
	return http2.ErrCodeCompression
}

// Session holds the header compression state of one connection: a decoder
// for the blocks the peer sends and an encoder for the blocks we send.
type Session struct {
	local  *ConnectionSettings
	remote *ConnectionSettings

	decoder *hpack.Decoder
	encoder *hpack.Encoder
}

// NewSession builds the compression state for a connection that advertises
// local. The peer's settings start at their initial values.
func NewSession(local *ConnectionSettings, pool *buffer.Pool) *Session {
	if local == nil {
		local = NewSettings()
	}
	s := &Session{
		local:   local,
		remote:  NewSettings(),
		decoder: hpack.NewDecoder(int(local.HeaderTableSize), pool),
		encoder: hpack.NewEncoder(hpack.DefaultMaxTableSize, pool),
	}
	if local.MaxHeaderListSize != nil {
		s.decoder.SetMaxHeaderListSize(int(*local.MaxHeaderListSize))
	}
	return s
}

func (s *Session) Decoder() *hpack.Decoder { return s.decoder }

func (s *Session) Encoder() *hpack.Encoder { return s.encoder }

func (s *Session) LocalSettings() *ConnectionSettings { return s.local }

func (s *Session) RemoteSettings() *ConnectionSettings { return s.remote }

// DecodeHeaderList decodes one complete header block from the peer. Any
// failure is returned as a *CompressionError.
func (s *Session) DecodeHeaderList(block buffer.Cursor) (hpack.HeaderList, error) {
	hl, err := s.decoder.DecodeHeaderList(block)
	if err != nil {
		return nil, &CompressionError{Err: err}
	}
	return hl, nil
}

// EncodeHeaderList appends the header block for hl to w.
func (s *Session) EncodeHeaderList(w *buffer.Writer, hl hpack.HeaderList) error {
	return s.encoder.EncodeHeaderList(w, hl)
}

// SetDecoderMaxDynamicTableSize changes the SETTINGS_HEADER_TABLE_SIZE we
// advertise. The peer shrinks our decoder's table with a size update.
func (s *Session) SetDecoderMaxDynamicTableSize(n uint32) {
	s.local.HeaderTableSize = n
	s.decoder.SetAllowedMaxDynamicTableSize(int(n))
}

// SetEncoderMaxDynamicTableSize changes the budget of the table we encode
// against, bounded by what the peer advertised.
func (s *Session) SetEncoderMaxDynamicTableSize(n uint32) {
	s.encoder.SetMaxDynamicTableSize(int(n))
}

// ApplySettings records a SETTINGS frame from the peer.
func (s *Session) ApplySettings(f *http2.SettingsFrame) error {
	if f.IsAck() {
		return nil
	}
	if err := s.remote.ApplyFrame(f); err != nil {
		return err
	}
	if _, ok := f.Value(http2.SettingHeaderTableSize); ok {
		s.encoder.SetMaxDynamicTableSizeLimit(int(s.remote.HeaderTableSize))
	}
	return nil
}

// ApplyUpgradeSettings records the HTTP2-Settings header of an h2c upgrade.
func (s *Session) ApplyUpgradeSettings(value string) error {
	if err := s.remote.DecodeUpgradeHeader(value); err != nil {
		return err
	}
	s.encoder.SetMaxDynamicTableSizeLimit(int(s.remote.HeaderTableSize))
	return nil
}

// Close releases both tables.
func (s *Session) Close() {
	s.decoder.Close()
	s.encoder.Close()
}
