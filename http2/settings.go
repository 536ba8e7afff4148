package http2

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/net/http2"
)

var ErrInvalidSetting = errors.New("http2: invalid setting")

type SettingsParam uint16

const (
	SettingsHeaderTableSize      SettingsParam = 0x1
	SettingsEnablePush           SettingsParam = 0x2
	SettingsMaxConcurrentStreams SettingsParam = 0x3
	SettingsInitialWindowSize    SettingsParam = 0x4
	SettingsMaxFrameSize         SettingsParam = 0x5
	SettingsMaxHeaderListSize    SettingsParam = 0x6
)

const (
	minMaxFrameSize      = 1 << 14
	maxMaxFrameSize      = 1<<24 - 1
	maxInitialWindowSize = 1<<31 - 1
)

func (p SettingsParam) String() string {
	return http2.SettingID(p).String()
}

// ConnectionSettings is one endpoint's view of the SETTINGS of one side of a
// connection.
type ConnectionSettings struct {
	HeaderTableSize      uint32
	EnablePush           bool
	MaxConcurrentStreams uint32
	InitialWindowSize    uint32
	MaxFrameSize         uint32
	MaxHeaderListSize    *uint32 // a value of nil indicates unlimited
}

// NewSettings returns the initial values every connection starts from.
func NewSettings() *ConnectionSettings {
	return &ConnectionSettings{
		HeaderTableSize:      4096,
		EnablePush:           true,
		MaxConcurrentStreams: 64,
		InitialWindowSize:    65535,
		MaxFrameSize:         minMaxFrameSize,
		MaxHeaderListSize:    nil,
	}
}

// SetValue validates and stores one setting. Unknown parameters are ignored.
func (s *ConnectionSettings) SetValue(param SettingsParam, value uint32) error {
	switch param {
	case SettingsHeaderTableSize:
		s.HeaderTableSize = value
	case SettingsEnablePush:
		if value > 1 {
			return fmt.Errorf("%w: %v = %d", ErrInvalidSetting, param, value)
		}
		s.EnablePush = value == 1
	case SettingsMaxConcurrentStreams:
		s.MaxConcurrentStreams = value
	case SettingsInitialWindowSize:
		if value > maxInitialWindowSize {
			return fmt.Errorf("%w: %v = %d", ErrInvalidSetting, param, value)
		}
		s.InitialWindowSize = value
	case SettingsMaxFrameSize:
		if value < minMaxFrameSize || value > maxMaxFrameSize {
			return fmt.Errorf("%w: %v = %d", ErrInvalidSetting, param, value)
		}
		s.MaxFrameSize = value
	case SettingsMaxHeaderListSize:
		s.MaxHeaderListSize = &value
	}
	return nil
}

// DecodePayload applies a raw SETTINGS payload.
func (s *ConnectionSettings) DecodePayload(bs []byte) error {
	if len(bs)%6 != 0 {
		return fmt.Errorf("%w: payload length %d", ErrInvalidSetting, len(bs))
	}
	for len(bs) > 0 {
		ident := binary.BigEndian.Uint16(bs[0:])
		value := binary.BigEndian.Uint32(bs[2:])
		if err := s.SetValue(SettingsParam(ident), value); err != nil {
			return err
		}
		bs = bs[6:]
	}
	return nil
}

// DecodeUpgradeHeader applies the HTTP2-Settings header of an h2c upgrade
// request.
func (s *ConnectionSettings) DecodeUpgradeHeader(value string) error {
	payload, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return fmt.Errorf("%w: http2-settings: %s", ErrInvalidSetting, err)
	}
	return s.DecodePayload(payload)
}

// ApplyFrame applies every setting carried by a non-ACK SETTINGS frame.
func (s *ConnectionSettings) ApplyFrame(f *http2.SettingsFrame) error {
	return f.ForeachSetting(func(setting http2.Setting) error {
		return s.SetValue(SettingsParam(setting.ID), setting.Val)
	})
}

// Settings lists the values in the form the framer writes them.
func (s *ConnectionSettings) Settings() []http2.Setting {
	push := uint32(0)
	if s.EnablePush {
		push = 1
	}
	settings := []http2.Setting{
		{ID: http2.SettingHeaderTableSize, Val: s.HeaderTableSize},
		{ID: http2.SettingEnablePush, Val: push},
		{ID: http2.SettingMaxConcurrentStreams, Val: s.MaxConcurrentStreams},
		{ID: http2.SettingInitialWindowSize, Val: s.InitialWindowSize},
		{ID: http2.SettingMaxFrameSize, Val: s.MaxFrameSize},
	}
	if s.MaxHeaderListSize != nil {
		settings = append(settings, http2.Setting{ID: http2.SettingMaxHeaderListSize, Val: *s.MaxHeaderListSize})
	}
	return settings
}
