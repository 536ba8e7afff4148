package http2

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
)

func TestSettingsDefaults(t *testing.T) {
	s := NewSettings()
	assert.Equal(t, uint32(4096), s.HeaderTableSize)
	assert.True(t, s.EnablePush)
	assert.Equal(t, uint32(65535), s.InitialWindowSize)
	assert.Equal(t, uint32(16384), s.MaxFrameSize)
	assert.Nil(t, s.MaxHeaderListSize)
	assert.Len(t, s.Settings(), 5)
}

func TestSettingsSetValue(t *testing.T) {
	tests := []struct {
		param   SettingsParam
		value   uint32
		wantErr bool
	}{
		{SettingsHeaderTableSize, 0, false},
		{SettingsEnablePush, 0, false},
		{SettingsEnablePush, 1, false},
		{SettingsEnablePush, 2, true},
		{SettingsInitialWindowSize, 1<<31 - 1, false},
		{SettingsInitialWindowSize, 1 << 31, true},
		{SettingsMaxFrameSize, 16383, true},
		{SettingsMaxFrameSize, 16384, false},
		{SettingsMaxFrameSize, 1<<24 - 1, false},
		{SettingsMaxFrameSize, 1 << 24, true},
		{SettingsParam(0x99), 7, false},
	}
	for _, tt := range tests {
		err := NewSettings().SetValue(tt.param, tt.value)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidSetting, "%v=%d", tt.param, tt.value)
		} else {
			assert.NoError(t, err, "%v=%d", tt.param, tt.value)
		}
	}

	s := NewSettings()
	require.NoError(t, s.SetValue(SettingsMaxHeaderListSize, 8192))
	require.NotNil(t, s.MaxHeaderListSize)
	assert.Equal(t, uint32(8192), *s.MaxHeaderListSize)
	assert.Len(t, s.Settings(), 6)
}

func TestSettingsDecodePayload(t *testing.T) {
	payload := []byte{
		0x00, 0x01, 0x00, 0x00, 0x01, 0x00, // header table size 256
		0x00, 0x02, 0x00, 0x00, 0x00, 0x00, // push off
		0x00, 0x03, 0x00, 0x00, 0x00, 0x64, // 100 streams
	}
	s := NewSettings()
	require.NoError(t, s.DecodePayload(payload))
	assert.Equal(t, uint32(256), s.HeaderTableSize)
	assert.False(t, s.EnablePush)
	assert.Equal(t, uint32(100), s.MaxConcurrentStreams)

	assert.ErrorIs(t, s.DecodePayload(payload[:5]), ErrInvalidSetting)

	// curl's HTTP2-Settings value
	s = NewSettings()
	require.NoError(t, s.DecodeUpgradeHeader(base64.RawURLEncoding.EncodeToString(payload)))
	assert.Equal(t, uint32(256), s.HeaderTableSize)

	assert.ErrorIs(t, NewSettings().DecodeUpgradeHeader("!!"), ErrInvalidSetting)
}

func TestSettingsApplyFrame(t *testing.T) {
	var buf bytes.Buffer
	fr := http2.NewFramer(&buf, &buf)
	require.NoError(t, fr.WriteSettings(
		http2.Setting{ID: http2.SettingHeaderTableSize, Val: 1024},
		http2.Setting{ID: http2.SettingMaxFrameSize, Val: 32768},
	))
	f, err := fr.ReadFrame()
	require.NoError(t, err)

	s := NewSettings()
	require.NoError(t, s.ApplyFrame(f.(*http2.SettingsFrame)))
	assert.Equal(t, uint32(1024), s.HeaderTableSize)
	assert.Equal(t, uint32(32768), s.MaxFrameSize)

	// what we advertise reads back unchanged
	buf.Reset()
	require.NoError(t, fr.WriteSettings(s.Settings()...))
	f, err = fr.ReadFrame()
	require.NoError(t, err)
	again := NewSettings()
	require.NoError(t, again.ApplyFrame(f.(*http2.SettingsFrame)))
	assert.Equal(t, s, again)
}
