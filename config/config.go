package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/jakegut/gohpack/buffer"
	"github.com/jakegut/gohpack/hpack"
	"github.com/jakegut/gohpack/http2"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid")

type TableConfig struct {
	DecoderSize int `yaml:"decoder_size"`
	EncoderSize int `yaml:"encoder_size"`
}

type LimitsConfig struct {
	MaxStringLength   int `yaml:"max_string_length"`
	MaxHeaderListSize int `yaml:"max_header_list_size"`
}

type CompressionConfig struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type ServerConfig struct {
	Listen       string `yaml:"listen"`
	MaxFrameSize uint32 `yaml:"max_frame_size"`
}

type LoggerConfig struct {
	Verbose bool `yaml:"verbose"`
	NoColor bool `yaml:"no_color"`
}

type Config struct {
	Table       TableConfig       `yaml:"table"`
	Limits      LimitsConfig      `yaml:"limits"`
	Compression CompressionConfig `yaml:"compression"`
	AlwaysIndex []string          `yaml:"always_index"`
	Server      ServerConfig      `yaml:"server"`
	Logger      LoggerConfig      `yaml:"logger"`
}

// Default is the configuration used when no file is given. A loaded file
// only overrides the keys it sets.
func Default() *Config {
	return &Config{
		Table: TableConfig{
			DecoderSize: hpack.DefaultMaxTableSize,
			EncoderSize: hpack.DefaultMaxTableSize,
		},
		Compression: CompressionConfig{
			Name:  hpack.CompressAuto.String(),
			Value: hpack.CompressAuto.String(),
		},
		AlwaysIndex: hpack.DefaultIndexedNames(),
		Server: ServerConfig{
			Listen:       ":8080",
			MaxFrameSize: 1 << 14,
		},
	}
}

func (c *Config) Validate() error {
	if c.Table.DecoderSize < 0 || c.Table.EncoderSize < 0 {
		return fmt.Errorf("%w: table sizes must not be negative", ErrInvalidConfig)
	}
	if c.Limits.MaxStringLength < 0 || c.Limits.MaxHeaderListSize < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalidConfig)
	}
	if _, err := hpack.ParseCompression(c.Compression.Name); err != nil {
		return fmt.Errorf("%w: compression.name: %s", ErrInvalidConfig, err)
	}
	if _, err := hpack.ParseCompression(c.Compression.Value); err != nil {
		return fmt.Errorf("%w: compression.value: %s", ErrInvalidConfig, err)
	}
	for _, name := range c.AlwaysIndex {
		if name == "" {
			return fmt.Errorf("%w: always_index has an empty name", ErrInvalidConfig)
		}
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("%w: server listen address is not set", ErrInvalidConfig)
	}
	if err := http2.NewSettings().SetValue(http2.SettingsMaxFrameSize, c.Server.MaxFrameSize); err != nil {
		return fmt.Errorf("%w: server.max_frame_size: %s", ErrInvalidConfig, err)
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Compressions returns the name and value compression modes. The config must
// have passed Validate.
func (c *Config) Compressions() (name, value hpack.Compression) {
	name, _ = hpack.ParseCompression(c.Compression.Name)
	value, _ = hpack.ParseCompression(c.Compression.Value)
	return name, value
}

func (c *Config) IndexPolicy() *hpack.IndexPolicy {
	return hpack.NewIndexPolicy(c.AlwaysIndex...)
}

func (c *Config) NewDecoder(pool *buffer.Pool) *hpack.Decoder {
	d := hpack.NewDecoder(c.Table.DecoderSize, pool)
	d.SetMaxStringLength(c.Limits.MaxStringLength)
	d.SetMaxHeaderListSize(c.Limits.MaxHeaderListSize)
	return d
}

func (c *Config) NewEncoder(pool *buffer.Pool) *hpack.Encoder {
	e := hpack.NewEncoder(c.Table.EncoderSize, pool)
	e.SetIndexPolicy(c.IndexPolicy())
	return e
}

// ConnectionSettings are the SETTINGS the inspection server advertises.
func (c *Config) ConnectionSettings() *http2.ConnectionSettings {
	s := http2.NewSettings()
	s.HeaderTableSize = uint32(c.Table.DecoderSize)
	s.MaxFrameSize = c.Server.MaxFrameSize
	s.EnablePush = false
	if c.Limits.MaxHeaderListSize > 0 {
		size := uint32(c.Limits.MaxHeaderListSize)
		s.MaxHeaderListSize = &size
	}
	return s
}
