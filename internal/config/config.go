// Package config loads h5pipe settings from defaults, an optional YAML
// file and H5PIPE_* environment variables, in that order.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/robert-malhotra/h5pipe/internal/logging"
	"github.com/robert-malhotra/h5pipe/pipeio"
)

// EnvPrefix prefixes every environment variable, as in
// H5PIPE_COMPRESSION_CODEC.
const EnvPrefix = "H5PIPE"

// Config holds all h5pipe configuration.
type Config struct {
	Data        DataConfig        `yaml:"data"`
	Output      OutputConfig      `yaml:"output"`
	Compression CompressionConfig `yaml:"compression"`
	Logging     LogConfig         `yaml:"logging"`
}

// DataConfig selects input files.
type DataConfig struct {
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
}

// OutputConfig names the container and group datasets are written to.
type OutputConfig struct {
	Path  string `yaml:"path"`
	Group string `yaml:"group"`
}

// CompressionConfig selects the dataset codec.
type CompressionConfig struct {
	Codec   string `yaml:"codec"`
	Level   int    `yaml:"level"`
	Shuffle bool   `yaml:"shuffle"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:     ".",
			Pattern: "*.csv",
		},
		Output: OutputConfig{
			Path:  "out.h5",
			Group: "data",
		},
		Compression: CompressionConfig{
			Codec: string(pipeio.CodecGzip),
			Level: pipeio.DefaultGzipLevel,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// Load starts from Default, applies the YAML file at path if path is not
// empty, then applies environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the codec, gzip level and log level.
func (c *Config) Validate() error {
	if err := c.Compression.Options().Validate(); err != nil {
		return fmt.Errorf("invalid compression: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// Options maps the section onto the pipeio compression setting.
func (c CompressionConfig) Options() pipeio.Compression {
	return pipeio.Compression{
		Codec:   pipeio.Codec(c.Codec),
		Level:   c.Level,
		Shuffle: c.Shuffle,
	}
}

// Logger returns the logging setup for this configuration.
func (c LogConfig) Logger() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Level
	cfg.Development = c.Development
	return cfg
}
