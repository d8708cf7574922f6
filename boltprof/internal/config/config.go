package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

////////////////////////////////////////////////////////////////////////////////

// ByteSize is a size written in human form, e.g. "512MiB" or "4 GB".
type ByteSize uint64

func (s *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	size, err := humanize.ParseBytes(raw)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", raw, err)
	}
	*s = ByteSize(size)
	return nil
}

func (s ByteSize) MarshalYAML() (any, error) {
	return s.String(), nil
}

func (s ByteSize) String() string {
	return humanize.IBytes(uint64(s))
}

////////////////////////////////////////////////////////////////////////////////

type LoadConfig struct {
	// Number of files parsed in parallel.
	Concurrency int `yaml:"concurrency"`
	// Larger files are rejected before reading.
	MaxFileSize ByteSize `yaml:"max_file_size"`
	// Bound on the total size of files held in memory during batch loads. Zero is unlimited.
	MaxInFlight ByteSize `yaml:"max_in_flight"`
	// Skip mode detection and expect sample records.
	ForceNoLBR bool `yaml:"force_no_lbr"`
}

type MetricsConfig struct {
	// Prometheus text metrics are written here after each command.
	Output string `yaml:"output"`
}

type Config struct {
	LogLevel string        `yaml:"log_level"`
	Load     LoadConfig    `yaml:"load"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

const (
	defaultConcurrency = 4
	defaultMaxFileSize = ByteSize(4 << 30)
)

func (c *Config) fillDefault() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Load.Concurrency == 0 {
		c.Load.Concurrency = defaultConcurrency
	}
	if c.Load.MaxFileSize == 0 {
		c.Load.MaxFileSize = defaultMaxFileSize
	}
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.Load.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("load.concurrency: %d must be positive", c.Load.Concurrency))
	}
	return errors.Join(errs...)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	conf := &Config{}
	conf.fillDefault()
	return conf
}

func ParseConfig(path string, strict bool) (conf *Config, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	conf = &Config{}
	dec := yaml.NewDecoder(file)
	dec.KnownFields(strict)
	if err = dec.Decode(conf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	conf.fillDefault()
	if err = conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return conf, nil
}

// Dump writes conf back as yaml.
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
