// Package config loads server configuration files.
//
// YAML (.yaml, .yml) and TOML (.toml) files share one schema:
//
//	name: Test
//	query_address: ":45321"
//	control_address: ":9050"
//	metrics_address: ":9100"
//	interface: en0
//	discovery: true
//	strict_discovery: false
//	probe_timeout: 1.5s
//	shutdown_timeout: 5s
//	session_queue_size: 256
//	log_level: info
//	protocol_log: /var/log/oscquery.olog
//	demo: false
//	params: [hands.yaml]
//
// Only keys present in the file override the defaults; unknown keys are an
// error.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/plml/oscquery-go/pkg/service"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// File is the on-disk configuration. Nil fields were absent from the file.
type File struct {
	Name             *string  `yaml:"name" toml:"name"`
	QueryAddress     *string  `yaml:"query_address" toml:"query_address"`
	ControlAddress   *string  `yaml:"control_address" toml:"control_address"`
	MetricsAddress   *string  `yaml:"metrics_address" toml:"metrics_address"`
	Interface        *string  `yaml:"interface" toml:"interface"`
	Discovery        *bool    `yaml:"discovery" toml:"discovery"`
	StrictDiscovery  *bool    `yaml:"strict_discovery" toml:"strict_discovery"`
	ProbeTimeout     *string  `yaml:"probe_timeout" toml:"probe_timeout"`
	ShutdownTimeout  *string  `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	SessionQueueSize *int     `yaml:"session_queue_size" toml:"session_queue_size"`
	LogLevel         *string  `yaml:"log_level" toml:"log_level"`
	ProtocolLog      *string  `yaml:"protocol_log" toml:"protocol_log"`
	Demo             *bool    `yaml:"demo" toml:"demo"`
	Params           []string `yaml:"params" toml:"params"`
}

// Load reads path, choosing the format by extension. Relative params paths
// are resolved against the file's directory.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = decodeYAML(data, &f)
	case ".toml":
		err = decodeTOML(data, &f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, p := range f.Params {
		if !filepath.IsAbs(p) {
			f.Params[i] = filepath.Join(dir, p)
		}
	}
	return &f, nil
}

func decodeYAML(data []byte, f *File) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeTOML(data []byte, f *File) error {
	meta, err := toml.Decode(string(data), f)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Apply overrides c with every value set in f.
func (f *File) Apply(c *service.Config) error {
	if f.Name != nil {
		c.ServiceName = strings.TrimSpace(*f.Name)
	}
	if f.QueryAddress != nil {
		c.QueryAddress = strings.TrimSpace(*f.QueryAddress)
	}
	if f.ControlAddress != nil {
		c.ControlAddress = strings.TrimSpace(*f.ControlAddress)
	}
	if f.MetricsAddress != nil {
		c.MetricsAddress = strings.TrimSpace(*f.MetricsAddress)
	}
	if f.Interface != nil {
		c.Interface = strings.TrimSpace(*f.Interface)
	}
	if f.Discovery != nil {
		c.DisableDiscovery = !*f.Discovery
	}
	if f.StrictDiscovery != nil {
		c.StrictDiscovery = *f.StrictDiscovery
	}
	if f.ProbeTimeout != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*f.ProbeTimeout))
		if err != nil {
			return fmt.Errorf("parse probe_timeout: %w", err)
		}
		c.ProbeTimeout = d
	}
	if f.ShutdownTimeout != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*f.ShutdownTimeout))
		if err != nil {
			return fmt.Errorf("parse shutdown_timeout: %w", err)
		}
		c.ShutdownTimeout = d
	}
	if f.SessionQueueSize != nil {
		c.SessionQueueSize = *f.SessionQueueSize
	}
	return nil
}

// Level returns the configured log level, or fallback when unset.
func (f *File) Level(fallback slog.Level) (slog.Level, error) {
	if f.LogLevel == nil {
		return fallback, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(*f.LogLevel))); err != nil {
		return fallback, fmt.Errorf("parse log_level: %w", err)
	}
	return l, nil
}
