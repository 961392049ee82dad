// Package config keeps the agent configuration in a viper store. The
// store doubles as the policy store read by the client, so settings
// written back by the client (such as the last good relay) land in the
// same file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hostlink/uplink/pkg/metadata"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	ConfigName = "uplink"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")
)

type LogConfig struct {
	Output string `yaml:",omitempty" json:"output,omitempty"`
	Level  string `yaml:",omitempty" json:"level,omitempty"`
	Format string `yaml:",omitempty" json:"format,omitempty"`
}

type MetricsConfig struct {
	Addr string `json:"addr"`
	Path string `yaml:",omitempty" json:"path,omitempty"`
}

type Config struct {
	Log     *LogConfig     `yaml:",omitempty" json:"log,omitempty"`
	Metrics *MetricsConfig `yaml:",omitempty" json:"metrics,omitempty"`
}

var (
	_ metadata.Metadata = (*Store)(nil)
)

// Store is a metadata.Metadata backed by viper. When it was loaded from a
// file, Set writes the file back.
type Store struct {
	v  *viper.Viper
	mu sync.Mutex
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(ConfigName)
	v.AddConfigPath("/etc/uplink/")
	v.AddConfigPath("$HOME/.uplink/")
	v.AddConfigPath(".")
	return v
}

// Load reads file, or searches the default locations when file is empty.
// A missing file in the default locations yields an empty store.
func Load(file string) (*Store, error) {
	v := newViper()
	if file != "" {
		v.SetConfigFile(file)
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &nf) {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	return &Store{v: v}, nil
}

// Read builds an in-memory store from r in the given format (yaml, json,
// toml).
func Read(r io.Reader, format string) (*Store, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return &Store{v: v}, nil
}

func (s *Store) IsExists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.v.IsSet(key)
}

func (s *Store) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.v.Get(key)
}

func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(key, value)
	if s.v.ConfigFileUsed() == "" {
		return nil
	}
	return s.v.WriteConfig()
}

// File returns the path of the backing file, if any.
func (s *Store) File() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.v.ConfigFileUsed()
}

// Config returns the sections the binary itself consumes.
func (s *Store) Config() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := &Config{}
	if s.v.IsSet("log") {
		cfg.Log = &LogConfig{}
		if err := s.v.UnmarshalKey("log", cfg.Log); err != nil {
			return nil, err
		}
	}
	if s.v.IsSet("metrics") {
		cfg.Metrics = &MetricsConfig{}
		if err := s.v.UnmarshalKey("metrics", cfg.Metrics); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Write dumps every setting in the given format, yaml or json.
func (s *Store) Write(w io.Writer, format string) error {
	s.mu.Lock()
	settings := s.v.AllSettings()
	s.mu.Unlock()

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(settings)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(settings)
	}
	return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}
