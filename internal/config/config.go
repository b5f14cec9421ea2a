// Package config handles livectl paths and the config file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/d2verb/livectl/internal/client"
	"github.com/d2verb/livectl/internal/frame"
	"github.com/d2verb/livectl/internal/pathutil"
	"github.com/d2verb/livectl/internal/protocol"
)

// Paths holds common paths used by livectl.
type Paths struct {
	Home      string
	Config    string
	Logs      string
	ClientLog string
	PeerLog   string
}

// GetPaths returns the paths for the current user.
func GetPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	livectlHome := filepath.Join(home, ".livectl")
	logsDir := filepath.Join(livectlHome, "logs")
	return &Paths{
		Home:      livectlHome,
		Config:    filepath.Join(livectlHome, "config.yaml"),
		Logs:      logsDir,
		ClientLog: filepath.Join(logsDir, "livectl.log"),
		PeerLog:   filepath.Join(logsDir, "peer.log"),
	}, nil
}

// EnsureDirectories creates the required directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.Home, p.Logs}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// Config is the contents of config.yaml.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	ModifyTimeout  time.Duration `yaml:"modify_timeout"`
	ReceiveTimeout time.Duration `yaml:"receive_timeout"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`

	ConnectAttempts int           `yaml:"connect_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`

	ChunkSize     int `yaml:"chunk_size"`
	MaxFrameBytes int `yaml:"max_frame_bytes"`

	ValidateCommand        string   `yaml:"validate_command"`
	ExtraModifyingCommands []string `yaml:"extra_modifying_commands"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:            client.DefaultHost,
		Port:            client.DefaultPort,
		ConnectTimeout:  client.DefaultConnectTimeout,
		ReadTimeout:     client.DefaultReadTimeout,
		ModifyTimeout:   client.DefaultModifyTimeout,
		ReceiveTimeout:  client.DefaultReceiveTimeout,
		SettleDelay:     client.DefaultSettleDelay,
		ProbeTimeout:    client.DefaultProbeTimeout,
		ConnectAttempts: client.DefaultConnectAttempts,
		RetryDelay:      client.DefaultRetryDelay,
		ChunkSize:       frame.DefaultChunkSize,
		MaxFrameBytes:   frame.DefaultMaxBytes,
		ValidateCommand: client.DefaultValidateCommand,
		LogLevel:        "info",
	}
}

// Load reads the config file at path on top of DefaultConfig.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	resolved, err := pathutil.ResolvePath(path, "")
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", resolved, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", resolved, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ConnectAttempts <= 0 {
		return errors.New("connect_attempts must be positive")
	}
	for name, d := range map[string]time.Duration{
		"connect_timeout": c.ConnectTimeout,
		"read_timeout":    c.ReadTimeout,
		"modify_timeout":  c.ModifyTimeout,
		"receive_timeout": c.ReceiveTimeout,
		"probe_timeout":   c.ProbeTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.SettleDelay < 0 {
		return errors.New("settle_delay must not be negative")
	}
	if c.RetryDelay <= 0 {
		return errors.New("retry_delay must be positive")
	}
	if c.ChunkSize <= 0 {
		return errors.New("chunk_size must be positive")
	}
	if c.MaxFrameBytes < c.ChunkSize {
		return errors.New("max_frame_bytes must be at least chunk_size")
	}
	if c.ValidateCommand == "" {
		return errors.New("validate_command must not be empty")
	}
	return nil
}

// ClientOptions converts the config into client options.
// A zero settle_delay disables settling.
func (c *Config) ClientOptions() client.Options {
	classifier := protocol.DefaultClassifier().WithModifying(c.ExtraModifyingCommands...)
	opts := client.Options{
		Host:            c.Host,
		Port:            c.Port,
		ConnectTimeout:  c.ConnectTimeout,
		ReadTimeout:     c.ReadTimeout,
		ModifyTimeout:   c.ModifyTimeout,
		ReceiveTimeout:  c.ReceiveTimeout,
		SettleDelay:     c.SettleDelay,
		ProbeTimeout:    c.ProbeTimeout,
		ConnectAttempts: c.ConnectAttempts,
		RetryDelay:      c.RetryDelay,
		ValidateCommand: c.ValidateCommand,
		ChunkSize:       c.ChunkSize,
		MaxFrameBytes:   c.MaxFrameBytes,
		Classifier:      &classifier,
	}
	if c.SettleDelay == 0 {
		opts.Settler = client.NoSettle{}
	}
	return opts
}
