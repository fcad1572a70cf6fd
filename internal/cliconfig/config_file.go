package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/escapetime/pkg/fractal"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
//
//	listen_addr = ":8000"
//	allowed_origins = ["http://localhost:3000"]
//	request_timeout = "30s"
//	log_level = "info"
//
//	[limits]
//	max_width = 4096
//	max_iterations = 100000
type FileConfig struct {
	ListenAddr      string         `toml:"listen_addr"`
	AllowedOrigins  []string       `toml:"allowed_origins"`
	RequestTimeout  string         `toml:"request_timeout"`
	ShutdownTimeout string         `toml:"shutdown_timeout"`
	Workers         int            `toml:"workers"`
	MaxBodyBytes    int            `toml:"max_body_bytes"`
	LogLevel        string         `toml:"log_level"`
	LogFormat       string         `toml:"log_format"`
	WatchConfig     *bool          `toml:"watch_config"`
	Limits          fractal.Limits `toml:"limits"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.escapetime/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".escapetime", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setStrings("allowed-origin", fc.AllowedOrigins, &cfg.AllowedOrigins)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	if err := s.setDuration("request-timeout", fc.RequestTimeout, &cfg.RequestTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setInt("workers", fc.Workers, &cfg.Workers)
	s.setInt("max-body-bytes", fc.MaxBodyBytes, &cfg.MaxBodyBytes)
	ApplyFileLimits(&cfg.Limits, fc.Limits, changed)

	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)

	return nil
}

// ApplyFileLimits copies the non-zero limits of fl into dst, skipping any
// whose flag was set on the command line.
func ApplyFileLimits(dst *fractal.Limits, fl fractal.Limits, changed map[string]bool) {
	s := newConfigSetter(changed)
	s.setInt("max-width", fl.MaxWidth, &dst.MaxWidth)
	s.setInt("max-height", fl.MaxHeight, &dst.MaxHeight)
	s.setInt("max-pixels", fl.MaxPixels, &dst.MaxPixels)
	s.setInt("max-iterations", fl.MaxIterations, &dst.MaxIterations)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
