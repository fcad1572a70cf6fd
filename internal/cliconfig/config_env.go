package cliconfig

import "os"

// EnvPrefix is the prefix of every environment variable read by ApplyEnvConfig.
const EnvPrefix = "ESCAPETIME_"

// envFlags maps environment variable names (without EnvPrefix) to the flag
// they stand in for.
var envFlags = map[string]string{
	"LISTEN_ADDR":      "listen",
	"ALLOWED_ORIGINS":  "allowed-origin",
	"LOG_LEVEL":        "log-level",
	"LOG_FORMAT":       "log-format",
	"REQUEST_TIMEOUT":  "request-timeout",
	"SHUTDOWN_TIMEOUT": "shutdown-timeout",
	"WORKERS":          "workers",
	"MAX_BODY_BYTES":   "max-body-bytes",
	"MAX_WIDTH":        "max-width",
	"MAX_HEIGHT":       "max-height",
	"MAX_PIXELS":       "max-pixels",
	"MAX_ITERATIONS":   "max-iterations",
	"WATCH_CONFIG":     "watch-config",
}

// ApplyEnvConfig applies configuration from environment variables (ESCAPETIME_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("listen", env("LISTEN_ADDR"), &cfg.ListenAddr)
	s.setStringsFromString("allowed-origin", env("ALLOWED_ORIGINS"), &cfg.AllowedOrigins)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", env("LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setDuration("request-timeout", env("REQUEST_TIMEOUT"), &cfg.RequestTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", env("SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}

	ints := []struct {
		flag, name string
		dst        *int
	}{
		{"workers", "WORKERS", &cfg.Workers},
		{"max-body-bytes", "MAX_BODY_BYTES", &cfg.MaxBodyBytes},
		{"max-width", "MAX_WIDTH", &cfg.Limits.MaxWidth},
		{"max-height", "MAX_HEIGHT", &cfg.Limits.MaxHeight},
		{"max-pixels", "MAX_PIXELS", &cfg.Limits.MaxPixels},
		{"max-iterations", "MAX_ITERATIONS", &cfg.Limits.MaxIterations},
	}
	for _, i := range ints {
		if err := s.setIntFromString(i.flag, env(i.name), i.dst); err != nil {
			return err
		}
	}

	s.setBoolFromString("watch-config", env("WATCH_CONFIG"), &cfg.WatchConfig)

	return nil
}

// PinnedFlags returns the flags whose value came from the command line or
// the environment. A config file reload must leave these alone.
func PinnedFlags(changed map[string]bool) map[string]bool {
	pinned := make(map[string]bool, len(changed))
	for flag, set := range changed {
		if set {
			pinned[flag] = true
		}
	}
	for name, flag := range envFlags {
		if os.Getenv(EnvPrefix+name) != "" {
			pinned[flag] = true
		}
	}
	return pinned
}
