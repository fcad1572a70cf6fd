package cliconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/escapetime/pkg/fractal"
)

func TestApplyFileConfig(t *testing.T) {
	falseVal := false

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				ListenAddr:      "127.0.0.1:8000",
				AllowedOrigins:  []string{"https://fractals.example.com"},
				RequestTimeout:  "1m",
				ShutdownTimeout: "5s",
				Workers:         2,
				MaxBodyBytes:    4096,
				LogLevel:        "warn",
				LogFormat:       "json",
				WatchConfig:     &falseVal,
				Limits:          fractal.Limits{MaxWidth: 100, MaxHeight: 100, MaxPixels: 10000, MaxIterations: 50},
			},
			changed: map[string]bool{},
			initial: Config{WatchConfig: true},
			expected: Config{
				ListenAddr:      "127.0.0.1:8000",
				AllowedOrigins:  []string{"https://fractals.example.com"},
				RequestTimeout:  time.Minute,
				ShutdownTimeout: 5 * time.Second,
				Workers:         2,
				MaxBodyBytes:    4096,
				LogLevel:        "warn",
				LogFormat:       "json",
				WatchConfig:     false,
				Limits:          fractal.Limits{MaxWidth: 100, MaxHeight: 100, MaxPixels: 10000, MaxIterations: 50},
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				ListenAddr: ":9000",
				Limits:     fractal.Limits{MaxWidth: 100, MaxHeight: 200},
			},
			changed: map[string]bool{"listen": true, "max-width": true},
			initial: Config{ListenAddr: ":7000", Limits: fractal.Limits{MaxWidth: 5}},
			expected: Config{
				ListenAddr: ":7000", // unchanged because flag was set
				Limits:     fractal.Limits{MaxWidth: 5, MaxHeight: 200},
			},
		},
		{
			name:       "empty file keeps defaults",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    DefaultConfig(),
			expected:   DefaultConfig(),
		},
		{
			name:       "returns error for invalid duration",
			fileConfig: FileConfig{ShutdownTimeout: "eventually"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	tomlContent := `
listen_addr = ":8080"
allowed_origins = ["http://localhost:3000", "https://fractals.example.com"]
request_timeout = "45s"
log_level = "debug"
watch_config = false

[limits]
max_width = 1920
max_iterations = 2000
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %v, want :8080", fc.ListenAddr)
	}
	if len(fc.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v, want 2 entries", fc.AllowedOrigins)
	}
	if fc.RequestTimeout != "45s" {
		t.Errorf("RequestTimeout = %v, want 45s", fc.RequestTimeout)
	}
	if fc.Limits.MaxWidth != 1920 || fc.Limits.MaxIterations != 2000 {
		t.Errorf("Limits = %+v, want max_width 1920 and max_iterations 2000", fc.Limits)
	}
	if fc.Limits.MaxHeight != 0 {
		t.Errorf("MaxHeight = %v, want 0 when unset", fc.Limits.MaxHeight)
	}
	if fc.WatchConfig == nil || *fc.WatchConfig != false {
		t.Errorf("WatchConfig = %v, want false", fc.WatchConfig)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
listen_addr = ":8000"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".escapetime") {
		t.Errorf("DefaultConfigPath() = %v, should contain .escapetime", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
