package limitswatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/escapetime/pkg/fractal"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, `
[limits]
max_width = 640
max_height = 480
`)

	initial := fractal.Limits{MaxWidth: 10, MaxHeight: 77, MaxPixels: 5, MaxIterations: 9}
	w := New(initial, Config{Path: path, Pinned: map[string]bool{"max-height": true}})

	if got := w.Limits(); got != initial {
		t.Fatalf("Limits() before reload = %+v, want %+v", got, initial)
	}
	if err := w.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	defaults := fractal.DefaultLimits()
	want := fractal.Limits{
		MaxWidth:      640,
		MaxHeight:     77, // pinned
		MaxPixels:     defaults.MaxPixels,
		MaxIterations: defaults.MaxIterations,
	}
	if got := w.Limits(); got != want {
		t.Errorf("Limits() = %+v, want %+v", got, want)
	}
	if w.Reloads() != 1 {
		t.Errorf("Reloads() = %d, want 1", w.Reloads())
	}
}

func TestWatcher_Reload_InvalidFileKeepsLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, `this is not toml`)

	initial := fractal.DefaultLimits()
	w := New(initial, Config{Path: path})

	if err := w.Reload(); err == nil {
		t.Fatal("Reload() expected error for invalid TOML")
	}
	if w.Limits() != initial {
		t.Errorf("Limits() changed after failed reload")
	}
}

func TestWatcher_Reload_LogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	tests := []struct {
		name      string
		content   string
		pinned    map[string]bool
		wantLevel string
		wantErr   bool
	}{
		{"applies file level", `log_level = "debug"`, nil, "debug", false},
		{"missing level reverts to default", ``, nil, "info", false},
		{"pinned level untouched", `log_level = "debug"`, map[string]bool{"log-level": true}, "", false},
		{"invalid level rejected", `log_level = "loud"`, nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, path, tt.content)

			var got string
			w := New(fractal.DefaultLimits(), Config{
				Path:        path,
				Pinned:      tt.pinned,
				SetLogLevel: func(level string) error { got = level; return nil },
			})

			err := w.Reload()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Reload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.wantLevel {
				t.Errorf("SetLogLevel called with %q, want %q", got, tt.wantLevel)
			}
		})
	}
}

func TestWatcher_StartReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "[limits]\nmax_iterations = 100\n")

	var mu sync.Mutex
	var levels []string
	w := New(fractal.DefaultLimits(), Config{
		Path:          path,
		DebounceDelay: 10 * time.Millisecond,
		SetLogLevel: func(level string) error {
			mu.Lock()
			levels = append(levels, level)
			mu.Unlock()
			return nil
		},
	})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	writeConfig(t, path, "log_level = \"warn\"\n[limits]\nmax_iterations = 250\n")

	deadline := time.Now().Add(3 * time.Second)
	for w.Limits().MaxIterations != 250 {
		if time.Now().After(deadline) {
			t.Fatalf("limits not reloaded, MaxIterations = %d", w.Limits().MaxIterations)
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(levels) == 0 || levels[len(levels)-1] != "warn" {
		t.Errorf("log levels applied = %v, want last to be warn", levels)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "[limits]\nmax_iterations = 100\n")

	w := New(fractal.DefaultLimits(), Config{Path: path, DebounceDelay: 5 * time.Millisecond})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	writeConfig(t, filepath.Join(dir, "other.toml"), "[limits]\nmax_iterations = 7\n")
	time.Sleep(100 * time.Millisecond)
	w.Stop()

	if w.Reloads() != 0 {
		t.Errorf("Reloads() = %d, want 0", w.Reloads())
	}
}

func TestWatcher_StartWithoutPath(t *testing.T) {
	w := New(fractal.DefaultLimits(), Config{})
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("Start() without a path should fail")
	}
	w.Stop()
}
