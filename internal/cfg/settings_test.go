package cfg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mediadl/internal/domain/errs"
	"mediadl/internal/domain/keys"

	"github.com/spf13/viper"
)

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveFFmpeg(t *testing.T) {
	dir := t.TempDir()
	bin := writeExecutable(t, dir, "ffmpeg")
	t.Setenv("PATH", dir)

	got, err := resolveFFmpeg("")
	if err != nil || got != bin {
		t.Fatalf("PATH lookup = %q, %v; want %q", got, err, bin)
	}

	custom := writeExecutable(t, t.TempDir(), "ffmpeg-static")
	if got, err := resolveFFmpeg(custom); err != nil || got != custom {
		t.Fatalf("configured path = %q, %v; want %q", got, err, custom)
	}

	if _, err := resolveFFmpeg(filepath.Join(dir, "missing")); !errors.Is(err, errs.ErrNoFFmpeg) {
		t.Fatalf("missing configured binary error = %v, want ErrNoFFmpeg", err)
	}

	t.Setenv("PATH", t.TempDir())
	if _, err := resolveFFmpeg(""); !errors.Is(err, errs.ErrNoFFmpeg) {
		t.Fatalf("empty PATH error = %v, want ErrNoFFmpeg", err)
	}
}

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadConfigFile(t *testing.T) {
	resetViper(t)

	file := filepath.Join(t.TempDir(), "mediadl.yaml")
	content := "concurrency: 5\ndownload-dir: /srv/media\ntick-interval: 300ms\nno-journal: true\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetDefault(keys.EvictionGrace, 2*time.Second)

	if err := loadConfigFile(file); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}

	s, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.Concurrency != 5 || s.DownloadDir != "/srv/media" || s.TickInterval != 300*time.Millisecond || !s.NoJournal {
		t.Fatalf("settings = %+v", s)
	}
}

func TestLoadConfigFileRejectsDirectory(t *testing.T) {
	if err := loadConfigFile(t.TempDir()); err == nil {
		t.Fatal("expected an error for a directory")
	}
}

func TestLoadSettingsValidates(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
	}{
		{"zero concurrency", map[string]any{keys.Concurrency: 0}},
		{"zero tick", map[string]any{keys.TickInterval: time.Duration(0)}},
		{"no download dir", map[string]any{keys.DownloadDir: ""}},
		{"journal without db", map[string]any{keys.DBPath: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			viper.Set(keys.Concurrency, 2)
			viper.Set(keys.TickInterval, time.Second)
			viper.Set(keys.DownloadDir, "/tmp/dl")
			viper.Set(keys.DBPath, "/tmp/mediadl.db")
			for k, v := range tt.set {
				viper.Set(k, v)
			}

			if _, err := loadSettings(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}
