package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.TaskFolder != "renders" {
		t.Errorf("TaskFolder = %q", cfg.TaskFolder)
	}
	if cfg.Thumbnails.Size != 512 {
		t.Errorf("Thumbnails.Size = %d", cfg.Thumbnails.Size)
	}
	if cfg.Thumbnails.SizeCeilingMB != 500 {
		t.Errorf("Thumbnails.SizeCeilingMB = %d", cfg.Thumbnails.SizeCeilingMB)
	}
	if cfg.SettingsDir == "" {
		t.Error("SettingsDir not defaulted")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	payload := `
task_folder = "comps"
log_level = "debug"

[bookmark]
server = "/mnt/projects"
job = "show01"
root = "assets"

[thumbnails]
size = 256

[workers]
info = 4
`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.TaskFolder != "comps" {
		t.Errorf("TaskFolder = %q", cfg.TaskFolder)
	}
	if cfg.Bookmark.Path() != "/mnt/projects/show01/assets" {
		t.Errorf("Bookmark.Path() = %q", cfg.Bookmark.Path())
	}
	if cfg.Thumbnails.Size != 256 {
		t.Errorf("Thumbnails.Size = %d", cfg.Thumbnails.Size)
	}
	if cfg.Thumbnails.DecodeTimeoutSec != 30 {
		t.Errorf("DecodeTimeoutSec default lost: %d", cfg.Thumbnails.DecodeTimeoutSec)
	}
	if cfg.Workers.Info != 4 {
		t.Errorf("Workers.Info = %d", cfg.Workers.Info)
	}

	want := filepath.Join("/mnt/projects/show01/assets", ".bookmarks", "thumbnails")
	if cfg.CacheDir != want {
		t.Errorf("CacheDir = %q, want %q", cfg.CacheDir, want)
	}
}
