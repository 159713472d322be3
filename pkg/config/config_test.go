package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	def := DefaultConfig()
	if cfg.Canvas.Width != def.Canvas.Width || cfg.Canvas.Height != def.Canvas.Height {
		t.Errorf("canvas defaults not applied: %+v", cfg.Canvas)
	}
	if cfg.Output.Extension != ".png" || !cfg.Output.Progress {
		t.Errorf("output defaults not applied: %+v", cfg.Output)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Canvas.Width = 512
	cfg.Canvas.Height = 256
	cfg.Processing.NumCores = 3
	cfg.Output.Progress = false

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Canvas.Width != 512 || loaded.Canvas.Height != 256 {
		t.Errorf("canvas = %+v", loaded.Canvas)
	}
	if loaded.Processing.NumCores != 3 {
		t.Errorf("numCores = %d, want 3", loaded.Processing.NumCores)
	}
	if loaded.Output.Progress {
		t.Error("progress should be false after round trip")
	}
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "canvas:\n  width: 2048\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Canvas.Width != 2048 {
		t.Errorf("width = %d, want 2048", cfg.Canvas.Width)
	}
	if cfg.Canvas.Height != DefaultConfig().Canvas.Height {
		t.Errorf("height should keep its default, got %d", cfg.Canvas.Height)
	}
	if cfg.Output.Extension != ".png" {
		t.Errorf("extension should keep its default, got %q", cfg.Output.Extension)
	}
}
