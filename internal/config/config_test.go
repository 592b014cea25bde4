package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Batching.Lanes != 64 || cfg.Batching.Window != 10 || !cfg.Batching.RandomWindow || !cfg.Batching.FlattenTarget {
		t.Fatalf("unexpected batching defaults %+v", cfg.Batching)
	}
	if cfg.Loop.Alpha != 0.98 {
		t.Fatalf("alpha = %v", cfg.Loop.Alpha)
	}
}

func TestDecodeOverlaysDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Decode(strings.NewReader(`
data:
  train: corpus.tok
batching:
  window: 20
  random_window: false
optimizer:
  name: sgd
  lr: 0.5
loop:
  epochs: 3
`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Data.Train != "corpus.tok" || cfg.Batching.Window != 20 || cfg.Batching.RandomWindow {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Batching.Lanes != 64 || !cfg.Batching.FlattenTarget || cfg.Data.ValidFraction != 0.1 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.Optimizer.Name != "sgd" || cfg.Optimizer.LR != 0.5 || cfg.Loop.Epochs != 3 {
		t.Fatalf("unexpected values %+v %+v", cfg.Optimizer, cfg.Loop)
	}
}

func TestDecodeEmpty(t *testing.T) {
	t.Parallel()
	cfg, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("empty document should give defaults, got %+v", cfg)
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	if _, err := Decode(strings.NewReader("batching:\n  bptt: 10\n")); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(path, []byte("loop:\n  epochs: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Loop.Epochs != 7 {
		t.Fatalf("epochs = %d", cfg.Loop.Epochs)
	}

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Batching.Lanes = 0
	cfg.Batching.Window = -1
	cfg.Optimizer.Name = "lion"
	cfg.Loop.Alpha = 1
	cfg.Log.Format = "xml"
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"batching.lanes", "batching.window", "optimizer.name", "loop.alpha", "log.level", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestUserPath(t *testing.T) {
	t.Parallel()
	p := UserPath()
	if p != "" && !strings.HasSuffix(p, filepath.Join("lanetrain", "config.yaml")) {
		t.Fatalf("UserPath = %q", p)
	}
}
