// Package config loads lanetrain run settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samcharles93/lanetrain/internal/logger"
)

// Config captures every knob of a training run. Command-line flags that
// were explicitly set take precedence over values loaded from a file.
type Config struct {
	Data      Data      `yaml:"data"`
	Batching  Batching  `yaml:"batching"`
	Model     Model     `yaml:"model"`
	Optimizer Optimizer `yaml:"optimizer"`
	Schedule  Schedule  `yaml:"schedule"`
	Loop      Loop      `yaml:"loop"`
	Callbacks Callbacks `yaml:"callbacks"`
	Status    Status    `yaml:"status"`
	Log       Log       `yaml:"log"`
}

type Data struct {
	// Train and Valid are token files (.tok) or whitespace-separated id
	// text files (.txt).
	Train string `yaml:"train"`
	Valid string `yaml:"valid"`
	// ValidFraction carves a validation tail off Train when Valid is empty.
	ValidFraction float64 `yaml:"valid_fraction"`
}

type Batching struct {
	Lanes         int    `yaml:"lanes"`
	Window        int    `yaml:"window"`
	RandomWindow  bool   `yaml:"random_window"`
	FlattenTarget bool   `yaml:"flatten_target"`
	Seed          uint64 `yaml:"seed"`
}

type Model struct {
	// Vocab of 0 sizes the model from the largest id in the data.
	Vocab  int   `yaml:"vocab"`
	Hidden int   `yaml:"hidden"`
	Seed   int64 `yaml:"seed"`
}

type Optimizer struct {
	Name        string  `yaml:"name"`
	LR          float64 `yaml:"lr"`
	Momentum    float64 `yaml:"momentum"`
	WeightDecay float64 `yaml:"weight_decay"`
	GradClip    float64 `yaml:"grad_clip"`
}

type Schedule struct {
	Name   string `yaml:"name"`
	Warmup int    `yaml:"warmup"`
}

type Loop struct {
	Epochs int     `yaml:"epochs"`
	Alpha  float64 `yaml:"alpha"`
}

type Callbacks struct {
	Checkpoint string  `yaml:"checkpoint"`
	History    string  `yaml:"history"`
	Patience   int     `yaml:"patience"`
	MinDelta   float64 `yaml:"min_delta"`
	LogEvery   int     `yaml:"log_every"`
}

type Status struct {
	Addr string `yaml:"addr"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Data:      Data{ValidFraction: 0.1},
		Batching:  Batching{Lanes: 64, Window: 10, RandomWindow: true, FlattenTarget: true},
		Model:     Model{Hidden: 64, Seed: 1},
		Optimizer: Optimizer{Name: "adamw", LR: 1e-2, WeightDecay: 0.01, GradClip: 1},
		Schedule:  Schedule{Name: "constant"},
		Loop:      Loop{Epochs: 10, Alpha: 0.98},
		Callbacks: Callbacks{LogEvery: 50},
		Log:       Log{Level: "info", Format: "pretty"},
	}
}

// UserPath returns the per-user config file location, or "" if the user
// config directory is unknown.
func UserPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lanetrain", "config.yaml")
}

// Load reads path over the defaults. The file must exist.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer func() { _ = f.Close() }()
	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadUser reads the per-user config file, falling back to the defaults
// when it does not exist.
func LoadUser() (Config, error) {
	path := UserPath()
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Decode parses YAML from r over the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every setting that cannot be used for a run.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if f := c.Data.ValidFraction; f < 0 || f >= 1 {
		add("data.valid_fraction must be in [0, 1) (got %v)", f)
	}
	if c.Batching.Lanes < 1 {
		add("batching.lanes must be >= 1 (got %d)", c.Batching.Lanes)
	}
	if c.Batching.Window < 1 {
		add("batching.window must be >= 1 (got %d)", c.Batching.Window)
	}
	if c.Model.Vocab < 0 {
		add("model.vocab must be >= 0 (got %d)", c.Model.Vocab)
	}
	if c.Model.Hidden < 1 {
		add("model.hidden must be >= 1 (got %d)", c.Model.Hidden)
	}
	switch strings.ToLower(c.Optimizer.Name) {
	case "sgd", "adam", "adamw":
	default:
		add("optimizer.name must be sgd or adamw (got %q)", c.Optimizer.Name)
	}
	if c.Optimizer.LR <= 0 {
		add("optimizer.lr must be > 0 (got %v)", c.Optimizer.LR)
	}
	switch strings.ToLower(c.Schedule.Name) {
	case "", "constant", "cosine", "warmup-cosine":
	default:
		add("schedule.name must be constant or cosine (got %q)", c.Schedule.Name)
	}
	if c.Schedule.Warmup < 0 {
		add("schedule.warmup must be >= 0 (got %d)", c.Schedule.Warmup)
	}
	if c.Loop.Epochs < 0 {
		add("loop.epochs must be >= 0 (got %d)", c.Loop.Epochs)
	}
	if a := c.Loop.Alpha; a < 0 || a >= 1 {
		add("loop.alpha must be in [0, 1) (got %v)", a)
	}
	if c.Callbacks.Patience < 0 {
		add("callbacks.patience must be >= 0 (got %d)", c.Callbacks.Patience)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %v", err)
	}
	if !logger.KnownFormat(c.Log.Format) {
		add("log.format must be pretty, json or text (got %q)", c.Log.Format)
	}
	return errors.Join(errs...)
}
