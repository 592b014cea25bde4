// Package seqbatch cuts a flat token stream into next-token prediction
// batches.
//
// The stream is split into Lanes equal substreams which are laid side by
// side as the columns of a (lines, lanes) matrix. Batches are consecutive
// row windows of that matrix, so each lane resumes where the previous batch
// left off and a recurrent model can carry its state across batches.
package seqbatch

import (
	"errors"
	"fmt"
	"iter"

	"github.com/samcharles93/lanetrain/internal/tensor"
)

const (
	DefaultLanes  = 64
	DefaultWindow = 10
)

var (
	// ErrExhausted is returned by Next once the current pass is complete.
	ErrExhausted = errors.New("seqbatch: no more batches")

	ErrInvalidConfig = errors.New("seqbatch: invalid config")
)

// Config controls how a Batcher cuts its stream.
type Config struct {
	// Lanes is the number of parallel substreams (columns).
	Lanes int
	// Window is the base number of rows per batch.
	Window int
	// RandomizeWindow draws each window from Sampler instead of using
	// Window as is.
	RandomizeWindow bool
	// FlattenTarget emits targets as a single row of Window*Lanes ids.
	FlattenTarget bool
	// Sampler is used when RandomizeWindow is set. Nil selects a
	// NormalWindow seeded with Seed.
	Sampler WindowSampler
	Seed    uint64
}

// DefaultConfig returns the settings used for language model training.
func DefaultConfig() Config {
	return Config{
		Lanes:           DefaultLanes,
		Window:          DefaultWindow,
		RandomizeWindow: true,
		FlattenTarget:   true,
	}
}

// Batch is one (input, target) pair. Target is Input shifted one row
// forward, flattened if the batcher was configured to.
type Batch struct {
	Input  tensor.Tokens
	Target tensor.Tokens
}

// Batcher is a restartable, single-pass source of batches. It is not safe
// for concurrent use.
type Batcher struct {
	cfg     Config
	sampler WindowSampler
	m       tensor.Tokens

	lines   int
	maxIter int

	line int
	iter int
}

// New lays seq out across cfg.Lanes lanes. Trailing ids that do not fill a
// complete row are dropped. The batcher keeps its own copy of the ids.
func New(seq []int32, cfg Config) (*Batcher, error) {
	if cfg.Lanes < 1 {
		return nil, fmt.Errorf("%w: lanes must be >= 1 (got %d)", ErrInvalidConfig, cfg.Lanes)
	}
	if cfg.Window < 1 {
		return nil, fmt.Errorf("%w: window must be >= 1 (got %d)", ErrInvalidConfig, cfg.Window)
	}

	lines := len(seq) / cfg.Lanes
	ids := make([]int32, lines*cfg.Lanes)
	copy(ids, seq)
	byLane, err := tensor.Reshape(ids, cfg.Lanes, lines)
	if err != nil {
		return nil, fmt.Errorf("seqbatch: %w", err)
	}

	sampler := cfg.Sampler
	switch {
	case !cfg.RandomizeWindow:
		sampler = FixedWindow{}
	case sampler == nil:
		sampler = NewNormalWindow(cfg.Seed)
	}

	return &Batcher{
		cfg:     cfg,
		sampler: sampler,
		m:       byLane.Transpose(),
		lines:   lines,
		maxIter: lines/cfg.Window - 1,
	}, nil
}

// Lines returns the number of rows in the lane matrix.
func (b *Batcher) Lines() int { return b.lines }

// Lanes returns the number of columns in the lane matrix.
func (b *Batcher) Lanes() int { return b.cfg.Lanes }

// MaxIterations is the most batches a single pass can emit.
func (b *Batcher) MaxIterations() int { return max(b.maxIter, 0) }

// Progress returns the current row cursor and the number of batches
// emitted in this pass.
func (b *Batcher) Progress() (line, iteration int) { return b.line, b.iter }

// Matrix returns the (lines, lanes) matrix. It must not be modified.
func (b *Batcher) Matrix() tensor.Tokens { return b.m }

// Restart rewinds to the first row. The lane matrix is not rebuilt.
func (b *Batcher) Restart() {
	b.line = 0
	b.iter = 0
}

// Done reports whether the current pass is complete.
func (b *Batcher) Done() bool {
	return b.line >= b.lines-1 || b.iter >= b.maxIter
}

// Next returns the next batch or ErrExhausted.
func (b *Batcher) Next() (Batch, error) {
	if b.Done() {
		return Batch{}, ErrExhausted
	}
	w := b.cfg.Window
	if b.cfg.RandomizeWindow {
		w = max(b.sampler.Sample(w), 1)
	}
	w = min(w, b.lines-1-b.line)

	in := b.m.Rows(b.line, b.line+w)
	target := b.m.Rows(b.line+1, b.line+1+w)
	if b.cfg.FlattenTarget {
		target = target.Flatten()
	}
	b.line += w
	b.iter++
	return Batch{Input: in, Target: target}, nil
}

// All restarts the batcher and yields batches until the pass is complete.
// Every call to the returned sequence starts a new pass, so it can be
// handed to a training loop that ranges over it once per epoch.
func (b *Batcher) All() iter.Seq2[tensor.Tokens, tensor.Tokens] {
	return func(yield func(tensor.Tokens, tensor.Tokens) bool) {
		b.Restart()
		for {
			batch, err := b.Next()
			if err != nil {
				return
			}
			if !yield(batch.Input, batch.Target) {
				return
			}
		}
	}
}
