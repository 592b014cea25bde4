package train

import (
	"errors"
	"math"

	"github.com/samcharles93/lanetrain/internal/logger"
)

var errNotBound = errors.New("train: checkpoint used outside a loop")

// Checkpoint saves the model whenever the watched phase ends an epoch with
// a lower mean batch loss than any earlier epoch. Only the latest best
// snapshot is kept at Path.
type Checkpoint struct {
	Path  string
	Phase string
	Log   logger.Logger

	loop  Controller
	epoch epochLoss
	best  float64
	saves int
	err   error
}

func NewCheckpoint(path string, log logger.Logger) *Checkpoint {
	if log == nil {
		log = logger.Discard()
	}
	return &Checkpoint{Path: path, Phase: PhaseValid, Log: log}
}

func (c *Checkpoint) BindLoop(loop Controller) { c.loop = loop }

func (c *Checkpoint) OnTrainingStart() Signal {
	c.best = math.Inf(1)
	c.saves = 0
	c.err = nil
	return Continue
}

func (c *Checkpoint) watched() string {
	if c.Phase == "" {
		return PhaseValid
	}
	return c.Phase
}

func (c *Checkpoint) OnEpochStart(epoch int, phase *Phase) Signal {
	if phase.Name == c.watched() {
		c.epoch.reset()
	}
	return Continue
}

func (c *Checkpoint) OnBatchEnd(epoch int, phase *Phase) Signal {
	if phase.Name == c.watched() {
		c.epoch.add(phase.LastLoss)
	}
	return Continue
}

func (c *Checkpoint) OnEpochEnd(epoch int, phase *Phase) Signal {
	if phase.Name != c.watched() {
		return Continue
	}
	loss, ok := c.epoch.mean()
	if !ok || !(loss < c.best) {
		return Continue
	}
	if c.loop == nil {
		c.err = errNotBound
		return Continue
	}
	if err := c.loop.SaveModel(c.Path); err != nil {
		c.err = err
		c.Log.Error("checkpoint failed", "path", c.Path, "error", err)
		return Continue
	}
	c.best = loss
	c.saves++
	c.Log.Info("checkpoint saved", "epoch", epoch, "path", c.Path, "loss", loss)
	return Continue
}

// Best returns the epoch loss of the latest snapshot.
func (c *Checkpoint) Best() float64 { return c.best }

// Saves returns how many snapshots were written during the last run.
func (c *Checkpoint) Saves() int { return c.saves }

// Err returns the most recent save error.
func (c *Checkpoint) Err() error { return c.err }
