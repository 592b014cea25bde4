package optim

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrUnknownSchedule = errors.New("optim: unknown schedule")

// Constant keeps the optimizer at a fixed learning rate.
type Constant struct {
	opt  Optimizer
	lr   float64
	last int
}

// NewConstant captures the optimizer's current learning rate. The schedule
// starts unstepped (LastEpoch() == -1).
func NewConstant(opt Optimizer) *Constant {
	return &Constant{opt: opt, lr: opt.LR(), last: -1}
}

func (s *Constant) Step() {
	s.last++
	s.opt.SetLR(s.lr)
}

func (s *Constant) LastEpoch() int { return s.last }

// WarmupCosine ramps the learning rate linearly to Peak over Warmup steps,
// then decays it along a half cosine to MinRatio*Peak at Total steps and
// holds it there.
type WarmupCosine struct {
	Peak     float64
	Warmup   int
	Total    int
	MinRatio float64

	opt  Optimizer
	last int
}

// NewWarmupCosine uses the optimizer's current learning rate as the peak
// and decays to a tenth of it.
func NewWarmupCosine(opt Optimizer, warmup, total int) *WarmupCosine {
	return &WarmupCosine{
		Peak:     opt.LR(),
		Warmup:   max(warmup, 0),
		Total:    total,
		MinRatio: 0.1,
		opt:      opt,
		last:     -1,
	}
}

func (s *WarmupCosine) Step() {
	s.last++
	s.opt.SetLR(s.At(s.last))
}

func (s *WarmupCosine) LastEpoch() int { return s.last }

// At returns the learning rate for step (0-based).
func (s *WarmupCosine) At(step int) float64 {
	if step < s.Warmup {
		return s.Peak * float64(step+1) / float64(s.Warmup)
	}
	minLR := s.Peak * s.MinRatio
	progress := 1.0
	if span := s.Total - s.Warmup; span > 0 {
		progress = min(float64(step-s.Warmup)/float64(span), 1)
	}
	return minLR + 0.5*(s.Peak-minLR)*(1+math.Cos(math.Pi*progress))
}

// Schedule is what the training stepper needs from a learning-rate
// schedule.
type Schedule interface {
	Step()
	LastEpoch() int
}

// NewSchedule builds a schedule by name ("constant" or "cosine"). total is
// the number of optimizer steps the run is expected to take.
func NewSchedule(name string, opt Optimizer, warmup, total int) (Schedule, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "constant":
		return NewConstant(opt), nil
	case "cosine", "warmup-cosine":
		return NewWarmupCosine(opt, warmup, total), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchedule, name)
	}
}
