package train

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/samcharles93/lanetrain/internal/logger"
)

// DefaultAlpha is the weight on the previous running loss. A high value
// gives a slow-moving average that smooths noisy per-batch losses.
const DefaultAlpha = 0.98

var ErrInvalidEpochs = errors.New("train: epochs must be >= 0")

// Option configures a Loop.
type Option func(*options)

type options struct {
	alpha float64
	log   logger.Logger
}

// WithAlpha sets the smoothing weight of the running loss. Values outside
// [0, 1) are ignored.
func WithAlpha(alpha float64) Option {
	return func(o *options) {
		if alpha >= 0 && alpha < 1 {
			o.alpha = alpha
		}
	}
}

// WithLogger sets the logger used for phase-level debug output.
func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// Loop runs epochs of training and validation over a Stepper.
type Loop[X, Y any] struct {
	stepper Stepper[X, Y]
	alpha   float64
	log     logger.Logger
	stop    bool
}

// NewLoop returns a loop driving stepper.
func NewLoop[X, Y any](stepper Stepper[X, Y], opts ...Option) *Loop[X, Y] {
	o := options{alpha: DefaultAlpha, log: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Loop[X, Y]{
		stepper: stepper,
		alpha:   o.alpha,
		log:     o.log,
	}
}

// Alpha returns the running-loss smoothing weight.
func (l *Loop[X, Y]) Alpha() float64 { return l.alpha }

// Stopped reports whether a callback has asked the loop to stop.
func (l *Loop[X, Y]) Stopped() bool { return l.stop }

// SaveModel delegates to the stepper.
func (l *Loop[X, Y]) SaveModel(path string) error {
	return l.stepper.SaveModel(path)
}

type phaseRun[X, Y any] struct {
	phase  *Phase
	source iter.Seq2[X, Y]
	mode   Mode
}

// Run trains for up to epochs epochs. Each epoch runs the train phase over
// trainSrc and then the valid phase over validSrc; each source is ranged
// over afresh every epoch.
//
// A Stop returned by any callback is checked only before each epoch. A
// step error aborts the run immediately and is returned wrapped; the
// training-end event is not fired in that case. A context cancelled between
// epochs ends the run like a stop and Run returns the context error.
func (l *Loop[X, Y]) Run(ctx context.Context, trainSrc, validSrc iter.Seq2[X, Y], epochs int, callbacks ...Callback) error {
	if epochs < 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidEpochs, epochs)
	}
	l.stop = false
	phases := []phaseRun[X, Y]{
		{phase: &Phase{Name: PhaseTrain}, source: trainSrc, mode: ModeTrain},
		{phase: &Phase{Name: PhaseValid}, source: validSrc, mode: ModeEval},
	}

	cb := NewGroup(callbacks...)
	cb.Bind(l)
	l.signal(cb.TrainingStart())

	var ctxErr error
	for epoch := range epochs {
		if l.stop {
			l.log.Debug("stop requested", "epoch", epoch)
			break
		}
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		for _, pr := range phases {
			if err := l.runPhase(ctx, cb, epoch, pr); err != nil {
				return err
			}
		}
	}
	l.signal(cb.TrainingEnd())
	return ctxErr
}

func (l *Loop[X, Y]) runPhase(ctx context.Context, cb *Group, epoch int, pr phaseRun[X, Y]) error {
	phase := pr.phase
	l.signal(cb.EpochStart(epoch, phase))
	if pr.source != nil {
		for x, y := range pr.source {
			phase.BatchNum++
			l.signal(cb.BatchStart(epoch, phase))
			loss, err := l.stepper.Step(ctx, x, y, pr.mode)
			if err != nil {
				return fmt.Errorf("train: epoch %d phase %s batch %d: %w", epoch, phase.Name, phase.BatchNum, err)
			}
			phase.smooth(loss, l.alpha)
			l.signal(cb.BatchEnd(epoch, phase))
		}
	}
	l.log.Debug("phase done", "epoch", epoch, "phase", phase.Name, "batches", phase.BatchNum, "avg_loss", phase.AvgLoss)
	l.signal(cb.EpochEnd(epoch, phase))
	return nil
}

func (l *Loop[X, Y]) signal(s Signal) {
	if s == Stop {
		l.stop = true
	}
}
