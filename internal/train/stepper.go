package train

import (
	"context"
	"fmt"
)

// Stepper performs one optimisation or evaluation step on a batch.
type Stepper[X, Y any] interface {
	Step(ctx context.Context, x X, y Y, mode Mode) (float64, error)
	SaveModel(path string) error
}

// ModelStepper binds a model, optimizer, schedule and loss into a single
// Step call. O is the model's output type.
type ModelStepper[X, Y, O any] struct {
	model    Model[X, O]
	opt      Optimizer
	schedule Schedule
	loss     Loss[O, Y]
}

// NewStepper returns a stepper over the given collaborators. A schedule
// that has never been stepped is advanced once here, so the first training
// step already runs with a schedule-initialised learning rate.
func NewStepper[X, Y, O any](model Model[X, O], opt Optimizer, schedule Schedule, loss Loss[O, Y]) *ModelStepper[X, Y, O] {
	if schedule.LastEpoch() == -1 {
		schedule.Step()
	}
	return &ModelStepper[X, Y, O]{
		model:    model,
		opt:      opt,
		schedule: schedule,
		loss:     loss,
	}
}

// Step runs the model on x and scores it against y. In ModeTrain it also
// back-propagates, applies one optimizer update and advances the schedule.
// ModeEval leaves every collaborator untouched.
func (s *ModelStepper[X, Y, O]) Step(_ context.Context, x X, y Y, mode Mode) (float64, error) {
	if mode != ModeTrain {
		out, err := s.model.Forward(x, ModeEval)
		if err != nil {
			return 0, fmt.Errorf("forward: %w", err)
		}
		l, err := s.loss.Compute(out, y)
		if err != nil {
			return 0, fmt.Errorf("loss: %w", err)
		}
		return l.Item(), nil
	}

	s.opt.ZeroGrad()
	out, err := s.model.Forward(x, ModeTrain)
	if err != nil {
		return 0, fmt.Errorf("forward: %w", err)
	}
	l, err := s.loss.Compute(out, y)
	if err != nil {
		return 0, fmt.Errorf("loss: %w", err)
	}
	if err := l.Backward(); err != nil {
		return 0, fmt.Errorf("backward: %w", err)
	}
	s.opt.Step()
	s.schedule.Step()
	return l.Item(), nil
}

// SaveModel writes the model's learnable parameters to path. Optimizer and
// schedule state are not saved.
func (s *ModelStepper[X, Y, O]) SaveModel(path string) error {
	return s.model.Save(path)
}
