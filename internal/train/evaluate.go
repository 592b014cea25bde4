package train

import (
	"context"
	"fmt"
	"iter"
)

// EvalResult summarises one evaluation pass.
type EvalResult struct {
	Batches  int
	MeanLoss float64
	// AvgLoss is the smoothed loss the loop would report for the same
	// batches, starting from zero.
	AvgLoss float64
}

// Evaluate runs every batch of src through stepper in ModeEval and returns
// the arithmetic mean loss alongside the smoothed value. ctx is checked
// between batches.
func Evaluate[X, Y any](ctx context.Context, stepper Stepper[X, Y], src iter.Seq2[X, Y], alpha float64) (EvalResult, error) {
	var (
		res   EvalResult
		sum   float64
		phase = Phase{Name: PhaseValid}
	)
	for x, y := range src {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		loss, err := stepper.Step(ctx, x, y, ModeEval)
		if err != nil {
			return res, fmt.Errorf("train: eval batch %d: %w", res.Batches+1, err)
		}
		res.Batches++
		sum += loss
		phase.smooth(loss, alpha)
	}
	if res.Batches > 0 {
		res.MeanLoss = sum / float64(res.Batches)
	}
	res.AvgLoss = phase.AvgLoss
	return res, nil
}
