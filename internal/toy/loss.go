package toy

import (
	"errors"
	"fmt"
	"math"

	"github.com/samcharles93/lanetrain/internal/tensor"
	"github.com/samcharles93/lanetrain/internal/train"
)

// ErrNoGrad is returned by Backward for a loss computed from eval-mode
// logits.
var ErrNoGrad = errors.New("toy: backward on logits produced in eval mode")

// CrossEntropy is the mean next-token negative log likelihood. The target
// must hold one id per logits row in the same order, which is what a
// flattened target batch provides.
type CrossEntropy struct{}

func (CrossEntropy) Compute(out *Logits, target tensor.Tokens) (train.LossValue, error) {
	if target.Len() != out.N {
		return nil, fmt.Errorf("toy: %d targets for %d logits rows", target.Len(), out.N)
	}
	if out.N == 0 {
		return nil, errors.New("toy: empty batch")
	}
	var sum float64
	for i, y := range target.Data[:out.N] {
		if y < 0 || int(y) >= out.Vocab {
			return nil, fmt.Errorf("%w: target %d at position %d", ErrTokenRange, y, i)
		}
		row := out.Row(i)
		sum += tensor.LogSumExp(row) - float64(row[y])
	}
	return &ceValue{
		loss:   sum / float64(out.N),
		logits: out,
		target: target.Data[:out.N],
	}, nil
}

type ceValue struct {
	loss   float64
	logits *Logits
	target []int32
}

func (v *ceValue) Item() float64 { return v.loss }

// Backward adds d(loss)/d(params) to the model gradients:
// dlogits = (softmax(logits) - onehot(target)) / N.
func (v *ceValue) Backward() error {
	l := v.logits
	if l.mode != train.ModeTrain || l.input == nil {
		return ErrNoGrad
	}
	if math.IsNaN(v.loss) || math.IsInf(v.loss, 0) {
		return fmt.Errorf("toy: non-finite loss %v", v.loss)
	}
	d := make([]float32, len(l.Data))
	copy(d, l.Data)
	inv := float32(1 / float64(l.N))
	for i, y := range v.target {
		row := d[i*l.Vocab : (i+1)*l.Vocab]
		tensor.Softmax(row)
		row[y] -= 1
		for j := range row {
			row[j] *= inv
		}
	}
	l.model.backward(l.input, d)
	return nil
}
