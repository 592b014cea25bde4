package train

import "fmt"

// Phase names used by Loop.Run.
const (
	PhaseTrain = "train"
	PhaseValid = "valid"
)

// Phase is one stage of an epoch with its running metrics. BatchNum and
// AvgLoss accumulate across epochs for the lifetime of a single Run.
type Phase struct {
	Name     string
	BatchNum int
	// AvgLoss is the exponential moving average of per-batch loss.
	AvgLoss float64
	// LastLoss is the loss of the most recent batch.
	LastLoss float64
}

// Training reports whether batches of this phase update the model.
func (p *Phase) Training() bool { return p.Name == PhaseTrain }

func (p *Phase) String() string {
	return fmt.Sprintf("<Phase: %s, avg_loss: %2.4f>", p.Name, p.AvgLoss)
}

// smooth folds loss into the running average with weight alpha on the
// previous value.
func (p *Phase) smooth(loss, alpha float64) {
	p.LastLoss = loss
	p.AvgLoss = p.AvgLoss*alpha + loss*(1-alpha)
}
