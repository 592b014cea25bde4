// Package train runs epoch/phase training loops.
//
// A Loop drives two phases per epoch, "train" then "valid", over data
// sources expressed as iter.Seq2 values. Every batch goes through a Stepper,
// whose loss feeds an exponential moving average on the phase. Observers
// plug into the lifecycle through a Group of callbacks and can ask the loop
// to stop by returning Stop from any hook.
//
// The network, optimizer, learning-rate schedule and loss are external
// collaborators reached only through the small interfaces in this file.
package train

// Mode selects whether a step may mutate training state.
type Mode int

const (
	// ModeEval runs forward and loss only: no gradients, no optimizer or
	// schedule updates.
	ModeEval Mode = iota
	// ModeTrain runs forward, loss, backward and one optimizer update.
	ModeTrain
)

func (m Mode) String() string {
	if m == ModeTrain {
		return "train"
	}
	return "eval"
}

// Model maps an input batch to an output. Implementations must not record
// anything needed for a backward pass when mode is ModeEval.
type Model[X, O any] interface {
	Forward(x X, mode Mode) (O, error)
	// Save writes the learnable parameters, and nothing else, to path.
	Save(path string) error
}

// Optimizer updates the model parameters from accumulated gradients.
type Optimizer interface {
	ZeroGrad()
	Step()
}

// Schedule adjusts the learning rate once per training step.
//
// LastEpoch reports how many times Step has been called minus one; a fresh
// schedule reports -1.
type Schedule interface {
	Step()
	LastEpoch() int
}

// Loss scores a model output against a target.
type Loss[O, Y any] interface {
	Compute(out O, target Y) (LossValue, error)
}

// LossValue is the result of a Loss. Backward propagates gradients into the
// model that produced the scored output.
type LossValue interface {
	Item() float64
	Backward() error
}
