package train

import "math"

// EarlyStopping asks the loop to stop once the watched phase's mean batch
// loss has failed to improve by more than MinDelta for Patience
// consecutive epochs.
type EarlyStopping struct {
	Phase    string
	Patience int
	MinDelta float64

	epoch epochLoss
	best  float64
	wait  int
}

// NewEarlyStopping watches the valid phase.
func NewEarlyStopping(patience int, minDelta float64) *EarlyStopping {
	return &EarlyStopping{Phase: PhaseValid, Patience: patience, MinDelta: minDelta}
}

func (e *EarlyStopping) OnTrainingStart() Signal {
	e.best = math.Inf(1)
	e.wait = 0
	return Continue
}

func (e *EarlyStopping) OnEpochStart(epoch int, phase *Phase) Signal {
	if phase.Name == e.watched() {
		e.epoch.reset()
	}
	return Continue
}

func (e *EarlyStopping) OnBatchEnd(epoch int, phase *Phase) Signal {
	if phase.Name == e.watched() {
		e.epoch.add(phase.LastLoss)
	}
	return Continue
}

func (e *EarlyStopping) OnEpochEnd(epoch int, phase *Phase) Signal {
	if phase.Name != e.watched() {
		return Continue
	}
	loss, ok := e.epoch.mean()
	if !ok {
		return Continue
	}
	if loss < e.best-e.MinDelta {
		e.best = loss
		e.wait = 0
		return Continue
	}
	e.wait++
	if e.wait >= max(e.Patience, 1) {
		return Stop
	}
	return Continue
}

// Best returns the lowest loss seen so far.
func (e *EarlyStopping) Best() float64 { return e.best }

func (e *EarlyStopping) watched() string {
	if e.Phase == "" {
		return PhaseValid
	}
	return e.Phase
}
