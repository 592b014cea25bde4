package api

import (
	"maps"
	"sync"
	"time"

	"github.com/samcharles93/lanetrain/internal/train"
)

// Run states reported by Status.State.
const (
	StatePending  = "pending"
	StateRunning  = "running"
	StateStopping = "stopping"
	StateFinished = "finished"
)

// PhaseStatus is the latest view of one phase.
type PhaseStatus struct {
	Batches  int     `json:"batches"`
	AvgLoss  float64 `json:"avg_loss"`
	LastLoss float64 `json:"last_loss"`
}

// Status is a point-in-time snapshot of a training run.
type Status struct {
	RunID         string                 `json:"run_id"`
	State         string                 `json:"state"`
	Epoch         int                    `json:"epoch"`
	Epochs        int                    `json:"epochs"`
	Phase         string                 `json:"phase,omitempty"`
	Phases        map[string]PhaseStatus `json:"phases"`
	StopRequested bool                   `json:"stop_requested"`
	StartedAt     *time.Time             `json:"started_at,omitempty"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Tracker is a training callback that mirrors loop progress into a Status
// the HTTP server can read from another goroutine. A stop requested over
// HTTP is returned to the loop from the next hook.
type Tracker struct {
	mu     sync.Mutex
	status Status
	clock  func() time.Time
}

// NewTracker returns a tracker for a run of epochs epochs.
func NewTracker(runID string, epochs int) *Tracker {
	t := &Tracker{clock: time.Now}
	t.status = Status{
		RunID:     runID,
		State:     StatePending,
		Epochs:    epochs,
		Phases:    map[string]PhaseStatus{},
		UpdatedAt: t.clock(),
	}
	return t
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.status
	s.Phases = maps.Clone(t.status.Phases)
	return s
}

// RequestStop asks the loop to stop at its next epoch boundary.
func (t *Tracker) RequestStop() (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.State == StateFinished {
		return t.status, ErrRunFinished
	}
	t.status.StopRequested = true
	if t.status.State == StateRunning {
		t.status.State = StateStopping
	}
	t.status.UpdatedAt = t.clock()
	s := t.status
	s.Phases = maps.Clone(t.status.Phases)
	return s, nil
}

// update applies fn under the lock and converts a pending stop request
// into a Stop signal.
func (t *Tracker) update(fn func(s *Status)) train.Signal {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.status)
	t.status.UpdatedAt = t.clock()
	if t.status.StopRequested {
		return train.Stop
	}
	return train.Continue
}

func (t *Tracker) OnTrainingStart() train.Signal {
	return t.update(func(s *Status) {
		now := t.clock()
		s.StartedAt = &now
		s.State = StateRunning
		if s.StopRequested {
			s.State = StateStopping
		}
		s.Epoch = 0
		clear(s.Phases)
	})
}

func (t *Tracker) OnEpochStart(epoch int, phase *train.Phase) train.Signal {
	return t.update(func(s *Status) {
		s.Epoch = epoch
		s.Phase = phase.Name
	})
}

func (t *Tracker) OnBatchEnd(epoch int, phase *train.Phase) train.Signal {
	return t.update(func(s *Status) { s.Phases[phase.Name] = phaseStatus(phase) })
}

func (t *Tracker) OnEpochEnd(epoch int, phase *train.Phase) train.Signal {
	return t.update(func(s *Status) { s.Phases[phase.Name] = phaseStatus(phase) })
}

func (t *Tracker) OnTrainingEnd() train.Signal {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateFinished
	t.status.Phase = ""
	t.status.UpdatedAt = t.clock()
	return train.Continue
}

func phaseStatus(p *train.Phase) PhaseStatus {
	return PhaseStatus{Batches: p.BatchNum, AvgLoss: p.AvgLoss, LastLoss: p.LastLoss}
}
