package train

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EpochRecord is one phase of one epoch as seen at its end.
type EpochRecord struct {
	Epoch    int     `json:"epoch"`
	Phase    string  `json:"phase"`
	Batches  int     `json:"batches"`
	// MeanLoss is the mean batch loss of this epoch alone.
	MeanLoss float64 `json:"mean_loss"`
	AvgLoss  float64 `json:"avg_loss"`
	LastLoss float64 `json:"last_loss"`
	Seconds  float64 `json:"seconds"`
}

// PhaseSummary aggregates the per-epoch mean losses of one phase.
type PhaseSummary struct {
	Epochs    int     `json:"epochs"`
	MeanLoss  float64 `json:"mean_loss"`
	BestLoss  float64 `json:"best_loss"`
	BestEpoch int     `json:"best_epoch"`
}

// History records every epoch of a run and, if Path is set, writes the
// result as JSON when training ends.
type History struct {
	RunID string
	Path  string

	Records  []EpochRecord
	epoch    epochLoss
	started  time.Time
	finished time.Time
	phaseT0  time.Time
	err      error
}

// NewHistory returns a History with a fresh run id.
func NewHistory(path string) *History {
	return &History{RunID: uuid.NewString(), Path: path}
}

type historyFile struct {
	RunID      string                  `json:"run_id"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Epochs     []EpochRecord           `json:"epochs"`
	Summary    map[string]PhaseSummary `json:"summary"`
}

func (h *History) OnTrainingStart() Signal {
	if h.RunID == "" {
		h.RunID = uuid.NewString()
	}
	h.Records = h.Records[:0]
	h.started = time.Now()
	h.err = nil
	return Continue
}

func (h *History) OnEpochStart(epoch int, phase *Phase) Signal {
	h.phaseT0 = time.Now()
	h.epoch.reset()
	return Continue
}

func (h *History) OnBatchEnd(epoch int, phase *Phase) Signal {
	h.epoch.add(phase.LastLoss)
	return Continue
}

func (h *History) OnEpochEnd(epoch int, phase *Phase) Signal {
	mean, _ := h.epoch.mean()
	h.Records = append(h.Records, EpochRecord{
		Epoch:    epoch,
		Phase:    phase.Name,
		Batches:  phase.BatchNum,
		MeanLoss: mean,
		AvgLoss:  phase.AvgLoss,
		LastLoss: phase.LastLoss,
		Seconds:  time.Since(h.phaseT0).Seconds(),
	})
	return Continue
}

func (h *History) OnTrainingEnd() Signal {
	h.finished = time.Now()
	if h.Path != "" {
		h.err = h.Write(h.Path)
	}
	return Continue
}

// Summary aggregates the recorded epochs of phase. ok is false when the
// phase has no records.
func (h *History) Summary(phase string) (s PhaseSummary, ok bool) {
	var (
		losses []float64
		epochs []int
	)
	for _, r := range h.Records {
		if r.Phase == phase {
			losses = append(losses, r.MeanLoss)
			epochs = append(epochs, r.Epoch)
		}
	}
	if len(losses) == 0 {
		return PhaseSummary{}, false
	}
	best := floats.MinIdx(losses)
	return PhaseSummary{
		Epochs:    len(losses),
		MeanLoss:  stat.Mean(losses, nil),
		BestLoss:  losses[best],
		BestEpoch: epochs[best],
	}, true
}

// Write stores the history as indented JSON at path.
func (h *History) Write(path string) error {
	out := historyFile{
		RunID:      h.RunID,
		StartedAt:  h.started,
		FinishedAt: h.finished,
		Epochs:     h.Records,
		Summary:    map[string]PhaseSummary{},
	}
	for _, name := range []string{PhaseTrain, PhaseValid} {
		if s, ok := h.Summary(name); ok {
			out.Summary[name] = s
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("train: encode history: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("train: write history: %w", err)
	}
	return nil
}

// Err returns the error from the last automatic write, if any.
func (h *History) Err() error { return h.err }
