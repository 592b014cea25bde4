package train

import (
	"time"

	"github.com/samcharles93/lanetrain/internal/logger"
)

// ProgressLogger logs batch progress every Every batches and a summary
// line at the end of each phase.
type ProgressLogger struct {
	Log   logger.Logger
	Every int

	start      time.Time
	phaseStart time.Time
}

func NewProgressLogger(log logger.Logger, every int) *ProgressLogger {
	if log == nil {
		log = logger.Discard()
	}
	return &ProgressLogger{Log: log, Every: every}
}

func (p *ProgressLogger) OnTrainingStart() Signal {
	p.start = time.Now()
	p.Log.Info("training started")
	return Continue
}

func (p *ProgressLogger) OnEpochStart(epoch int, phase *Phase) Signal {
	p.phaseStart = time.Now()
	return Continue
}

func (p *ProgressLogger) OnBatchEnd(epoch int, phase *Phase) Signal {
	if p.Every <= 0 || phase.BatchNum%p.Every != 0 {
		return Continue
	}
	p.Log.Info("batch",
		"epoch", epoch,
		"phase", phase.Name,
		"batch", phase.BatchNum,
		"loss", phase.LastLoss,
		"avg_loss", phase.AvgLoss,
	)
	return Continue
}

func (p *ProgressLogger) OnEpochEnd(epoch int, phase *Phase) Signal {
	p.Log.Info("phase done",
		"epoch", epoch,
		"phase", phase.Name,
		"batches", phase.BatchNum,
		"avg_loss", phase.AvgLoss,
		"elapsed", time.Since(p.phaseStart),
	)
	return Continue
}

func (p *ProgressLogger) OnTrainingEnd() Signal {
	p.Log.Info("training finished", "elapsed", time.Since(p.start))
	return Continue
}
