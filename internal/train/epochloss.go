package train

// epochLoss accumulates the batch losses of one phase within one epoch.
// Unlike Phase.AvgLoss it starts afresh every epoch and carries no
// smoothing bias, so its mean can be compared across epochs.
type epochLoss struct {
	sum float64
	n   int
}

func (e *epochLoss) reset() { *e = epochLoss{} }

func (e *epochLoss) add(loss float64) {
	e.sum += loss
	e.n++
}

// mean returns the mean batch loss, and false if no batch was seen.
func (e *epochLoss) mean() (float64, bool) {
	if e.n == 0 {
		return 0, false
	}
	return e.sum / float64(e.n), true
}
