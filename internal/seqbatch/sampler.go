package seqbatch

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// MinWindow is the smallest window a NormalWindow will return.
const MinWindow = 5

// WindowSampler picks the number of rows for the next batch given the
// configured base window.
type WindowSampler interface {
	Sample(base int) int
}

// FixedWindow always returns the base window.
type FixedWindow struct{}

func (FixedWindow) Sample(base int) int { return base }

// NormalWindow draws window lengths around the base so that successive
// passes see the sequence cut at different places.
//
// With probability HalveProb the base is halved first. The length is then
// drawn from Normal(base, Sigma), truncated towards zero and floored at
// MinWindow.
type NormalWindow struct {
	HalveProb float64
	Sigma     float64

	halve distuv.Bernoulli
	norm  distuv.Normal
}

// NewNormalWindow returns a sampler with the default halving probability
// (0.05) and spread (5) seeded from seed.
func NewNormalWindow(seed uint64) *NormalWindow {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	w := &NormalWindow{HalveProb: 0.05, Sigma: 5}
	w.halve = distuv.Bernoulli{P: w.HalveProb, Src: src}
	w.norm = distuv.Normal{Mu: 0, Sigma: w.Sigma, Src: src}
	return w
}

func (w *NormalWindow) Sample(base int) int {
	mu := float64(base)
	w.halve.P = w.HalveProb
	if w.halve.Rand() == 1 {
		mu /= 2
	}
	w.norm.Mu = mu
	w.norm.Sigma = w.Sigma
	return max(MinWindow, int(w.norm.Rand()))
}
