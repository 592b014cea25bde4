// Package optim holds first-order optimizers and learning-rate schedules
// over flat float32 parameters.
package optim

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Param is a named trainable tensor and its gradient buffer. Grad always
// has the same length as Data.
type Param struct {
	Name string
	Data []float32
	Grad []float32
}

// NewParam wraps data with a zeroed gradient buffer.
func NewParam(name string, data []float32) *Param {
	return &Param{Name: name, Data: data, Grad: make([]float32, len(data))}
}

// Optimizer updates a fixed set of parameters from their gradients.
type Optimizer interface {
	ZeroGrad()
	Step()
	SetLR(lr float64)
	LR() float64
}

var ErrUnknownOptimizer = errors.New("optim: unknown optimizer")

// Settings selects an optimizer by name and carries the hyperparameters
// shared by all of them. Zero Momentum gives plain SGD.
type Settings struct {
	Name        string
	LR          float64
	Momentum    float64
	WeightDecay float64
	GradClip    float64
}

// New builds the optimizer named by s.Name ("sgd" or "adamw"). AdamW keeps
// its default betas and epsilon.
func New(s Settings, params []*Param) (Optimizer, error) {
	switch strings.ToLower(strings.TrimSpace(s.Name)) {
	case "sgd":
		return NewSGD(params, SGDConfig{
			LR:          s.LR,
			Momentum:    s.Momentum,
			WeightDecay: s.WeightDecay,
			GradClip:    s.GradClip,
		}), nil
	case "adamw", "adam":
		cfg := DefaultAdamW()
		cfg.LR = s.LR
		cfg.WeightDecay = s.WeightDecay
		cfg.GradClip = s.GradClip
		return NewAdamW(params, cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOptimizer, s.Name)
	}
}

func zeroGrad(params []*Param) {
	for _, p := range params {
		clear(p.Grad)
	}
}

// ClipGradNorm scales all gradients so their global L2 norm is at most
// maxNorm and returns the norm before clipping.
func ClipGradNorm(params []*Param, maxNorm float64) float64 {
	var sq float64
	for _, p := range params {
		for _, g := range p.Grad {
			sq += float64(g) * float64(g)
		}
	}
	norm := math.Sqrt(sq)
	if maxNorm <= 0 || norm <= maxNorm {
		return norm
	}
	scale := float32(maxNorm / (norm + 1e-12))
	for _, p := range params {
		for i := range p.Grad {
			p.Grad[i] *= scale
		}
	}
	return norm
}

// SGDConfig holds stochastic gradient descent hyperparameters.
type SGDConfig struct {
	LR          float64
	Momentum    float64
	WeightDecay float64
	// GradClip caps the global gradient norm before each step; 0 disables.
	GradClip float64
}

// SGD is gradient descent with optional heavy-ball momentum and L2 weight
// decay folded into the gradient.
type SGD struct {
	cfg    SGDConfig
	params []*Param
	vel    [][]float32
}

func NewSGD(params []*Param, cfg SGDConfig) *SGD {
	vel := make([][]float32, len(params))
	for i, p := range params {
		vel[i] = make([]float32, len(p.Data))
	}
	return &SGD{cfg: cfg, params: params, vel: vel}
}

func (o *SGD) ZeroGrad()        { zeroGrad(o.params) }
func (o *SGD) SetLR(lr float64) { o.cfg.LR = lr }
func (o *SGD) LR() float64      { return o.cfg.LR }

func (o *SGD) Step() {
	ClipGradNorm(o.params, o.cfg.GradClip)
	lr := float32(o.cfg.LR)
	mu := float32(o.cfg.Momentum)
	wd := float32(o.cfg.WeightDecay)
	for i, p := range o.params {
		v := o.vel[i]
		for j, g := range p.Grad {
			g += wd * p.Data[j]
			if mu != 0 {
				v[j] = mu*v[j] + g
				g = v[j]
			}
			p.Data[j] -= lr * g
		}
	}
}

// AdamWConfig holds AdamW hyperparameters.
type AdamWConfig struct {
	LR          float64
	Beta1       float64
	Beta2       float64
	Eps         float64
	WeightDecay float64
	GradClip    float64
}

// DefaultAdamW returns the usual betas (0.9, 0.999) with eps 1e-8 and a
// weight decay of 0.01.
func DefaultAdamW() AdamWConfig {
	return AdamWConfig{LR: 1e-3, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8, WeightDecay: 0.01}
}

// AdamW is Adam with bias-corrected moments and decoupled weight decay:
//
//	m = b1*m + (1-b1)*g
//	v = b2*v + (1-b2)*g^2
//	w -= lr * (m/(1-b1^t) / (sqrt(v/(1-b2^t)) + eps) + wd*w)
type AdamW struct {
	cfg    AdamWConfig
	params []*Param
	m, v   [][]float32
	t      int
}

func NewAdamW(params []*Param, cfg AdamWConfig) *AdamW {
	o := &AdamW{cfg: cfg, params: params, m: make([][]float32, len(params)), v: make([][]float32, len(params))}
	for i, p := range params {
		o.m[i] = make([]float32, len(p.Data))
		o.v[i] = make([]float32, len(p.Data))
	}
	return o
}

func (o *AdamW) ZeroGrad()        { zeroGrad(o.params) }
func (o *AdamW) SetLR(lr float64) { o.cfg.LR = lr }
func (o *AdamW) LR() float64      { return o.cfg.LR }

// Steps returns the number of updates applied so far.
func (o *AdamW) Steps() int { return o.t }

func (o *AdamW) Step() {
	ClipGradNorm(o.params, o.cfg.GradClip)
	o.t++
	b1, b2 := float32(o.cfg.Beta1), float32(o.cfg.Beta2)
	mCorr := float32(1 / (1 - math.Pow(o.cfg.Beta1, float64(o.t))))
	vCorr := float32(1 / (1 - math.Pow(o.cfg.Beta2, float64(o.t))))
	lr, eps, wd := float32(o.cfg.LR), float32(o.cfg.Eps), float32(o.cfg.WeightDecay)

	for i, p := range o.params {
		m, v := o.m[i], o.v[i]
		for j, g := range p.Grad {
			m[j] = b1*m[j] + (1-b1)*g
			v[j] = b2*v[j] + (1-b2)*g*g
			mHat := m[j] * mCorr
			vHat := v[j] * vCorr
			p.Data[j] -= lr * (mHat/(float32(math.Sqrt(float64(vHat)))+eps) + wd*p.Data[j])
		}
	}
}
