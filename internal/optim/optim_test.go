package optim

import (
	"errors"
	"math"
	"testing"
)

// quadGrad sets grad = 2*(w - target) for f(w) = (w - target)^2.
func quadGrad(p *Param, target float32) {
	for i, w := range p.Data {
		p.Grad[i] += 2 * (w - target)
	}
}

func TestSGDConverges(t *testing.T) {
	t.Parallel()
	for _, mom := range []float64{0, 0.9} {
		p := NewParam("w", []float32{5, -3})
		opt := NewSGD([]*Param{p}, SGDConfig{LR: 0.05, Momentum: mom})
		for range 300 {
			opt.ZeroGrad()
			quadGrad(p, 1)
			opt.Step()
		}
		for _, w := range p.Data {
			if math.Abs(float64(w-1)) > 1e-3 {
				t.Fatalf("momentum %v: w = %v, want 1", mom, p.Data)
			}
		}
	}
}

func TestSGDSingleStep(t *testing.T) {
	t.Parallel()
	p := NewParam("w", []float32{2})
	p.Grad[0] = 1
	NewSGD([]*Param{p}, SGDConfig{LR: 0.5, WeightDecay: 0.5}).Step()
	// g = 1 + 0.5*2 = 2; w = 2 - 0.5*2
	if p.Data[0] != 1 {
		t.Fatalf("w = %v, want 1", p.Data[0])
	}
}

func TestZeroGrad(t *testing.T) {
	t.Parallel()
	p := NewParam("w", []float32{1, 2, 3})
	p.Grad[1] = 4
	opt, err := New(Settings{Name: "adamw", LR: 0.1}, []*Param{p})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	opt.ZeroGrad()
	for _, g := range p.Grad {
		if g != 0 {
			t.Fatalf("grad not cleared: %v", p.Grad)
		}
	}
}

func TestAdamWFirstStepIsLR(t *testing.T) {
	t.Parallel()
	p := NewParam("w", []float32{1, 1})
	p.Grad[0], p.Grad[1] = 3, -0.001
	cfg := DefaultAdamW()
	cfg.LR = 0.01
	cfg.WeightDecay = 0
	opt := NewAdamW([]*Param{p}, cfg)
	opt.Step()
	// Bias correction makes the first update lr*sign(g) regardless of scale.
	if math.Abs(float64(p.Data[0]-0.99)) > 1e-5 || math.Abs(float64(p.Data[1]-1.01)) > 1e-4 {
		t.Fatalf("after one step w = %v", p.Data)
	}
	if opt.Steps() != 1 {
		t.Fatalf("Steps = %d", opt.Steps())
	}
}

func TestAdamWConverges(t *testing.T) {
	t.Parallel()
	p := NewParam("w", []float32{4})
	cfg := DefaultAdamW()
	cfg.LR = 0.05
	cfg.WeightDecay = 0
	opt := NewAdamW([]*Param{p}, cfg)
	for range 1000 {
		opt.ZeroGrad()
		quadGrad(p, -2)
		opt.Step()
	}
	if math.Abs(float64(p.Data[0]+2)) > 0.05 {
		t.Fatalf("w = %v, want -2", p.Data[0])
	}
}

func TestClipGradNorm(t *testing.T) {
	t.Parallel()
	a := NewParam("a", []float32{0, 0})
	b := NewParam("b", []float32{0})
	a.Grad[0], a.Grad[1], b.Grad[0] = 3, 0, 4
	norm := ClipGradNorm([]*Param{a, b}, 1)
	if norm != 5 {
		t.Fatalf("norm = %v, want 5", norm)
	}
	if math.Abs(float64(a.Grad[0])-0.6) > 1e-6 || math.Abs(float64(b.Grad[0])-0.8) > 1e-6 {
		t.Fatalf("clipped grads %v %v", a.Grad, b.Grad)
	}
	if n := ClipGradNorm([]*Param{a, b}, 0); math.Abs(n-1) > 1e-6 {
		t.Fatalf("disabled clip should only report the norm, got %v", n)
	}
}

func TestNewUnknown(t *testing.T) {
	t.Parallel()
	if _, err := New(Settings{Name: "lion", LR: 1}, nil); !errors.Is(err, ErrUnknownOptimizer) {
		t.Fatalf("expected ErrUnknownOptimizer, got %v", err)
	}
	if _, err := NewSchedule("step", nil, 0, 0); !errors.Is(err, ErrUnknownSchedule) {
		t.Fatalf("expected ErrUnknownSchedule, got %v", err)
	}
}

func TestNewCarriesSettings(t *testing.T) {
	t.Parallel()
	s := Settings{Name: " SGD ", LR: 0.1, Momentum: 0.5, WeightDecay: 0.01, GradClip: 2}
	opt, err := New(s, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sgd, ok := opt.(*SGD)
	if !ok {
		t.Fatalf("got %T, want *SGD", opt)
	}
	if sgd.cfg != (SGDConfig{LR: 0.1, Momentum: 0.5, WeightDecay: 0.01, GradClip: 2}) {
		t.Fatalf("sgd config %+v", sgd.cfg)
	}

	s.Name = "adamw"
	opt, err = New(s, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	adam := opt.(*AdamW)
	want := DefaultAdamW()
	want.LR, want.WeightDecay, want.GradClip = 0.1, 0.01, 2
	if adam.cfg != want {
		t.Fatalf("adamw config %+v, want %+v", adam.cfg, want)
	}
}
