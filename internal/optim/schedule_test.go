package optim

import (
	"math"
	"testing"
)

type lrProbe struct{ lr float64 }

func (p *lrProbe) ZeroGrad()        {}
func (p *lrProbe) Step()            {}
func (p *lrProbe) SetLR(lr float64) { p.lr = lr }
func (p *lrProbe) LR() float64      { return p.lr }

func TestSchedulesStartUnstepped(t *testing.T) {
	t.Parallel()
	for name, s := range map[string]Schedule{
		"constant": NewConstant(&lrProbe{lr: 1}),
		"cosine":   NewWarmupCosine(&lrProbe{lr: 1}, 2, 10),
	} {
		if s.LastEpoch() != -1 {
			t.Fatalf("%s: LastEpoch = %d, want -1", name, s.LastEpoch())
		}
		s.Step()
		if s.LastEpoch() != 0 {
			t.Fatalf("%s: LastEpoch after one step = %d", name, s.LastEpoch())
		}
	}
}

func TestConstantHoldsLR(t *testing.T) {
	t.Parallel()
	opt := &lrProbe{lr: 0.3}
	s := NewConstant(opt)
	opt.lr = 99
	s.Step()
	if opt.lr != 0.3 {
		t.Fatalf("lr = %v, want 0.3", opt.lr)
	}
}

func TestWarmupCosine(t *testing.T) {
	t.Parallel()
	opt := &lrProbe{lr: 1}
	s := NewWarmupCosine(opt, 4, 14)

	tests := []struct {
		step int
		want float64
	}{
		{0, 0.25},
		{3, 1},
		{4, 1},
		{9, 0.55},
		{14, 0.1},
		{100, 0.1},
	}
	for _, tt := range tests {
		if got := s.At(tt.step); math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("At(%d) = %v, want %v", tt.step, got, tt.want)
		}
	}

	for range 5 {
		s.Step()
	}
	if math.Abs(opt.lr-1) > 1e-9 {
		t.Fatalf("lr after warmup = %v, want 1", opt.lr)
	}
}

func TestWarmupCosineWithoutDecaySpan(t *testing.T) {
	t.Parallel()
	s := NewWarmupCosine(&lrProbe{lr: 2}, 0, 0)
	if got := s.At(0); math.Abs(got-0.2) > 1e-9 {
		t.Fatalf("At(0) = %v, want the floor 0.2", got)
	}
}

func TestScheduleDrivesOptimizer(t *testing.T) {
	t.Parallel()
	p := NewParam("w", []float32{0})
	opt := NewSGD([]*Param{p}, SGDConfig{LR: 0.5})
	s, err := NewSchedule("cosine", opt, 2, 4)
	if err != nil {
		t.Fatalf("NewSchedule: %v", err)
	}
	s.Step()
	if math.Abs(opt.LR()-0.25) > 1e-9 {
		t.Fatalf("lr = %v, want 0.25", opt.LR())
	}
}
