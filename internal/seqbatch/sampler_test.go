package seqbatch

import (
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestNormalWindowFloor(t *testing.T) {
	t.Parallel()
	w := NewNormalWindow(1)
	for range 5000 {
		if got := w.Sample(2); got < MinWindow {
			t.Fatalf("sample %d below floor %d", got, MinWindow)
		}
	}
}

func TestNormalWindowCentresOnBase(t *testing.T) {
	t.Parallel()
	w := NewNormalWindow(7)
	samples := make([]float64, 20000)
	for i := range samples {
		samples[i] = float64(w.Sample(40))
	}
	// Halving 5% of the draws pulls the mean to about 39; truncation
	// lowers it by roughly another half.
	mean, std := stat.MeanStdDev(samples, nil)
	if mean < 37.5 || mean > 40 {
		t.Fatalf("mean window %.2f, want about 38.5", mean)
	}
	if std < 4 || std > 8 {
		t.Fatalf("window spread %.2f, want about 5", std)
	}
}

func TestNormalWindowHalves(t *testing.T) {
	t.Parallel()
	w := NewNormalWindow(3)
	w.HalveProb = 1
	samples := make([]float64, 5000)
	for i := range samples {
		samples[i] = float64(w.Sample(100))
	}
	if mean := stat.Mean(samples, nil); mean < 48 || mean > 50.5 {
		t.Fatalf("mean window %.2f with certain halving, want about 49.5", mean)
	}
}

func TestNormalWindowDeterministic(t *testing.T) {
	t.Parallel()
	a, b := NewNormalWindow(99), NewNormalWindow(99)
	for i := range 100 {
		if x, y := a.Sample(10), b.Sample(10); x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
}

func TestFixedWindow(t *testing.T) {
	t.Parallel()
	if got := (FixedWindow{}).Sample(13); got != 13 {
		t.Fatalf("FixedWindow.Sample = %d", got)
	}
}
