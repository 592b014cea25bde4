package tensor

import (
	"errors"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	errNegativeDim      = errors.New("tensor: negative matrix dimension")
	errDataSizeMismatch = errors.New("tensor: data length does not match shape")
)

// initScale bounds the values FillRand draws.
const initScale = 0.01

// Mat is a dense row-major float32 matrix. Stride is the distance between
// row starts and equals C for every matrix built here.
type Mat struct {
	R, C   int
	Stride int
	Data   []float32
}

// NewMat allocates a zeroed r x c matrix.
func NewMat(r, c int) Mat {
	if r < 0 || c < 0 {
		panic(errNegativeDim)
	}
	return Mat{R: r, C: c, Stride: c, Data: make([]float32, r*c)}
}

// NewMatFromData wraps data as an r x c matrix without copying.
func NewMatFromData(r, c int, data []float32) (Mat, error) {
	if r < 0 || c < 0 {
		return Mat{}, errNegativeDim
	}
	if r*c != len(data) {
		return Mat{}, errDataSizeMismatch
	}
	return Mat{R: r, C: c, Stride: c, Data: data}, nil
}

// Row returns row i as a view into Data.
func (m *Mat) Row(i int) []float32 {
	if i < 0 || i >= m.R {
		panic("tensor: row index out of range")
	}
	start := i * m.Stride
	return m.Data[start : start+m.C]
}

// FillRand overwrites m with values drawn uniformly from
// [-initScale, initScale). The same seed always yields the same matrix.
func FillRand(m *Mat, seed int64) {
	u := distuv.Uniform{
		Min: -initScale,
		Max: initScale,
		Src: rand.NewPCG(uint64(seed), uint64(seed)>>1|1),
	}
	for i := range m.Data {
		m.Data[i] = float32(u.Rand())
	}
}
