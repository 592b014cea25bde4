package tensor

// Tokens is a dense row-major matrix of token ids.
//
// A flat token stream is a Tokens with a single row. The batcher stores its
// lane matrix as Tokens of shape (lines, lanes), and every batch it emits is
// a row window of that matrix.
type Tokens struct {
	R, C int
	Data []int32
}

// NewTokens allocates a zeroed r x c token matrix.
func NewTokens(r, c int) Tokens {
	if r < 0 || c < 0 {
		panic("negative dimension for token matrix")
	}
	return Tokens{R: r, C: c, Data: make([]int32, r*c)}
}

// Reshape views ids as an r x c matrix without copying. len(ids) must equal
// r*c.
func Reshape(ids []int32, r, c int) (Tokens, error) {
	if r < 0 || c < 0 {
		return Tokens{}, errNegativeDim
	}
	if r*c != len(ids) {
		return Tokens{}, errDataSizeMismatch
	}
	return Tokens{R: r, C: c, Data: ids}, nil
}

// Len returns the number of ids held by t.
func (t Tokens) Len() int { return t.R * t.C }

// At returns the id at row i, column j.
func (t Tokens) At(i, j int) int32 {
	if i < 0 || i >= t.R || j < 0 || j >= t.C {
		panic("token index out of range")
	}
	return t.Data[i*t.C+j]
}

// Row returns a view of row i.
func (t Tokens) Row(i int) []int32 {
	if i < 0 || i >= t.R {
		panic("row index out of range")
	}
	return t.Data[i*t.C : (i+1)*t.C]
}

// Rows returns a copy of rows [from, to). The copy never aliases t, so
// callers may keep or mutate it freely.
func (t Tokens) Rows(from, to int) Tokens {
	if from < 0 || to > t.R || from > to {
		panic("row range out of bounds")
	}
	out := NewTokens(to-from, t.C)
	copy(out.Data, t.Data[from*t.C:to*t.C])
	return out
}

// Transpose returns a new c x r matrix with out[j][i] = t[i][j].
func (t Tokens) Transpose() Tokens {
	out := NewTokens(t.C, t.R)
	for i := 0; i < t.R; i++ {
		row := t.Data[i*t.C : (i+1)*t.C]
		for j, v := range row {
			out.Data[j*t.R+i] = v
		}
	}
	return out
}

// Flatten returns t as a single row in row-major order. Data is shared.
func (t Tokens) Flatten() Tokens {
	return Tokens{R: 1, C: t.R * t.C, Data: t.Data}
}

// Equal reports whether t and o have the same shape and ids.
func (t Tokens) Equal(o Tokens) bool {
	if t.R != o.R || t.C != o.C {
		return false
	}
	for i, v := range t.Data {
		if o.Data[i] != v {
			return false
		}
	}
	return true
}
