// Package toy implements a small trainable bigram language model used to
// exercise the training loop end to end.
package toy

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/samcharles93/lanetrain/internal/optim"
	"github.com/samcharles93/lanetrain/internal/safetensors"
	"github.com/samcharles93/lanetrain/internal/tensor"
	"github.com/samcharles93/lanetrain/internal/train"
)

const (
	tensorEmb  = "emb"
	tensorProj = "proj"
	tensorBias = "bias"
)

var ErrTokenRange = errors.New("toy: token id out of range")

// LM predicts the next token from the current one. Each input id is looked
// up in an embedding matrix and projected back to vocabulary logits:
//
//	logits = Emb[tok] · W + Bias
type LM struct {
	Vocab  int
	Hidden int

	Emb  tensor.Mat // [Vocab x Hidden]
	W    tensor.Mat // [Hidden x Vocab]
	Bias []float32  // [Vocab]

	emb, proj, bias *optim.Param
}

// NewLM returns a model with small deterministic random weights and a zero
// bias.
func NewLM(vocab, hidden int, seed int64) *LM {
	m := &LM{
		Vocab:  vocab,
		Hidden: hidden,
		Emb:    tensor.NewMat(vocab, hidden),
		W:      tensor.NewMat(hidden, vocab),
		Bias:   make([]float32, vocab),
	}
	tensor.FillRand(&m.Emb, seed+11)
	tensor.FillRand(&m.W, seed+23)
	m.bindParams()
	return m
}

func (m *LM) bindParams() {
	m.emb = optim.NewParam(tensorEmb, m.Emb.Data)
	m.proj = optim.NewParam(tensorProj, m.W.Data)
	m.bias = optim.NewParam(tensorBias, m.Bias)
}

// Params returns the trainable parameters. Their Data aliases the model
// weights, so optimizer updates apply in place.
func (m *LM) Params() []*optim.Param {
	return []*optim.Param{m.emb, m.proj, m.bias}
}

// Logits holds one row of vocabulary scores per input position, in the
// row-major order of the input batch.
type Logits struct {
	N, Vocab int
	Data     []float32

	model *LM
	input []int32
	mode  train.Mode
}

// Row returns the scores for position i.
func (l *Logits) Row(i int) []float32 { return l.Data[i*l.Vocab : (i+1)*l.Vocab] }

// Forward scores every token of x. In ModeTrain the result remembers its
// input so a loss computed from it can be back-propagated.
func (m *LM) Forward(x tensor.Tokens, mode train.Mode) (*Logits, error) {
	n := x.Len()
	out := &Logits{N: n, Vocab: m.Vocab, Data: make([]float32, n*m.Vocab), model: m, mode: mode}
	if mode == train.ModeTrain {
		out.input = append([]int32(nil), x.Data[:n]...)
	}
	for i, tok := range x.Data[:n] {
		if tok < 0 || int(tok) >= m.Vocab {
			return nil, fmt.Errorf("%w: %d at position %d (vocab %d)", ErrTokenRange, tok, i, m.Vocab)
		}
		h := m.Emb.Row(int(tok))
		row := out.Row(i)
		copy(row, m.Bias)
		for k, hk := range h {
			tensor.Axpy(row, hk, m.W.Row(k))
		}
	}
	return out, nil
}

// backward accumulates parameter gradients for dlogits computed against
// the logits of input.
func (m *LM) backward(input []int32, dlogits []float32) {
	for i, tok := range input {
		dl := dlogits[i*m.Vocab : (i+1)*m.Vocab]
		tensor.Add(m.bias.Grad, dl)
		h := m.Emb.Row(int(tok))
		dh := m.emb.Grad[int(tok)*m.Hidden : (int(tok)+1)*m.Hidden]
		for k, hk := range h {
			wk := m.W.Row(k)
			tensor.Axpy(m.proj.Grad[k*m.Vocab:(k+1)*m.Vocab], hk, dl)
			dh[k] += tensor.Dot(wk, dl)
		}
	}
}

// Save writes the weights as an F32 safetensors snapshot.
func (m *LM) Save(path string) error {
	return safetensors.Write(path, []safetensors.Tensor{
		{Name: tensorEmb, Shape: []int{m.Vocab, m.Hidden}, Data: m.Emb.Data},
		{Name: tensorProj, Shape: []int{m.Hidden, m.Vocab}, Data: m.W.Data},
		{Name: tensorBias, Shape: []int{m.Vocab}, Data: m.Bias},
	}, map[string]string{
		"format": "lanetrain",
		"vocab":  strconv.Itoa(m.Vocab),
		"hidden": strconv.Itoa(m.Hidden),
	})
}

// Load reads a snapshot written by Save.
func Load(path string) (*LM, error) {
	f, err := safetensors.Open(path)
	if err != nil {
		return nil, err
	}
	emb, info, err := f.ReadTensorF32(tensorEmb)
	if err != nil {
		return nil, err
	}
	if len(info.Shape) != 2 {
		return nil, fmt.Errorf("toy: %s: expected 2-d tensor, got shape %v", tensorEmb, info.Shape)
	}
	vocab, hidden := info.Shape[0], info.Shape[1]

	proj, info, err := f.ReadTensorF32(tensorProj)
	if err != nil {
		return nil, err
	}
	if len(info.Shape) != 2 || info.Shape[0] != hidden || info.Shape[1] != vocab {
		return nil, fmt.Errorf("toy: %s: shape %v does not match [%d %d]", tensorProj, info.Shape, hidden, vocab)
	}
	bias, info, err := f.ReadTensorF32(tensorBias)
	if err != nil {
		return nil, err
	}
	if len(info.Shape) != 1 || info.Shape[0] != vocab {
		return nil, fmt.Errorf("toy: %s: shape %v does not match [%d]", tensorBias, info.Shape, vocab)
	}

	m := &LM{Vocab: vocab, Hidden: hidden, Bias: bias}
	if m.Emb, err = tensor.NewMatFromData(vocab, hidden, emb); err != nil {
		return nil, err
	}
	if m.W, err = tensor.NewMatFromData(hidden, vocab, proj); err != nil {
		return nil, err
	}
	m.bindParams()
	return m, nil
}
