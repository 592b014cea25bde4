// Package safetensors reads and writes model snapshots in the safetensors
// layout: an 8-byte little-endian header length, a JSON header mapping
// tensor names to dtype, shape and byte range, then the raw tensor bytes.
package safetensors

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/goccy/go-json"
)

const metadataKey = "__metadata__"

// maxHeaderLen bounds the JSON header so a corrupt length prefix cannot
// trigger a huge allocation.
const maxHeaderLen = 100 << 20

var (
	ErrTensorNotFound   = errors.New("safetensors: tensor not found")
	ErrUnsupportedDType = errors.New("safetensors: unsupported dtype")
)

// TensorInfo locates one tensor inside the data section.
type TensorInfo struct {
	DType string
	Shape []int
	Start int64
	End   int64
}

// File is an opened snapshot. Tensor data is read on demand.
type File struct {
	Path      string
	DataStart int64
	Tensors   map[string]TensorInfo
	Metadata  map[string]string
}

type tensorHeader struct {
	DType       string  `json:"dtype"`
	Shape       []int   `json:"shape"`
	DataOffsets []int64 `json:"data_offsets"`
}

// Open parses the header of the snapshot at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lenBuf [8]byte
	if _, err := io.ReadFull(f, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("safetensors: read header length: %w", err)
	}
	headerLen := binary.LittleEndian.Uint64(lenBuf[:])
	if headerLen > maxHeaderLen {
		return nil, fmt.Errorf("safetensors: header length %d too large", headerLen)
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("safetensors: read header: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(header, &raw); err != nil {
		return nil, fmt.Errorf("safetensors: parse header: %w", err)
	}
	out := &File{
		Path:      path,
		DataStart: int64(8 + headerLen),
		Tensors:   make(map[string]TensorInfo, len(raw)),
	}
	if meta, ok := raw[metadataKey]; ok {
		if err := json.Unmarshal(meta, &out.Metadata); err != nil {
			return nil, fmt.Errorf("safetensors: parse metadata: %w", err)
		}
		delete(raw, metadataKey)
	}
	for name, msg := range raw {
		var th tensorHeader
		if err := json.Unmarshal(msg, &th); err != nil {
			return nil, fmt.Errorf("safetensors: parse tensor %s: %w", name, err)
		}
		if len(th.DataOffsets) != 2 || th.DataOffsets[1] < th.DataOffsets[0] || th.DataOffsets[0] < 0 {
			return nil, fmt.Errorf("safetensors: tensor %s: invalid data_offsets %v", name, th.DataOffsets)
		}
		out.Tensors[name] = TensorInfo{
			DType: th.DType,
			Shape: th.Shape,
			Start: th.DataOffsets[0],
			End:   th.DataOffsets[1],
		}
	}
	return out, nil
}

// Names returns the tensor names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (f *File) Tensor(name string) (TensorInfo, bool) {
	t, ok := f.Tensors[name]
	return t, ok
}

// ReadTensor returns the raw bytes of a tensor.
func (f *File) ReadTensor(name string) ([]byte, TensorInfo, error) {
	t, ok := f.Tensors[name]
	if !ok {
		return nil, TensorInfo{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, TensorInfo{}, err
	}
	defer func() { _ = file.Close() }()

	buf := make([]byte, t.End-t.Start)
	if _, err := file.ReadAt(buf, f.DataStart+t.Start); err != nil {
		return nil, TensorInfo{}, fmt.Errorf("safetensors: read tensor %s: %w", name, err)
	}
	return buf, t, nil
}

// ReadTensorF32 reads a tensor and widens it to float32. F32, BF16 and F16
// are supported.
func (f *File) ReadTensorF32(name string) ([]float32, TensorInfo, error) {
	raw, info, err := f.ReadTensor(name)
	if err != nil {
		return nil, TensorInfo{}, err
	}
	n, err := numElements(info.Shape)
	if err != nil {
		return nil, TensorInfo{}, fmt.Errorf("safetensors: tensor %s: %w", name, err)
	}

	var (
		width  int
		decode func([]byte) float32
	)
	switch info.DType {
	case "F32":
		width = 4
		decode = func(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }
	case "BF16":
		width = 2
		decode = func(b []byte) float32 { return bf16ToF32(binary.LittleEndian.Uint16(b)) }
	case "F16":
		width = 2
		decode = func(b []byte) float32 { return fp16ToFloat32(binary.LittleEndian.Uint16(b)) }
	default:
		return nil, TensorInfo{}, fmt.Errorf("%w %s (tensor %s)", ErrUnsupportedDType, info.DType, name)
	}
	if len(raw) != n*width {
		return nil, TensorInfo{}, fmt.Errorf("safetensors: tensor %s: %d bytes for %d %s values", name, len(raw), n, info.DType)
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = decode(raw[i*width:])
	}
	return out, info, nil
}

// Tensor is one named F32 tensor to be written.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float32
}

// Write stores tensors as F32 at path. Tensors are laid out in name order
// with contiguous offsets; meta is written as the __metadata__ block.
func Write(path string, tensors []Tensor, meta map[string]string) error {
	sorted := slices.Clone(tensors)
	slices.SortFunc(sorted, func(a, b Tensor) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})

	header := make(map[string]any, len(sorted)+1)
	if len(meta) > 0 {
		header[metadataKey] = meta
	}
	var off int64
	for i, t := range sorted {
		if i > 0 && sorted[i-1].Name == t.Name {
			return fmt.Errorf("safetensors: duplicate tensor %s", t.Name)
		}
		n, err := numElements(t.Shape)
		if err != nil {
			return fmt.Errorf("safetensors: tensor %s: %w", t.Name, err)
		}
		if n != len(t.Data) {
			return fmt.Errorf("safetensors: tensor %s: shape %v holds %d values, have %d", t.Name, t.Shape, n, len(t.Data))
		}
		end := off + int64(4*n)
		header[t.Name] = tensorHeader{DType: "F32", Shape: t.Shape, DataOffsets: []int64{off, end}}
		off = end
	}
	hdr, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("safetensors: encode header: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := writeBody(w, hdr, sorted); err != nil {
		_ = f.Close()
		return fmt.Errorf("safetensors: write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("safetensors: write %s: %w", path, err)
	}
	return f.Close()
}

func writeBody(w io.Writer, hdr []byte, tensors []Tensor) error {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(hdr)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	var b [4]byte
	for _, t := range tensors {
		for _, v := range t.Data {
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
			if _, err := w.Write(b[:]); err != nil {
				return err
			}
		}
	}
	return nil
}

func numElements(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, errors.New("empty shape")
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("invalid dim %d", d)
		}
		if n > math.MaxInt/d {
			return 0, errors.New("tensor too large")
		}
		n *= d
	}
	return n, nil
}

func bf16ToF32(u uint16) float32 {
	return math.Float32frombits(uint32(u) << 16)
}

func fp16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h & 0x3ff)
	switch {
	case exp == 0 && frac == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// Subnormal: normalise the fraction.
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		return math.Float32frombits(sign | e<<23 | (frac&0x3ff)<<13)
	case exp == 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | frac<<13)
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | frac<<13)
	}
}
