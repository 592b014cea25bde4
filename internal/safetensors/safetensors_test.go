package safetensors

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/goccy/go-json"
)

// writeRaw writes a safetensors file with an arbitrary header and data
// section so tests can produce files Write would refuse to.
func writeRaw(t *testing.T, header any, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.safetensors")
	hdr, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	buf := binary.LittleEndian.AppendUint64(nil, uint64(len(hdr)))
	buf = append(buf, hdr...)
	buf = append(buf, data...)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func entry(dtype string, shape []int, start, end int64) map[string]any {
	return map[string]any{"dtype": dtype, "shape": shape, "data_offsets": []int64{start, end}}
}

func TestWriteThenOpen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "model.safetensors")
	in := []Tensor{
		{Name: "w", Shape: []int{2, 3}, Data: []float32{1, 2, 3, 4, 5, 6}},
		{Name: "bias", Shape: []int{3}, Data: []float32{-1, 0, 0.5}},
	}
	if err := Write(path, in, map[string]string{"format": "lanetrain"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := f.Names(); !slices.Equal(got, []string{"bias", "w"}) {
		t.Fatalf("Names = %v", got)
	}
	if f.Metadata["format"] != "lanetrain" {
		t.Fatalf("metadata = %v", f.Metadata)
	}
	// Sorted by name with contiguous offsets.
	bias, _ := f.Tensor("bias")
	w, _ := f.Tensor("w")
	if bias.Start != 0 || bias.End != 12 || w.Start != 12 || w.End != 36 {
		t.Fatalf("offsets bias=[%d,%d) w=[%d,%d)", bias.Start, bias.End, w.Start, w.End)
	}
	for _, want := range in {
		got, info, err := f.ReadTensorF32(want.Name)
		if err != nil {
			t.Fatalf("ReadTensorF32(%s): %v", want.Name, err)
		}
		if info.DType != "F32" || !slices.Equal(info.Shape, want.Shape) || !slices.Equal(got, want.Data) {
			t.Fatalf("%s: got %v %v %v", want.Name, info.DType, info.Shape, got)
		}
	}
}

func TestWriteRejectsBadTensors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tests := []struct {
		name    string
		tensors []Tensor
	}{
		{"shape mismatch", []Tensor{{Name: "a", Shape: []int{2, 2}, Data: []float32{1}}}},
		{"empty shape", []Tensor{{Name: "a", Data: []float32{1}}}},
		{"duplicate", []Tensor{
			{Name: "a", Shape: []int{1}, Data: []float32{1}},
			{Name: "a", Shape: []int{1}, Data: []float32{2}},
		}},
	}
	for _, tt := range tests {
		if err := Write(filepath.Join(dir, "x"), tt.tensors, nil); err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
	}
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()
	if _, err := Open(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}

	short := filepath.Join(t.TempDir(), "short")
	if err := os.WriteFile(short, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(short); err == nil {
		t.Fatal("expected error for truncated length prefix")
	}

	bad := filepath.Join(t.TempDir(), "bad")
	buf := binary.LittleEndian.AppendUint64(nil, 5)
	buf = append(buf, "{oops"...)
	if err := os.WriteFile(bad, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(bad); err == nil {
		t.Fatal("expected error for invalid JSON header")
	}

	huge := filepath.Join(t.TempDir(), "huge")
	if err := os.WriteFile(huge, binary.LittleEndian.AppendUint64(nil, 1<<40), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(huge); err == nil {
		t.Fatal("expected error for oversized header length")
	}
}

func TestOpenRejectsBadOffsets(t *testing.T) {
	t.Parallel()
	for _, offsets := range [][]int64{{0}, {8, 4}, {-4, 0}} {
		path := writeRaw(t, map[string]any{
			"x": map[string]any{"dtype": "F32", "shape": []int{1}, "data_offsets": offsets},
		}, make([]byte, 8))
		if _, err := Open(path); err == nil {
			t.Fatalf("offsets %v: expected error", offsets)
		}
	}
}

func TestReadTensorErrors(t *testing.T) {
	t.Parallel()
	path := writeRaw(t, map[string]any{
		"i8":    entry("I8", []int{2}, 0, 2),
		"short": entry("F32", []int{4}, 0, 8),
	}, make([]byte, 8))
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, _, err := f.ReadTensorF32("nope"); !errors.Is(err, ErrTensorNotFound) {
		t.Fatalf("expected ErrTensorNotFound, got %v", err)
	}
	if _, _, err := f.ReadTensorF32("i8"); !errors.Is(err, ErrUnsupportedDType) {
		t.Fatalf("expected ErrUnsupportedDType, got %v", err)
	}
	if _, _, err := f.ReadTensorF32("short"); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestReadHalfPrecision(t *testing.T) {
	t.Parallel()
	data := make([]byte, 8)
	binary.LittleEndian.PutUint16(data[0:], 0x3f80) // bf16 1.0
	binary.LittleEndian.PutUint16(data[2:], 0xc000) // bf16 -2.0
	binary.LittleEndian.PutUint16(data[4:], 0x3c00) // f16 1.0
	binary.LittleEndian.PutUint16(data[6:], 0x3800) // f16 0.5
	path := writeRaw(t, map[string]any{
		"__metadata__": map[string]string{"source": "test"},
		"bf":           entry("BF16", []int{2}, 0, 4),
		"h":            entry("F16", []int{2}, 4, 8),
	}, data)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(f.Tensors) != 2 {
		t.Fatalf("metadata must not be listed as a tensor: %v", f.Names())
	}
	bf, _, err := f.ReadTensorF32("bf")
	if err != nil || !slices.Equal(bf, []float32{1, -2}) {
		t.Fatalf("bf16 = %v, %v", bf, err)
	}
	h, _, err := f.ReadTensorF32("h")
	if err != nil || !slices.Equal(h, []float32{1, 0.5}) {
		t.Fatalf("f16 = %v, %v", h, err)
	}
}

func TestFp16ToFloat32(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   uint16
		want float32
	}{
		{0x0000, 0},
		{0x3c00, 1},
		{0xc000, -2},
		{0x7bff, 65504},
		{0x0001, float32(math.Ldexp(1, -24))},
		{0x7c00, float32(math.Inf(1))},
	}
	for _, tt := range tests {
		if got := fp16ToFloat32(tt.in); got != tt.want {
			t.Fatalf("fp16ToFloat32(%#04x) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if v := fp16ToFloat32(0x7e00); !math.IsNaN(float64(v)) {
		t.Fatalf("expected NaN, got %v", v)
	}
}

func TestNumElements(t *testing.T) {
	t.Parallel()
	if n, err := numElements([]int{2, 3, 4}); err != nil || n != 24 {
		t.Fatalf("numElements = %d, %v", n, err)
	}
	for _, shape := range [][]int{nil, {0}, {3, -1}, {math.MaxInt, 2}} {
		if _, err := numElements(shape); err == nil {
			t.Fatalf("shape %v: expected error", shape)
		}
	}
}
