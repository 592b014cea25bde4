package tokenstore

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestWriteOpenRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		ids  []int32
	}{
		{"empty", nil},
		{"one", []int32{42}},
		{"many", []int32{0, 1, 2, 65535, 1 << 30, 7}},
	}
	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), tt.name+".tok")
		if err := Write(path, tt.ids); err != nil {
			t.Fatalf("%s: Write: %v", tt.name, err)
		}
		f, err := Open(path)
		if err != nil {
			t.Fatalf("%s: Open: %v", tt.name, err)
		}
		if f.Len() != len(tt.ids) {
			t.Fatalf("%s: Len = %d, want %d", tt.name, f.Len(), len(tt.ids))
		}
		if got := f.Tokens(); !slices.Equal(got, tt.ids) {
			t.Fatalf("%s: Tokens = %v", tt.name, got)
		}
		for i, id := range tt.ids {
			if f.At(i) != id {
				t.Fatalf("%s: At(%d) = %d, want %d", tt.name, i, f.At(i), id)
			}
		}
		if err := f.Close(); err != nil {
			t.Fatalf("%s: Close: %v", tt.name, err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("%s: second Close: %v", tt.name, err)
		}
	}
}

func TestFileSize(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "c.tok")
	if err := Write(path, []int32{1, 2, 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Size() != headerSize+12 {
		t.Fatalf("file size %d, want %d", st.Size(), headerSize+12)
	}
}

func header(version, flags uint32, count uint64) []byte {
	b := []byte(Magic)
	b = binary.LittleEndian.AppendUint32(b, version)
	b = binary.LittleEndian.AppendUint32(b, flags)
	return binary.LittleEndian.AppendUint64(b, count)
}

func TestOpenRejectsBadFiles(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", []byte("LTOK"), ErrCorruptFile},
		{"magic", append([]byte("NOPE"), header(1, 0, 0)[4:]...), ErrCorruptFile},
		{"version", header(2, 0, 0), ErrUnsupportedVersion},
		{"flags", header(1, 4, 0), ErrCorruptFile},
		{"count too large", append(header(1, 0, 3), make([]byte, 8)...), ErrCorruptFile},
		{"trailing bytes", append(header(1, 0, 1), make([]byte, 6)...), ErrCorruptFile},
	}
	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), tt.name)
		if err := os.WriteFile(path, tt.data, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Open(path); !errors.Is(err, tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestParseText(t *testing.T) {
	t.Parallel()
	ids, err := ParseText(strings.NewReader("3 1 4\n1\t5   9\n\n2 6"))
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	if !slices.Equal(ids, []int32{3, 1, 4, 1, 5, 9, 2, 6}) {
		t.Fatalf("ids = %v", ids)
	}
	for _, in := range []string{"1 two 3", "1 -4", "99999999999"} {
		if _, err := ParseText(strings.NewReader(in)); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	txt := filepath.Join(dir, "ids.txt")
	if err := os.WriteFile(txt, []byte("5 6 7"), 0o644); err != nil {
		t.Fatal(err)
	}
	tok := filepath.Join(dir, "ids.tok")
	if err := Write(tok, []int32{5, 6, 7}); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{txt, tok} {
		ids, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", path, err)
		}
		if !slices.Equal(ids, []int32{5, 6, 7}) {
			t.Fatalf("Load(%s) = %v", path, ids)
		}
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()
	ids := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	tr, va, err := Split(ids, 0.2)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if !slices.Equal(tr, ids[:8]) || !slices.Equal(va, ids[8:]) {
		t.Fatalf("split = %v / %v", tr, va)
	}
	if tr, va, _ := Split(ids, 0); len(tr) != 10 || len(va) != 0 {
		t.Fatalf("zero fraction: %d / %d", len(tr), len(va))
	}
	for _, frac := range []float64{-0.1, 1, 2} {
		if _, _, err := Split(ids, frac); err == nil {
			t.Fatalf("fraction %v: expected error", frac)
		}
	}
}

func TestVocabSize(t *testing.T) {
	t.Parallel()
	if n := VocabSize([]int32{3, 1}, []int32{9}); n != 10 {
		t.Fatalf("VocabSize = %d, want 10", n)
	}
	if n := VocabSize(); n != 0 {
		t.Fatalf("VocabSize() = %d, want 0", n)
	}
}
