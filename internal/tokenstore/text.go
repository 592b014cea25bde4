package tokenstore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseText reads whitespace-separated decimal ids.
func ParseText(r io.Reader) ([]int32, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)
	var ids []int32
	for sc.Scan() {
		v, err := strconv.ParseInt(sc.Text(), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("tokenstore: id %d: %w", len(ids)+1, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("tokenstore: id %d: negative value %d", len(ids)+1, v)
		}
		ids = append(ids, int32(v))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tokenstore: scan: %w", err)
	}
	return ids, nil
}

// Load reads ids from path. Files ending in .txt are parsed as text, every
// other file as a token file.
func Load(path string) ([]int32, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return ParseText(f)
	}
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return f.Tokens(), nil
}

// Split cuts the last validFraction of ids off as a validation stream.
// validFraction must be in [0, 1).
func Split(ids []int32, validFraction float64) (trainIDs, validIDs []int32, err error) {
	if validFraction < 0 || validFraction >= 1 {
		return nil, nil, fmt.Errorf("tokenstore: valid fraction %v outside [0, 1)", validFraction)
	}
	cut := len(ids) - int(float64(len(ids))*validFraction)
	return ids[:cut], ids[cut:], nil
}

// VocabSize returns one more than the largest id across streams.
func VocabSize(streams ...[]int32) int {
	var hi int32 = -1
	for _, s := range streams {
		for _, id := range s {
			hi = max(hi, id)
		}
	}
	return int(hi) + 1
}
