// Package tokenstore reads and writes numericalized corpora.
//
// A token file is a fixed header followed by little-endian int32 ids:
//
//	offset  size  field
//	0       4     magic "LTOK"
//	4       4     version (uint32, currently 1)
//	8       4     flags (uint32, must be 0)
//	12      8     count (uint64)
//	20      4*n   ids
package tokenstore

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

const (
	Magic   = "LTOK"
	Version = 1

	headerSize = 20
)

var (
	ErrCorruptFile        = errors.New("tokenstore: corrupt token file")
	ErrUnsupportedVersion = errors.New("tokenstore: unsupported version")
)

// File is an opened token file. Ids are decoded from the mapped bytes on
// demand; Close releases the mapping.
type File struct {
	data    []byte
	count   int
	mmapped bool
}

// Write stores ids at path, replacing any existing file.
func Write(path string, ids []int32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := encode(w, ids); err != nil {
		_ = f.Close()
		return fmt.Errorf("tokenstore: write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("tokenstore: write %s: %w", path, err)
	}
	return f.Close()
}

func encode(w io.Writer, ids []int32) error {
	var hdr [headerSize]byte
	copy(hdr[:4], Magic)
	binary.LittleEndian.PutUint32(hdr[4:], Version)
	binary.LittleEndian.PutUint32(hdr[8:], 0)
	binary.LittleEndian.PutUint64(hdr[12:], uint64(len(ids)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	var b [4]byte
	for _, id := range ids {
		binary.LittleEndian.PutUint32(b[:], uint32(id))
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

// Open maps the token file at path read-only. If mmap is unavailable the
// whole file is read into memory instead.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := st.Size()
	if size64 < headerSize || size64 > math.MaxInt {
		return nil, ErrCorruptFile
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		tf, perr := parse(data, true)
		if perr != nil {
			_ = unix.Munmap(data)
			return nil, perr
		}
		return tf, nil
	}

	data = make([]byte, size)
	if _, err := f.ReadAt(data, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("tokenstore: read %s: %w", path, err)
	}
	return parse(data, false)
}

func parse(data []byte, mmapped bool) (*File, error) {
	if len(data) < headerSize || string(data[:4]) != Magic {
		return nil, ErrCorruptFile
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	if flags := binary.LittleEndian.Uint32(data[8:]); flags != 0 {
		return nil, fmt.Errorf("%w: unknown flags %#x", ErrCorruptFile, flags)
	}
	count := binary.LittleEndian.Uint64(data[12:])
	if count > uint64(len(data)-headerSize)/4 || uint64(len(data)-headerSize) != 4*count {
		return nil, fmt.Errorf("%w: %d ids declared, %d bytes of data", ErrCorruptFile, count, len(data)-headerSize)
	}
	return &File{data: data, count: int(count), mmapped: mmapped}, nil
}

// Len returns the number of ids in the file.
func (f *File) Len() int { return f.count }

// At returns id i.
func (f *File) At(i int) int32 {
	if i < 0 || i >= f.count {
		panic("tokenstore: index out of range")
	}
	return int32(binary.LittleEndian.Uint32(f.data[headerSize+4*i:]))
}

// Tokens decodes every id into a new slice.
func (f *File) Tokens() []int32 {
	out := make([]int32, f.count)
	body := f.data[headerSize:]
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(body[4*i:]))
	}
	return out
}

// Close releases the mapping. The File must not be used afterwards.
func (f *File) Close() error {
	if f == nil || f.data == nil {
		return nil
	}
	var err error
	if f.mmapped {
		err = unix.Munmap(f.data)
	}
	f.data = nil
	f.count = 0
	f.mmapped = false
	return err
}
