package io

import (
	"bytes"
	"io"
	"os"

	"github.com/paveg/colcsv/internal/errors"
)

// Source is an immutable, randomly addressable byte source. Chunk parsers
// read disjoint ranges of Bytes concurrently.
type Source interface {
	Bytes() []byte
	// Path names the backing file, or "" for in-memory sources.
	Path() string
	Close() error
}

type bytesSource struct {
	data []byte
	path string
}

// NewBytesSource wraps data. data must not be modified while in use.
func NewBytesSource(data []byte) Source {
	return &bytesSource{data: data}
}

// NewReaderSource rewinds r to its start and buffers its content.
func NewReaderSource(r io.ReadSeeker) (Source, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.NewIOError("seek", "", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, errors.NewIOError("read", "", err)
	}
	return &bytesSource{data: buf.Bytes()}, nil
}

func (s *bytesSource) Bytes() []byte { return s.data }
func (s *bytesSource) Path() string  { return s.path }
func (s *bytesSource) Close() error  { return nil }

// OpenFile opens path for reading. Regular files are memory-mapped where the
// platform supports it and read into memory otherwise.
func OpenFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError("open", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, errors.NewIOError("stat", path, err)
	}
	if !stat.Mode().IsRegular() {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, errors.NewIOError("read", path, err)
		}
		return &bytesSource{data: data, path: path}, nil
	}
	if stat.Size() == 0 {
		return &bytesSource{path: path}, nil
	}

	return mapFile(f, path, int(stat.Size()))
}
