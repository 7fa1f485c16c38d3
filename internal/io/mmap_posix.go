//go:build linux || darwin || freebsd || netbsd || openbsd

package io

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/paveg/colcsv/internal/errors"
)

// mappedSource is a read-only shared mapping of a whole file. The mapping
// stays valid after the file descriptor is closed.
type mappedSource struct {
	data []byte
	path string
}

func mapFile(f *os.File, path string, size int) (Source, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.NewIOError("mmap", path, err)
	}
	// Advisory only
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return &mappedSource{data: data, path: path}, nil
}

func (s *mappedSource) Bytes() []byte { return s.data }
func (s *mappedSource) Path() string  { return s.path }

func (s *mappedSource) Close() error {
	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data = nil
	if err != nil {
		return errors.NewIOError("munmap", s.path, err)
	}
	return nil
}
