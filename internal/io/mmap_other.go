//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package io

import (
	"io"
	"os"

	"github.com/paveg/colcsv/internal/errors"
)

func mapFile(f *os.File, path string, size int) (Source, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, errors.NewIOError("read", path, err)
	}
	return &bytesSource{data: data, path: path}, nil
}
