//go:build !unix

package mmfile

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// MapAnon allocates size zeroed bytes on the heap when mmap is not available.
// The slice is not guaranteed to be page aligned.
func MapAnon(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmfile: invalid mapping size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}

// MapFile reads the first size bytes of the file at path into memory when mmap
// is not available. Cleanup writes the buffer back and closes the file.
func MapFile(path string, size int64) ([]byte, *os.File, func() error, error) {
	if size <= 0 || size > int64(^uint(0)>>1) {
		return nil, nil, nil, fmt.Errorf("mmfile: invalid mapping size %d", size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, nil, err
	}
	data := make([]byte, size)
	if _, err := f.ReadAt(data, 0); err != nil && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, nil, nil, err
	}
	done := false
	cleanup := func() error {
		if done {
			return nil
		}
		done = true
		if _, err := f.WriteAt(data, 0); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return data, f, cleanup, nil
}
