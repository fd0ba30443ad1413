//go:build unix

package mmfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MapAnon maps size bytes of zeroed, private, read/write memory.
// The mapping starts on an OS page boundary.
func MapAnon(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmfile: invalid mapping size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("mmfile: anonymous mmap of %d bytes: %w", size, err)
	}
	return data, unmapper(data, nil), nil
}

// MapFile maps the first size bytes of the file at path as shared read/write
// memory. The file is created if missing and extended if shorter than size;
// a longer file is mapped but not truncated.
//
// The returned file stays open for fdatasync until cleanup runs.
func MapFile(path string, size int64) ([]byte, *os.File, func() error, error) {
	if size <= 0 || size > int64(^uint(0)>>1) {
		return nil, nil, nil, fmt.Errorf("mmfile: invalid mapping size %d", size)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, nil, err
	}
	if info.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, nil, nil, fmt.Errorf("mmfile: extend %s to %d bytes: %w", path, size, err)
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, nil, fmt.Errorf("mmfile: mmap %s: %w", path, err)
	}
	return data, f, unmapper(data, f), nil
}

func unmapper(data []byte, f *os.File) func() error {
	done := false
	return func() error {
		if done {
			return nil
		}
		done = true
		err := unix.Munmap(data)
		if errors.Is(err, unix.EINVAL) {
			// Already unmapped.
			err = nil
		}
		if f != nil {
			err = errors.Join(err, f.Close())
		}
		return err
	}
}
