package wal

import (
	"io"
	"os"
)

// preallocate ensures f's length is at least sizeInBytes, zero-filling the
// extension if the host offers no native preallocation call. It is used
// once, against a freshly created empty segment file, to materialize the
// descriptor table region on disk before any descriptor is written into it.
func preallocate(f *os.File, sizeInBytes int64) error {
	if sizeInBytes == 0 {
		return nil
	}
	return preallocExtend(f, sizeInBytes)
}

// preallocExtendTrunc is the portable fallback: grow the file with
// Truncate, which the kernel zero-fills. It never shrinks a file that
// already reached sizeInBytes.
func preallocExtendTrunc(f *os.File, sizeInBytes int64) error {
	curOff, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := f.Seek(curOff, io.SeekStart); err != nil {
		return err
	}
	if size >= sizeInBytes {
		return nil
	}
	return f.Truncate(sizeInBytes)
}
