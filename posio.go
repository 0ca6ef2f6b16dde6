// Package wal implements an append-only, on-disk write-ahead log. Producers
// append opaque byte entries; consumers read them back in append order and
// advance a durable cursor so that entries, once delivered, are eventually
// reclaimed. The log is single-process, single-writer, single-reader, and
// crash-safe: a reopen after an unclean shutdown recovers exactly the
// entries that were fully persisted before the crash.
//
// Entries live in "segment" files: a preallocated container holding a fixed
// table of 22-byte descriptors (offset, length, checksum, validity marker)
// followed by a variable-size payload region. A durable cursor file records
// "next entry to deliver" as a (segment sequence, entries read) pair. The
// WAL ties segments and cursor together: it rolls a new segment when the
// tail fills and reclaims (deletes) a segment once every entry in it has
// been delivered and the cursor has moved past it.
package wal

import (
	"errors"
	"io"
	"os"
	"syscall"
)

// ErrWriteZero is returned by writeAllAt when the underlying WriteAt call
// makes no progress before the buffer is exhausted.
var ErrWriteZero = errors.New("wal: write made no progress")

// isInterrupted reports whether err is a transient "interrupted system
// call" error that should simply be retried.
func isInterrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}

// writeAllAt writes every byte of buf to f at offset, retrying short writes
// and interrupted syscalls until the whole buffer lands. It fails with
// ErrWriteZero if a call makes no progress, and with the underlying error
// for any other failure.
func writeAllAt(f *os.File, buf []byte, offset int64) error {
	for len(buf) > 0 {
		n, err := f.WriteAt(buf, offset)
		if n > 0 {
			buf = buf[n:]
			offset += int64(n)
		}
		if err != nil {
			if isInterrupted(err) {
				continue
			}
			return err
		}
		if n == 0 {
			return ErrWriteZero
		}
	}
	return nil
}

// readExactAt reads exactly len(buf) bytes from f at offset, retrying
// interrupted syscalls. It fails with io.ErrUnexpectedEOF if the file ends
// before buf is filled.
func readExactAt(f *os.File, buf []byte, offset int64) error {
	for len(buf) > 0 {
		n, err := f.ReadAt(buf, offset)
		if n > 0 {
			buf = buf[n:]
			offset += int64(n)
		}
		if err != nil {
			if isInterrupted(err) {
				continue
			}
			if err == io.EOF {
				if len(buf) > 0 {
					return io.ErrUnexpectedEOF
				}
				return nil
			}
			return err
		}
		if n == 0 && len(buf) > 0 {
			return io.ErrUnexpectedEOF
		}
	}
	return nil
}
