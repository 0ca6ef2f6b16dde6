package wal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// cursorFileName is the fixed name of the cursor file within a WAL dir.
	cursorFileName = "cursor"

	// cursorSize is MAGIC_CUR(16) + sequence(8) + read(8).
	cursorSize = magicSize + 8 + 8
)

// magicCur identifies a cursor file. Distinct from magicSeg in bytes 1, 8,
// and 9.
var magicCur = [magicSize]byte{
	0x11, 0x75, 0xEF, 0xED, 0xAB, 0x18, 0x60, 0x00,
	0x74, 0x75, 0xEF, 0xED, 0xAB, 0x18, 0x60, 0x75,
}

// position names the next entry a WAL must deliver: the sequence number of
// the segment holding it, and how many entries have already been consumed
// from that segment.
type position struct {
	sequence uint64
	read     uint64
}

// cursor is the durable (sequence, read) pair. A missing cursor file is
// equivalent to the zero position; the file is created lazily, on the
// first successful save.
type cursor struct {
	path string
	pos  position
}

// openCursor loads dir's cursor file. A missing or empty file yields the
// zero position without error - this is the expected state for a brand new
// WAL directory.
func openCursor(dir string) (*cursor, error) {
	c := &cursor{path: filepath.Join(dir, cursorFileName)}

	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return c, nil
	}

	var buf [cursorSize]byte
	if err := readExactAt(f, buf[:], 0); err != nil {
		return nil, err
	}
	if !bytes.Equal(buf[:magicSize], magicCur[:]) {
		return nil, fmt.Errorf("%w: invalid magic num", ErrInvalidData)
	}

	c.pos.sequence = binary.BigEndian.Uint64(buf[magicSize : magicSize+8])
	c.pos.read = binary.BigEndian.Uint64(buf[magicSize+8 : cursorSize])
	return c, nil
}

// save atomically replaces the cursor file with the current position: the
// 32-byte image is written to a scratch file, fsynced, then renamed over
// the live name, so a reader never observes a half-written cursor.
func (c *cursor) save() error {
	var buf [cursorSize]byte
	copy(buf[:magicSize], magicCur[:])
	binary.BigEndian.PutUint64(buf[magicSize:magicSize+8], c.pos.sequence)
	binary.BigEndian.PutUint64(buf[magicSize+8:cursorSize], c.pos.read)

	tmpPath := c.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, privateFileMode)
	if err != nil {
		return err
	}
	if err := writeAllAt(f, buf[:], 0); err != nil {
		f.Close()
		return err
	}
	if err := fsync(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, c.path)
}
