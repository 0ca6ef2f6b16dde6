package wal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	// magicSize is the width of the segment and cursor magic constants.
	magicSize = 16

	// segmentHeaderSize is MAGIC_SEG(16) + entry_limit(8).
	segmentHeaderSize = magicSize + 8

	// DefaultEntryLimit is substituted for a segment opened with limit 0.
	DefaultEntryLimit = 10240

	// segmentFileExt is the extension every segment file carries.
	segmentFileExt = ".dat"

	// privateFileMode grants the owner read/write on segment and cursor files.
	privateFileMode = 0600
)

// magicSeg identifies a segment file. Distinct from magicCur in bytes 1, 8,
// and 9.
var magicSeg = [magicSize]byte{
	0x11, 0x74, 0xEF, 0xED, 0xAB, 0x18, 0x60, 0x00,
	0x11, 0x74, 0xEF, 0xED, 0xAB, 0x18, 0x60, 0x75,
}

// ErrInvalidData signals a magic mismatch, an invalid descriptor slot
// encountered mid-read, or (when enabled) a CRC-32 mismatch.
var ErrInvalidData = errors.New("wal: invalid data")

// segment is one preallocated file holding a fixed-capacity descriptor
// table and an appended payload region. Its layout on disk is:
//
//	[0, 16)               MAGIC_SEG
//	[16, 24)               entry_limit (u64 BE)
//	[24, 24+22*limit)      descriptor table, `limit` slots
//	[24+22*limit, EOF)     payload region, grows by append
type segment struct {
	f *os.File

	sequence    uint64
	entryLimit  uint64
	entryNumber uint64
	dataWritten int64

	checkCRC32 bool
	logger     *zap.Logger
}

// segmentFilename is the canonical hex-encoded name for sequence.
func segmentFilename(sequence uint64) string {
	return fmt.Sprintf("%016x%s", sequence, segmentFileExt)
}

// segmentPath joins dir and the canonical filename for sequence.
func segmentPath(dir string, sequence uint64) string {
	return filepath.Join(dir, segmentFilename(sequence))
}

// openSegment opens (or, if create is true, creates) the segment file for
// sequence in dir, preparing a fresh header and descriptor table if the
// file is empty, then recovering entryNumber by scanning for the first
// invalid descriptor slot.
//
// If limit is 0, DefaultEntryLimit is substituted for a freshly created
// file; for an existing file, the limit recorded in its header always
// wins. If create is false and the file does not exist, the returned error
// satisfies os.IsNotExist - callers walking a chain of sequences treat that
// as end-of-list, never surfacing it further.
func openSegment(dir string, sequence, limit uint64, create bool, checkCRC32 bool, logger *zap.Logger) (*segment, error) {
	if limit == 0 {
		limit = DefaultEntryLimit
	}

	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(segmentPath(dir, sequence), flags, privateFileMode)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := prepareSegment(f, limit); err != nil {
			f.Close()
			return nil, err
		}
	}

	var hdr [segmentHeaderSize]byte
	if err := readExactAt(f, hdr[:], 0); err != nil {
		f.Close()
		return nil, err
	}
	if !bytes.Equal(hdr[:magicSize], magicSeg[:]) {
		f.Close()
		return nil, fmt.Errorf("%w: invalid magic num", ErrInvalidData)
	}
	limit = binary.BigEndian.Uint64(hdr[magicSize:segmentHeaderSize])

	entryNumber, err := recoverEntryNumber(f, limit)
	if err != nil {
		f.Close()
		return nil, err
	}

	info, err = f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &segment{
		f:           f,
		sequence:    sequence,
		entryLimit:  limit,
		entryNumber: entryNumber,
		dataWritten: info.Size(),
		checkCRC32:  checkCRC32,
		logger:      logger,
	}
	if s.logger != nil {
		s.logger.Debug("opened segment",
			zap.Uint64("sequence", sequence),
			zap.Uint64("entry_limit", limit),
			zap.Uint64("entry_number", entryNumber))
	}
	return s, nil
}

// prepareSegment preallocates a freshly created, empty file to its full
// capacity and stamps the header. Preallocation zero-fills the descriptor
// table, so every slot starts out "not valid".
func prepareSegment(f *os.File, limit uint64) error {
	total := int64(segmentHeaderSize) + int64(limit)*descriptorSize
	if err := preallocate(f, total); err != nil {
		return err
	}
	if err := writeAllAt(f, magicSeg[:], 0); err != nil {
		return err
	}
	var limitBuf [8]byte
	binary.BigEndian.PutUint64(limitBuf[:], limit)
	return writeAllAt(f, limitBuf[:], magicSize)
}

// recoverEntryNumber scans descriptor slots from 0 upward and returns the
// index of the first invalid slot. Because a descriptor's marker bytes are
// the last thing a successful append writes, this recovers exactly the
// count of fully committed entries, even across a crash mid-append.
func recoverEntryNumber(f *os.File, limit uint64) (uint64, error) {
	table := make([]byte, descriptorSize*limit)
	if err := readExactAt(f, table, segmentHeaderSize); err != nil {
		return 0, err
	}
	var n uint64
	for n < limit {
		var d descriptor
		copy(d[:], table[n*descriptorSize:(n+1)*descriptorSize])
		if !d.valid() {
			break
		}
		n++
	}
	return n, nil
}

// Sequence returns the segment's sequence number.
func (s *segment) Sequence() uint64 {
	return s.sequence
}

// Len returns the number of valid (committed) entries.
func (s *segment) Len() uint64 {
	return s.entryNumber
}

// Space returns how many more entries this segment can accept.
func (s *segment) Space() uint64 {
	return s.entryLimit - s.entryNumber
}

// Write appends a single entry: payload first, descriptor second. It
// returns false, with no error, if the segment is already full. A crash
// between the payload write and the descriptor write leaves the slot
// invalid, so the orphaned payload bytes are never referenced by a
// recovered descriptor; the next Write simply writes past them, because
// dataWritten is recomputed as the file's length on every open.
func (s *segment) Write(entry []byte) (bool, error) {
	if s.entryNumber == s.entryLimit {
		return false, nil
	}

	offset := s.dataWritten
	if err := writeAllAt(s.f, entry, offset); err != nil {
		return false, err
	}
	s.dataWritten += int64(len(entry))

	var d descriptor
	d.setMarker()
	d.setOffset(uint64(offset))
	d.setLength(uint64(len(entry)))
	d.setCRC32(crc32.ChecksumIEEE(entry))

	slotOffset := int64(segmentHeaderSize) + int64(s.entryNumber)*descriptorSize
	if err := writeAllAt(s.f, d.bytes(), slotOffset); err != nil {
		return false, err
	}
	s.entryNumber++
	return true, nil
}

// BatchWrite writes entries one by one until all are written, the segment
// fills, or an error occurs. The returned count reflects entries already
// committed even when it is short of len(entries).
func (s *segment) BatchWrite(entries [][]byte) (int, error) {
	count := 0
	for _, entry := range entries {
		ok, err := s.Write(entry)
		if err != nil {
			return count, err
		}
		if !ok {
			return count, nil
		}
		count++
	}
	return count, nil
}

// ReadInto appends up to limit entries, starting at slot start, to out and
// returns the extended slice along with how many entries were appended.
func (s *segment) ReadInto(start, limit uint64, out [][]byte) ([][]byte, int, error) {
	if start >= s.entryNumber {
		return out, 0, nil
	}
	if remaining := s.entryNumber - start; limit > remaining {
		limit = remaining
	}
	if limit == 0 {
		return out, 0, nil
	}

	table := make([]byte, descriptorSize*limit)
	if err := readExactAt(s.f, table, int64(segmentHeaderSize)+int64(start)*descriptorSize); err != nil {
		return out, 0, err
	}

	n := 0
	for i := uint64(0); i < limit; i++ {
		var d descriptor
		copy(d[:], table[i*descriptorSize:(i+1)*descriptorSize])
		if !d.valid() {
			return out, n, fmt.Errorf("%w: invalid overhead at slot %d", ErrInvalidData, start+i)
		}

		payload := make([]byte, d.length())
		if err := readExactAt(s.f, payload, int64(d.offset())); err != nil {
			return out, n, err
		}
		if s.checkCRC32 {
			if got := crc32.ChecksumIEEE(payload); got != d.crc32() {
				return out, n, fmt.Errorf("%w: checksum mismatch at slot %d: want %d, got %d",
					ErrInvalidData, start+i, d.crc32(), got)
			}
		}

		out = append(out, payload)
		n++
	}
	return out, n, nil
}

// Flush fsyncs the segment file, the durability barrier for every entry
// committed so far.
func (s *segment) Flush() error {
	return fsync(s.f)
}

// Destroy unlinks the segment's file. It is idempotent and best-effort: a
// failure here cannot corrupt subsequent operation, because sequence-
// addressed filenames remain monotonic, so it is swallowed rather than
// returned.
func (s *segment) Destroy() {
	name := s.f.Name()
	s.f.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) && s.logger != nil {
		s.logger.Warn("failed to remove segment file", zap.String("path", name), zap.Error(err))
	}
}

// Close closes the segment's file handle without removing it.
func (s *segment) Close() error {
	return s.f.Close()
}
