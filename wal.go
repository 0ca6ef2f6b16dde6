package wal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// lockFileName is the advisory-lock file guarding the single-process
// invariant: only one WAL may hold a directory open at a time.
const lockFileName = ".lock"

// ErrOther reports a precondition failure outside the other named error
// kinds - currently, "the configured directory exists and is not a
// directory."
var ErrOther = errors.New("wal: precondition failed")

// WAL is an ordered set of segments plus a durable read cursor. It is not
// safe for concurrent use by multiple goroutines, and Open enforces
// single-process use with an advisory file lock.
type WAL struct {
	dir string
	cfg Config

	segments     []*segment
	nextSequence uint64
	cur          *cursor

	lockFile *os.File
	logger   *zap.Logger
	metrics  *Metrics
}

// Option configures an optional collaborator on a WAL at Open time.
type Option func(*WAL)

// WithLogger attaches a *zap.Logger. Without one, the WAL logs nothing.
func WithLogger(logger *zap.Logger) Option {
	return func(w *WAL) { w.logger = logger }
}

// WithMetrics attaches Prometheus instrumentation. Without one, the WAL
// records nothing.
func WithMetrics(m *Metrics) Option {
	return func(w *WAL) { w.metrics = m }
}

// Open opens dir as a WAL directory, creating it if absent, recovering
// every consecutively-sequenced segment starting at the durable cursor's
// sequence, and reconciling the cursor against what was actually found on
// disk.
func Open(dir string, cfg Config, opts ...Option) (*WAL, error) {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case !info.IsDir():
		return nil, fmt.Errorf("%w: %s: expecting a directory", ErrOther, dir)
	}

	w := &WAL{dir: dir, cfg: cfg}
	for _, opt := range opts {
		opt(w)
	}

	lockFile, err := os.OpenFile(filepath.Join(dir, lockFileName), os.O_RDWR|os.O_CREATE, privateFileMode)
	if err != nil {
		return nil, err
	}
	if err := lockFileNonBlocking(lockFile); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("wal: %s: %w", dir, err)
	}
	w.lockFile = lockFile

	cur, err := openCursor(dir)
	if err != nil {
		w.closeLock()
		return nil, err
	}
	w.cur = cur

	readSequence := cur.pos.sequence
	for {
		seg, err := openSegment(dir, readSequence, cfg.EntryPerSegment, false, cfg.CheckCRC32, w.logger)
		if err != nil {
			if os.IsNotExist(err) {
				break
			}
			w.closeSegments()
			w.closeLock()
			return nil, err
		}
		w.segments = append(w.segments, seg)
		readSequence++
	}
	w.nextSequence = readSequence

	if len(w.segments) == 0 {
		w.cur.pos = position{}
	} else if w.segments[0].Len() < w.cur.pos.read {
		w.cur.pos.read = 0
	}

	if w.logger != nil {
		w.logger.Info("opened WAL",
			zap.String("dir", dir),
			zap.Int("segments", len(w.segments)),
			zap.Uint64("cursor_sequence", w.cur.pos.sequence),
			zap.Uint64("cursor_read", w.cur.pos.read))
	}
	if w.metrics != nil {
		w.metrics.segmentsOpen.Set(float64(len(w.segments)))
	}

	return w, nil
}

// Close releases the directory lock and closes every open segment's file
// handle without removing any file. It does not flush or save the cursor;
// callers that want those durability guarantees must arrange them before
// calling Close.
func (w *WAL) Close() error {
	w.closeSegments()
	return w.closeLock()
}

func (w *WAL) closeSegments() {
	for _, seg := range w.segments {
		seg.Close()
	}
}

func (w *WAL) closeLock() error {
	if w.lockFile == nil {
		return nil
	}
	err := w.lockFile.Close()
	w.lockFile = nil
	return err
}

// Write appends every entry in batch, in order, allocating new segments as
// the tail fills.
func (w *WAL) Write(batch [][]byte) error {
	start := time.Now()
	defer func() {
		if w.metrics != nil {
			w.metrics.appendSeconds.Observe(time.Since(start).Seconds())
		}
	}()

	for len(batch) > 0 {
		grant, err := w.tryAllocate(len(batch))
		if err != nil {
			return err
		}
		tail := w.segments[len(w.segments)-1]
		written, err := tail.BatchWrite(batch[:grant])
		if written > 0 {
			batch = batch[written:]
			if w.metrics != nil {
				w.metrics.entriesWritten.Add(float64(written))
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Sync fsyncs the tail segment, the durability barrier callers may invoke
// explicitly instead of waiting for the tail to fill and roll.
func (w *WAL) Sync() error {
	if len(w.segments) == 0 {
		return nil
	}
	return w.segments[len(w.segments)-1].Flush()
}

// tryAllocate returns how many of the next n entries the tail segment can
// currently accept, flushing and rolling to a brand new segment if the
// current tail is full.
func (w *WAL) tryAllocate(n int) (int, error) {
	if len(w.segments) > 0 {
		tail := w.segments[len(w.segments)-1]
		if space := tail.Space(); space > 0 {
			return minInt(int(space), n), nil
		}
		if err := tail.Flush(); err != nil {
			return 0, err
		}
	}

	seg, err := openSegment(w.dir, w.nextSequence, w.cfg.EntryPerSegment, true, w.cfg.CheckCRC32, w.logger)
	if err != nil {
		return 0, err
	}
	w.segments = append(w.segments, seg)
	w.nextSequence++
	if w.metrics != nil {
		w.metrics.segmentsOpen.Set(float64(len(w.segments)))
	}

	return minInt(int(seg.Space()), n), nil
}

// Read returns up to n of the oldest undelivered entries, advancing the
// durable cursor and reclaiming every full segment the read moves past: one
// that was already drained when the call began, or one drained while n
// still had room for more entries. A full segment whose last entry is the
// last one this call delivers stays open until a later Read. Cursor
// persistence is best-effort: its failure does not fail the read, at the
// cost of possible redelivery after a crash.
func (w *WAL) Read(n int) ([][]byte, error) {
	start := time.Now()
	defer func() {
		if w.metrics != nil {
			w.metrics.readSeconds.Observe(time.Since(start).Seconds())
		}
	}()

	if n <= 0 {
		return nil, nil
	}

	out := make([][]byte, 0, n)
	idx := 0
	segStart := w.cur.pos.read
	cursorMoved := false
	finishedCount := 0

	for n > 0 && idx < len(w.segments) {
		seg := w.segments[idx]

		if segStart >= seg.Len() {
			if seg.Space() == 0 {
				finishedCount++
				idx++
				segStart = 0
				continue
			}
			break
		}

		var read int
		var err error
		out, read, err = seg.ReadInto(segStart, uint64(n), out)
		if err != nil {
			return out, err
		}
		segStart += uint64(read)
		n -= read
		if read > 0 {
			w.cur.pos = position{sequence: seg.Sequence(), read: segStart}
			cursorMoved = true
		}

		if n > 0 && seg.Space() == 0 {
			finishedCount++
			idx++
			segStart = 0
		}
	}

	if finishedCount > 0 {
		for i := 0; i < finishedCount; i++ {
			w.segments[i].Destroy()
		}
		w.segments = w.segments[finishedCount:]
		if w.metrics != nil {
			w.metrics.segmentsReclaimed.Add(float64(finishedCount))
			w.metrics.segmentsOpen.Set(float64(len(w.segments)))
		}
		if w.logger != nil {
			w.logger.Info("reclaimed segments", zap.Int("count", finishedCount))
		}
	}

	if cursorMoved {
		if err := w.cur.save(); err != nil && w.logger != nil {
			w.logger.Warn("failed to persist cursor; entries may be redelivered after a crash",
				zap.Error(err))
		}
	}

	if w.metrics != nil {
		w.metrics.entriesRead.Add(float64(len(out)))
	}

	return out, nil
}

// Reclaim drains every entry currently pending delivery and discards them
// with a single Read(Len()), so full segments drained along the way are
// destroyed now instead of waiting on the next consumer-driven Read. The
// segment holding the last pending entry is not destroyed by this call,
// even when it is full. Callers that still need those entries must not
// call this; it
// exists for operators who want an explicit housekeeping hook (see
// cmd/walctl's gc subcommand) decoupled from a real consumer's progress.
func (w *WAL) Reclaim() error {
	_, err := w.Read(w.Len())
	return err
}

// Len returns the number of entries pending consumption: Len() across
// every segment, minus what the cursor already consumed from the segment
// it points into.
func (w *WAL) Len() int {
	var total uint64
	for _, seg := range w.segments {
		if seg.Sequence() == w.cur.pos.sequence {
			total += seg.Len() - w.cur.pos.read
		} else {
			total += seg.Len()
		}
	}
	return int(total)
}

// SegmentInfo is a read-only snapshot of one segment's identity and
// occupancy, used by inspection tooling that must not disturb the cursor.
type SegmentInfo struct {
	Sequence uint64
	Len      uint64
	Space    uint64
}

// Segments returns a snapshot of every currently open segment in order,
// oldest first. It does not read or write the cursor.
func (w *WAL) Segments() []SegmentInfo {
	out := make([]SegmentInfo, len(w.segments))
	for i, seg := range w.segments {
		out[i] = SegmentInfo{Sequence: seg.Sequence(), Len: seg.Len(), Space: seg.Space()}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
