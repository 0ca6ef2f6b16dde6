package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegment_CreateAndDestroy(t *testing.T) {
	dir := t.TempDir()
	s, err := openSegment(dir, 1, 0, true, false, nil)
	require.NoError(t, err)

	path := segmentPath(dir, 1)
	require.FileExists(t, path)
	require.Equal(t, "0000000000000001.dat", filepath.Base(path))

	s.Destroy()
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestSegment_OpenWithoutCreateFailsNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := openSegment(dir, 1, 0, false, false, nil)
	require.True(t, os.IsNotExist(err))
}

// TestSegment_AppendAndReadBack implements spec.md scenario 2: 1024
// entries of sizes 1..1024 into one default-capacity segment.
func TestSegment_AppendAndReadBack(t *testing.T) {
	dir := t.TempDir()
	s, err := openSegment(dir, 1, 0, true, false, nil)
	require.NoError(t, err)

	buf := make([]byte, 1024)
	for i := range buf {
		buf[i] = byte(i)
	}

	for i := 0; i < 1024; i++ {
		ok, err := s.Write(buf[:i+1])
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.EqualValues(t, 1024, s.Len())

	var out [][]byte
	out, n, err := s.ReadInto(0, 1025, out)
	require.NoError(t, err)
	require.Equal(t, 1024, n)
	for i, entry := range out {
		require.Len(t, entry, i+1)
		require.Equal(t, buf[:i+1], entry)
	}

	var out2 [][]byte
	out2, n, err = s.ReadInto(255, 100, out2)
	require.NoError(t, err)
	require.Equal(t, 100, n)
	for j, entry := range out2 {
		require.Len(t, entry, j+256)
	}
}

// TestSegment_BoundedCapacity implements spec.md scenario 3.
func TestSegment_BoundedCapacity(t *testing.T) {
	dir := t.TempDir()
	s, err := openSegment(dir, 1, 128, true, false, nil)
	require.NoError(t, err)

	for i := 0; i < 128; i++ {
		ok, err := s.Write([]byte{byte(i)})
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.EqualValues(t, 0, s.Space())

	ok, err := s.Write([]byte{0xFF})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSegment_RecoversAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := openSegment(dir, 1, 16, true, false, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := s.Write([]byte{byte(i)})
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	s2, err := openSegment(dir, 1, 16, false, false, nil)
	require.NoError(t, err)
	require.EqualValues(t, 5, s2.Len())
	require.EqualValues(t, 11, s2.Space())
}

// TestSegment_TornWriteLeavesPriorEntriesIntact implements the crash-safety
// surrogate from spec.md section 8: cutting the file back to the end of
// the first entry's payload and clearing the second entry's descriptor
// slot simulates a torn write.
func TestSegment_TornWriteLeavesPriorEntriesIntact(t *testing.T) {
	dir := t.TempDir()
	s, err := openSegment(dir, 1, 16, true, false, nil)
	require.NoError(t, err)

	_, err = s.Write([]byte("first"))
	require.NoError(t, err)
	committedSize := s.dataWritten

	_, err = s.Write([]byte("second"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Truncate away the second entry's payload and zero its descriptor
	// slot (which lives in the header table, not past the payload),
	// simulating a crash that tore the write.
	f, err := os.OpenFile(segmentPath(dir, 1), os.O_RDWR, privateFileMode)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(committedSize))
	_, err = f.WriteAt(make([]byte, descriptorSize), int64(segmentHeaderSize)+descriptorSize)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s2, err := openSegment(dir, 1, 16, false, false, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, s2.Len())

	var out [][]byte
	out, n, err := s2.ReadInto(0, 16, out)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []byte("first"), out[0])
}

func TestSegment_CRCMismatchDetectedWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	s, err := openSegment(dir, 1, 16, true, false, nil)
	require.NoError(t, err)
	_, err = s.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Flip a bit in the payload on disk.
	f, err := os.OpenFile(segmentPath(dir, 1), os.O_RDWR, privateFileMode)
	require.NoError(t, err)
	payloadOffset := int64(segmentHeaderSize) + 16*descriptorSize
	var b [1]byte
	_, err = f.ReadAt(b[:], payloadOffset)
	require.NoError(t, err)
	b[0] ^= 0xFF
	_, err = f.WriteAt(b[:], payloadOffset)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	sNoCheck, err := openSegment(dir, 1, 16, false, false, nil)
	require.NoError(t, err)
	var out [][]byte
	_, n, err := sNoCheck.ReadInto(0, 1, out)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	sCheck, err := openSegment(dir, 1, 16, false, true, nil)
	require.NoError(t, err)
	_, _, err = sCheck.ReadInto(0, 1, nil)
	require.ErrorIs(t, err, ErrInvalidData)
}
