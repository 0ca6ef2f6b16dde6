package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursor_MissingFileIsZeroPosition(t *testing.T) {
	dir := t.TempDir()
	c, err := openCursor(dir)
	require.NoError(t, err)
	require.Equal(t, position{}, c.pos)
}

func TestCursor_EmptyFileIsZeroPosition(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, cursorFileName), nil, privateFileMode))

	c, err := openCursor(dir)
	require.NoError(t, err)
	require.Equal(t, position{}, c.pos)
}

func TestCursor_SaveAndReload(t *testing.T) {
	dir := t.TempDir()
	c, err := openCursor(dir)
	require.NoError(t, err)

	c.pos = position{sequence: 7, read: 42}
	require.NoError(t, c.save())

	c2, err := openCursor(dir)
	require.NoError(t, err)
	require.Equal(t, c.pos, c2.pos)
}

func TestCursor_BadMagicIsInvalidData(t *testing.T) {
	dir := t.TempDir()
	buf := make([]byte, cursorSize)
	copy(buf, []byte("not the right magic bytes!!"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, cursorFileName), buf, privateFileMode))

	_, err := openCursor(dir)
	require.ErrorIs(t, err, ErrInvalidData)
}
