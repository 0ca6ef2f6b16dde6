package wal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescriptor_ZeroValueIsInvalid(t *testing.T) {
	var d descriptor
	require.False(t, d.valid())
}

func TestDescriptor_RoundTrip(t *testing.T) {
	var d descriptor
	d.setMarker()
	d.setOffset(1 << 40)
	d.setLength(12345)
	d.setCRC32(0xDEADBEEF)

	require.True(t, d.valid())
	require.Equal(t, uint64(1<<40), d.offset())
	require.Equal(t, uint64(12345), d.length())
	require.Equal(t, uint32(0xDEADBEEF), d.crc32())
	require.Len(t, d.bytes(), descriptorSize)
}

func TestDescriptor_MarkerBytes(t *testing.T) {
	var d descriptor
	d.setMarker()
	require.Equal(t, byte(0x01), d.bytes()[0])
	require.Equal(t, byte(0xFF), d.bytes()[1])
}

func TestDescriptor_CopyFrom(t *testing.T) {
	var src descriptor
	src.setMarker()
	src.setOffset(7)
	src.setLength(8)
	src.setCRC32(9)

	var dst descriptor
	require.NoError(t, dst.copyFrom(src.bytes()))
	require.Equal(t, src, dst)

	var short [10]byte
	require.Error(t, dst.copyFrom(short[:]))
}

func TestDescriptor_InvalidPatternsRejected(t *testing.T) {
	cases := [][2]byte{{0x00, 0x00}, {0x01, 0x00}, {0xFF, 0x01}, {0xFF, 0xFF}}
	for _, marker := range cases {
		var d descriptor
		d[0], d[1] = marker[0], marker[1]
		require.False(t, d.valid(), "marker %v should be invalid", marker)
	}
}
