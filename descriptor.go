package wal

import (
	"encoding/binary"
	"fmt"
)

// descriptorSize is the fixed on-disk width of a descriptor record.
const descriptorSize = 22

// descriptorMarker is the two-byte validity marker. Any slot whose first
// two bytes differ from this is "not valid": unused, torn, or corrupted.
var descriptorMarker = [2]byte{0x01, 0xFF}

// descriptor is the 22-byte, big-endian, fixed-size record a segment's
// header table holds one of per entry slot:
//
//	bytes 0-1:   validity marker (0x01 0xFF)
//	bytes 2-9:   payload offset within the segment file (absolute, u64 BE)
//	bytes 10-17: payload length in bytes (u64 BE)
//	bytes 18-21: CRC-32 (IEEE) of the payload (u32 BE)
type descriptor [descriptorSize]byte

// valid reports whether the marker bytes match descriptorMarker.
func (d *descriptor) valid() bool {
	return d[0] == descriptorMarker[0] && d[1] == descriptorMarker[1]
}

func (d *descriptor) setMarker() {
	d[0], d[1] = descriptorMarker[0], descriptorMarker[1]
}

func (d *descriptor) setOffset(offset uint64) {
	binary.BigEndian.PutUint64(d[2:10], offset)
}

func (d *descriptor) offset() uint64 {
	return binary.BigEndian.Uint64(d[2:10])
}

func (d *descriptor) setLength(length uint64) {
	binary.BigEndian.PutUint64(d[10:18], length)
}

func (d *descriptor) length() uint64 {
	return binary.BigEndian.Uint64(d[10:18])
}

func (d *descriptor) setCRC32(crc uint32) {
	binary.BigEndian.PutUint32(d[18:22], crc)
}

func (d *descriptor) crc32() uint32 {
	return binary.BigEndian.Uint32(d[18:22])
}

// bytes returns the full 22-byte on-disk image of d.
func (d *descriptor) bytes() []byte {
	return d[:]
}

// copyFrom overwrites d with the first descriptorSize bytes of src.
func (d *descriptor) copyFrom(src []byte) error {
	if len(src) < descriptorSize {
		return fmt.Errorf("wal: short descriptor buffer: got %d bytes, need %d", len(src), descriptorSize)
	}
	copy(d[:], src[:descriptorSize])
	return nil
}
