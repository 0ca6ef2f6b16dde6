package wal

// Config controls a WAL's segment sizing and read-time integrity checking.
type Config struct {
	// EntryPerSegment is the fixed descriptor-table capacity of every
	// segment this WAL allocates. Zero selects DefaultEntryLimit.
	EntryPerSegment uint64

	// CheckCRC32 gates CRC-32 verification on read. The checksum is
	// always computed and stored on write regardless of this setting.
	CheckCRC32 bool
}
