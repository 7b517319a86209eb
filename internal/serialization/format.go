package serialization

// Format constants.
const (
	MagicBytes       = "PYTORCH1"
	FormatVersion    = 1  // v1: keyed records, metadata last
	FileHeaderSize   = 16 // magic + version
	RecordHeaderSize = 16 // key + size
	FieldAlignment   = 64 // Record payloads start on 64-byte boundaries
)

// RecordInfo describes one record of an archive.
type RecordInfo struct {
	Key    uint64 // Record key referenced by metadata
	Offset int64  // File offset of the record header
	Size   uint64 // Payload size in bytes
	data   int64  // File offset of the payload
}

// AlignedOffset returns the payload offset for a record header at offset.
func AlignedOffset(offset int64) int64 {
	end := offset + RecordHeaderSize
	padding := (FieldAlignment - (end % FieldAlignment)) % FieldAlignment
	return end + padding
}
