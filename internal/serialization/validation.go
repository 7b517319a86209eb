package serialization

import "fmt"

// Validation limits for security and resource protection.
const (
	MaxRecordCount = 1_000_000 // Maximum number of records in an archive
	MaxRecordSize  = 1 << 40   // 1TiB - maximum size of a single record
)

// validateRecord checks a record header against the archive bounds.
func validateRecord(info RecordInfo, archiveSize int64) error {
	if info.Size > MaxRecordSize {
		return fmt.Errorf("%w: record %d has size %d", ErrRecordTooLarge, info.Key, info.Size)
	}
	//nolint:gosec // G115: Size bounded by MaxRecordSize above
	if info.data > archiveSize || int64(info.Size) > archiveSize-info.data {
		return fmt.Errorf("%w: record %d needs bytes [%d-%d), archive has %d",
			ErrTruncated, info.Key, info.data, info.data+int64(info.Size), archiveSize) //nolint:gosec // G115: bounded above
	}
	return nil
}
