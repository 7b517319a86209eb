package serialization

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// RecordReader provides keyed access to the records of an archive.
//
// Both methods block until the payload has been read. The returned slice is
// owned by the caller.
type RecordReader interface {
	// LastRecord returns the payload of the final record (the metadata record).
	LastRecord() ([]byte, error)

	// RecordWithKey returns the payload of the record with the given key.
	RecordWithKey(key uint64) ([]byte, error)
}

// Reader reads keyed records from an archive.
//
// The record index is scanned once when the reader is created; afterwards
// records can be fetched in any order.
type Reader struct {
	src     io.ReaderAt
	size    int64
	records []RecordInfo
	index   map[uint64]int
	closer  func() error
	mapped  bool
	closed  bool
}

// ReaderOptions configures the behavior of Open.
type ReaderOptions struct {
	UseMmap bool // Memory-map the archive instead of reading through the file
}

// Open opens an archive file with default options.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{})
}

// OpenWithOptions opens an archive file with custom options.
//
// The returned reader owns the file; call Close when done.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, &ArchiveOpenError{Path: path, Err: err}
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close() // Best effort close on error
		return nil, &ArchiveOpenError{Path: path, Err: fmt.Errorf("failed to stat file: %w", err)}
	}
	if stat.IsDir() {
		_ = file.Close()
		return nil, &ArchiveOpenError{Path: path, Err: errors.New("is a directory")}
	}

	if opts.UseMmap && stat.Size() >= FileHeaderSize {
		return newMmapReader(file, stat.Size())
	}

	r, err := newReader(file, stat.Size(), file.Close)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return r, nil
}

// NewReader creates a reader over an existing stream.
//
// The archive starts at the stream's current position. The caller keeps
// ownership of the stream: Close does not close it.
func NewReader(rs io.ReadSeeker) (*Reader, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, scanError(fmt.Errorf("failed to get stream position: %w", err))
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, scanError(fmt.Errorf("failed to seek to end: %w", err))
	}
	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return nil, scanError(fmt.Errorf("failed to restore stream position: %w", err))
	}

	ra, ok := rs.(io.ReaderAt)
	if !ok {
		ra = &seekReaderAt{rs: rs}
	}
	return newReader(io.NewSectionReader(ra, start, end-start), end-start, nil)
}

func newReader(src io.ReaderAt, size int64, closer func() error) (*Reader, error) {
	r := &Reader{
		src:    src,
		size:   size,
		index:  make(map[uint64]int),
		closer: closer,
	}
	if err := r.scan(); err != nil {
		return nil, scanError(err)
	}
	return r, nil
}

// scan reads the file header and builds the record index.
func (r *Reader) scan() error {
	if r.size < FileHeaderSize {
		return fmt.Errorf("%w: %d bytes (file header needs %d)", ErrTruncated, r.size, FileHeaderSize)
	}

	header, err := r.readAt(0, FileHeaderSize)
	if err != nil {
		return fmt.Errorf("failed to read file header: %w", err)
	}
	if string(header[:8]) != MagicBytes {
		return fmt.Errorf("%w: got %q, expected %q", ErrInvalidMagic, header[:8], MagicBytes)
	}
	if version := binary.LittleEndian.Uint64(header[8:16]); version != FormatVersion {
		return fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	pos := int64(FileHeaderSize)
	for pos < r.size {
		if r.size-pos < RecordHeaderSize {
			return fmt.Errorf("%w: record header at offset %d", ErrTruncated, pos)
		}
		if len(r.records) >= MaxRecordCount {
			return fmt.Errorf("%w: max %d", ErrTooManyRecords, MaxRecordCount)
		}

		buf, err := r.readAt(pos, RecordHeaderSize)
		if err != nil {
			return fmt.Errorf("failed to read record header at offset %d: %w", pos, err)
		}
		info := RecordInfo{
			Key:    binary.LittleEndian.Uint64(buf[0:8]),
			Size:   binary.LittleEndian.Uint64(buf[8:16]),
			Offset: pos,
			data:   AlignedOffset(pos),
		}
		if err := validateRecord(info, r.size); err != nil {
			return err
		}
		if _, dup := r.index[info.Key]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateKey, info.Key)
		}

		r.index[info.Key] = len(r.records)
		r.records = append(r.records, info)
		pos = info.data + int64(info.Size) //nolint:gosec // G115: bounded by validateRecord
	}

	if len(r.records) == 0 {
		return ErrNoRecords
	}
	return nil
}

// readAt reads exactly n bytes at offset off.
func (r *Reader) readAt(off int64, n uint64) ([]byte, error) {
	data := make([]byte, n)
	//nolint:gosec // G115: n bounded by validateRecord
	if _, err := io.ReadFull(io.NewSectionReader(r.src, off, int64(n)), data); err != nil {
		return nil, err
	}
	return data, nil
}

// LastRecord returns the payload of the final record.
func (r *Reader) LastRecord() ([]byte, error) {
	last := r.records[len(r.records)-1]
	if r.closed {
		return nil, &ArchiveReadError{Op: "read last record", Err: ErrClosed}
	}
	data, err := r.readAt(last.data, last.Size)
	if err != nil {
		return nil, &ArchiveReadError{Op: "read last record", Err: fmt.Errorf("failed to read payload: %w", err)}
	}
	return data, nil
}

// RecordWithKey returns the payload of the record with the given key.
func (r *Reader) RecordWithKey(key uint64) ([]byte, error) {
	if r.closed {
		return nil, recordError(key, ErrClosed)
	}
	i, ok := r.index[key]
	if !ok {
		return nil, recordError(key, ErrRecordNotFound)
	}
	info := r.records[i]
	data, err := r.readAt(info.data, info.Size)
	if err != nil {
		return nil, recordError(key, fmt.Errorf("failed to read payload: %w", err))
	}
	return data, nil
}

// Records returns the record index in file order. The last entry is the
// metadata record.
func (r *Reader) Records() []RecordInfo {
	out := make([]RecordInfo, len(r.records))
	copy(out, r.records)
	return out
}

// Checksum computes the SHA-256 checksum of a record payload.
func (r *Reader) Checksum(key uint64) ([32]byte, error) {
	if r.closed {
		return [32]byte{}, recordError(key, ErrClosed)
	}
	i, ok := r.index[key]
	if !ok {
		return [32]byte{}, recordError(key, ErrRecordNotFound)
	}
	info := r.records[i]
	//nolint:gosec // G115: Size bounded by validateRecord
	sum, err := ComputeChecksumReader(io.NewSectionReader(r.src, info.data, int64(info.Size)))
	if err != nil {
		return [32]byte{}, recordError(key, err)
	}
	return sum, nil
}

// Size returns the archive size in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// Mapped reports whether the archive is memory-mapped.
func (r *Reader) Mapped() bool {
	return r.mapped
}

// Close releases the resources owned by the reader.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

// seekReaderAt adapts an io.ReadSeeker without ReadAt support.
type seekReaderAt struct {
	rs io.ReadSeeker
}

func (s *seekReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(s.rs, p)
}
