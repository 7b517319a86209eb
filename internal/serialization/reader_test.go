package serialization_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZephyrSails/pytorch/internal/serialization"
	"github.com/ZephyrSails/pytorch/internal/serialization/archivetest"
)

// createTestArchive returns an archive with two storage records and a metadata record.
func createTestArchive(t *testing.T) []byte {
	t.Helper()

	w := archivetest.NewWriter().
		WriteRecord(7, []byte{1, 2, 3, 4}).
		WriteRecord(9, bytes.Repeat([]byte{0xAB}, 100))
	_, err := w.WriteMetadata(10, `{"main_module":{}}`)
	require.NoError(t, err)
	return w.Bytes()
}

func writeTestFile(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "model.pt")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestNewReader(t *testing.T) {
	reader, err := serialization.NewReader(bytes.NewReader(createTestArchive(t)))
	require.NoError(t, err)
	defer reader.Close()

	meta, err := reader.LastRecord()
	require.NoError(t, err)
	assert.Equal(t, `{"main_module":{}}`, string(meta))

	data, err := reader.RecordWithKey(7)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	data, err = reader.RecordWithKey(9)
	require.NoError(t, err)
	assert.Len(t, data, 100)

	// Random access: fetch an earlier record again after a later one.
	data, err = reader.RecordWithKey(7)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestReader_Records(t *testing.T) {
	reader, err := serialization.NewReader(bytes.NewReader(createTestArchive(t)))
	require.NoError(t, err)

	records := reader.Records()
	require.Len(t, records, 3)

	keys := []uint64{records[0].Key, records[1].Key, records[2].Key}
	assert.Equal(t, []uint64{7, 9, 10}, keys)
	assert.Equal(t, uint64(4), records[0].Size)
	assert.Equal(t, int64(serialization.FileHeaderSize), records[0].Offset)
	for _, rec := range records {
		assert.Zero(t, serialization.AlignedOffset(rec.Offset)%serialization.FieldAlignment)
	}
}

func TestReader_Checksum(t *testing.T) {
	reader, err := serialization.NewReader(bytes.NewReader(createTestArchive(t)))
	require.NoError(t, err)

	sum, err := reader.Checksum(7)
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256([]byte{1, 2, 3, 4}), sum)
	assert.Equal(t, serialization.ComputeChecksum([]byte{1, 2, 3, 4}), sum)

	_, err = reader.Checksum(42)
	assert.ErrorIs(t, err, serialization.ErrRecordNotFound)
}

func TestNewReader_StartsAtStreamPosition(t *testing.T) {
	prefix := []byte("some leading bytes")
	stream := bytes.NewReader(append(append([]byte{}, prefix...), createTestArchive(t)...))
	_, err := stream.Seek(int64(len(prefix)), io.SeekStart)
	require.NoError(t, err)

	reader, err := serialization.NewReader(stream)
	require.NoError(t, err)

	data, err := reader.RecordWithKey(7)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

// seekOnly hides the io.ReaderAt implementation of the wrapped stream.
type seekOnly struct {
	io.ReadSeeker
}

func TestNewReader_SeekOnlyStream(t *testing.T) {
	reader, err := serialization.NewReader(seekOnly{bytes.NewReader(createTestArchive(t))})
	require.NoError(t, err)

	data, err := reader.RecordWithKey(9)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xAB}, 100), data)

	meta, err := reader.LastRecord()
	require.NoError(t, err)
	assert.Equal(t, `{"main_module":{}}`, string(meta))
}

func TestReader_MissingRecord(t *testing.T) {
	reader, err := serialization.NewReader(bytes.NewReader(createTestArchive(t)))
	require.NoError(t, err)

	_, err = reader.RecordWithKey(42)
	require.ErrorIs(t, err, serialization.ErrRecordNotFound)

	var readErr *serialization.ArchiveReadError
	require.True(t, errors.As(err, &readErr))
	assert.True(t, readErr.HasKey)
	assert.Equal(t, uint64(42), readErr.Key)
	assert.Contains(t, err.Error(), "42")
}

func TestNewReader_Corrupt(t *testing.T) {
	valid := createTestArchive(t)

	badVersion := append([]byte{}, valid...)
	binary.LittleEndian.PutUint64(badVersion[8:16], 2)

	duplicate := archivetest.NewWriter().
		WriteRecord(1, []byte{1}).
		WriteRecord(1, []byte{2}).
		Bytes()

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, serialization.ErrTruncated},
		{"short header", []byte("PYTORCH1"), serialization.ErrTruncated},
		{"bad magic", append([]byte("NOTTORCH"), valid[8:]...), serialization.ErrInvalidMagic},
		{"bad version", badVersion, serialization.ErrUnsupportedVersion},
		{"no records", valid[:serialization.FileHeaderSize], serialization.ErrNoRecords},
		{"truncated record header", valid[:serialization.FileHeaderSize+8], serialization.ErrTruncated},
		{"truncated payload", valid[:len(valid)-1], serialization.ErrTruncated},
		{"duplicate key", duplicate, serialization.ErrDuplicateKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := serialization.NewReader(bytes.NewReader(tt.data))
			require.ErrorIs(t, err, tt.wantErr)

			var readErr *serialization.ArchiveReadError
			assert.True(t, errors.As(err, &readErr), "corruption must surface as ArchiveReadError")
		})
	}
}

func TestNewReader_OversizedRecord(t *testing.T) {
	data := archivetest.NewWriter().WriteRecord(1, []byte{1}).Bytes()
	binary.LittleEndian.PutUint64(data[serialization.FileHeaderSize+8:], serialization.MaxRecordSize+1)

	_, err := serialization.NewReader(bytes.NewReader(data))
	require.ErrorIs(t, err, serialization.ErrRecordTooLarge)
}

func TestOpen(t *testing.T) {
	path := writeTestFile(t, createTestArchive(t))

	reader, err := serialization.Open(path)
	require.NoError(t, err)
	assert.False(t, reader.Mapped())
	assert.Equal(t, int64(len(createTestArchive(t))), reader.Size())

	data, err := reader.RecordWithKey(7)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	require.NoError(t, reader.Close())
	require.NoError(t, reader.Close(), "Close is idempotent")

	_, err = reader.RecordWithKey(7)
	assert.ErrorIs(t, err, serialization.ErrClosed)
	_, err = reader.LastRecord()
	assert.ErrorIs(t, err, serialization.ErrClosed)
}

func TestOpenWithOptions_Mmap(t *testing.T) {
	path := writeTestFile(t, createTestArchive(t))

	reader, err := serialization.OpenWithOptions(path, serialization.ReaderOptions{UseMmap: true})
	require.NoError(t, err)
	assert.True(t, reader.Mapped())

	data, err := reader.RecordWithKey(9)
	require.NoError(t, err)
	meta, err := reader.LastRecord()
	require.NoError(t, err)

	require.NoError(t, reader.Close())

	// Payloads are copies and stay valid after unmapping.
	assert.Equal(t, bytes.Repeat([]byte{0xAB}, 100), data)
	assert.Equal(t, `{"main_module":{}}`, string(meta))
}

func TestOpen_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.pt")
		_, err := serialization.Open(path)

		var openErr *serialization.ArchiveOpenError
		require.True(t, errors.As(err, &openErr))
		assert.Equal(t, path, openErr.Path)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "could not open file")
	})

	t.Run("directory", func(t *testing.T) {
		_, err := serialization.Open(t.TempDir())

		var openErr *serialization.ArchiveOpenError
		require.True(t, errors.As(err, &openErr))
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := writeTestFile(t, []byte("NOTTORCH\x01\x00\x00\x00\x00\x00\x00\x00"))
		_, err := serialization.OpenWithOptions(path, serialization.ReaderOptions{UseMmap: true})
		require.ErrorIs(t, err, serialization.ErrInvalidMagic)
	})
}
