package serialization

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeArchiveFile(t *testing.T, payload []byte) string {
	t.Helper()

	data := []byte(MagicBytes)
	data = binary.LittleEndian.AppendUint64(data, FormatVersion)
	data = binary.LittleEndian.AppendUint64(data, 5)
	data = binary.LittleEndian.AppendUint64(data, uint64(len(payload)))
	data = append(data, make([]byte, AlignedOffset(FileHeaderSize)-FileHeaderSize-RecordHeaderSize)...)
	data = append(data, payload...)

	path := filepath.Join(t.TempDir(), "archive.pt")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write archive: %v", err)
	}
	return path
}

// TestMmapReaderBasic verifies reading through a memory mapping.
func TestMmapReaderBasic(t *testing.T) {
	path := writeArchiveFile(t, []byte("mapped payload"))

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}
	info, err := file.Stat()
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}

	r, err := newMmapReader(file, info.Size())
	if err != nil {
		t.Fatalf("newMmapReader failed: %v", err)
	}
	if !r.Mapped() {
		t.Error("Expected mapped reader")
	}

	data, err := r.RecordWithKey(5)
	if err != nil {
		t.Fatalf("RecordWithKey failed: %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if string(data) != "mapped payload" {
		t.Errorf("Expected %q after unmap, got %q", "mapped payload", data)
	}
}

// TestMmapReaderInvalidFile verifies the mapping is released on scan errors.
func TestMmapReaderInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pt")
	if err := os.WriteFile(path, []byte("not an archive at all"), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	_, err := OpenWithOptions(path, ReaderOptions{UseMmap: true})
	if err == nil {
		t.Fatal("Expected error for invalid archive")
	}
}

// TestMmapReaderSmallFile verifies files shorter than a header are rejected.
func TestMmapReaderSmallFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.pt")
	if err := os.WriteFile(path, []byte("PY"), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	r, err := OpenWithOptions(path, ReaderOptions{UseMmap: true})
	if err == nil {
		t.Fatal("Expected error for truncated archive")
	}
	if r != nil {
		t.Error("Expected nil reader on error")
	}
}
