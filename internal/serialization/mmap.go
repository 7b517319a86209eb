package serialization

import (
	"bytes"
	"fmt"
	"os"
)

// newMmapReader memory-maps file and builds a Reader over the mapping.
//
// Record payloads are copied out of the mapping, so buffers returned by the
// reader stay valid after Close unmaps the file.
func newMmapReader(file *os.File, size int64) (*Reader, error) {
	data, err := mmapFile(file, size)
	if err != nil {
		_ = file.Close()
		return nil, &ArchiveOpenError{Path: file.Name(), Err: fmt.Errorf("mmap failed: %w", err)}
	}

	closer := func() error {
		err := munmapFile(data)
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		return err
	}

	r, err := newReader(bytes.NewReader(data), size, closer)
	if err != nil {
		_ = closer()
		return nil, err
	}
	r.mapped = true
	return r, nil
}
