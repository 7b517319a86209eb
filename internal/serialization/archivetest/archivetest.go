// Package archivetest builds script module archives for tests.
//
// Writing archives is not part of the importer; this package only exists so
// tests can produce well-formed (and deliberately malformed) inputs.
package archivetest

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/ZephyrSails/pytorch/internal/serialization"
)

// Ref mirrors the metadata record reference.
type Ref struct {
	Key  uint64 `json:"key,string"`
	Size uint64 `json:"size"`
}

// Parameter mirrors the metadata parameter descriptor.
type Parameter struct {
	Name     string `json:"name"`
	TensorID int64  `json:"tensor_id"`
	IsBuffer bool   `json:"is_buffer,omitempty"`
}

// Module mirrors the metadata module descriptor.
type Module struct {
	Name       string      `json:"name"`
	Optimize   bool        `json:"optimize,omitempty"`
	Submodules []Module    `json:"submodules,omitempty"`
	Parameters []Parameter `json:"parameters,omitempty"`
	Arena      Ref         `json:"torchscript_arena"`
}

// Tensor mirrors the metadata tensor descriptor.
type Tensor struct {
	Dims         []int64 `json:"dims"`
	Strides      []int64 `json:"strides"`
	Offset       int64   `json:"offset,omitempty"`
	DataType     string  `json:"data_type"`
	RequiresGrad bool    `json:"requires_grad,omitempty"`
	Data         Ref     `json:"data"`
}

// Model mirrors the metadata document.
type Model struct {
	ProtoVersion    int64    `json:"proto_version,omitempty"`
	ProducerName    string   `json:"producer_name,omitempty"`
	ProducerVersion string   `json:"producer_version,omitempty"`
	MainModule      Module   `json:"main_module"`
	Tensors         []Tensor `json:"tensors"`
}

// Contiguous returns a row-major tensor descriptor over the record key.
func Contiguous(dataType string, key, size uint64, dims ...int64) Tensor {
	strides := make([]int64, len(dims))
	stride := int64(1)
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= dims[i]
	}
	return Tensor{
		Dims:     append([]int64{}, dims...),
		Strides:  strides,
		DataType: dataType,
		Data:     Ref{Key: key, Size: size},
	}
}

// Writer assembles an archive in memory.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates a writer and emits the file header.
func NewWriter() *Writer {
	w := &Writer{}
	w.buf.WriteString(serialization.MagicBytes)
	_ = binary.Write(&w.buf, binary.LittleEndian, uint64(serialization.FormatVersion))
	return w
}

// WriteRecord appends a keyed record.
func (w *Writer) WriteRecord(key uint64, data []byte) *Writer {
	offset := int64(w.buf.Len())
	_ = binary.Write(&w.buf, binary.LittleEndian, key)
	_ = binary.Write(&w.buf, binary.LittleEndian, uint64(len(data)))

	padding := serialization.AlignedOffset(offset) - offset - serialization.RecordHeaderSize
	w.buf.Write(make([]byte, padding))
	w.buf.Write(data)
	return w
}

// WriteMetadata appends the metadata record. meta is written verbatim when it
// is a []byte or string, otherwise it is marshaled to JSON.
func (w *Writer) WriteMetadata(key uint64, meta any) (*Writer, error) {
	var data []byte
	switch m := meta.(type) {
	case []byte:
		data = m
	case string:
		data = []byte(m)
	default:
		var err error
		data, err = json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}
	return w.WriteRecord(key, data), nil
}

// Bytes returns the archive contents.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// WriteFile writes the archive to path.
func (w *Writer) WriteFile(path string) error {
	return os.WriteFile(path, w.buf.Bytes(), 0o600)
}

// Build writes storages in key order followed by the metadata document.
func Build(storages map[uint64][]byte, model Model) ([]byte, error) {
	keys := make([]uint64, 0, len(storages))
	for k := range storages {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	w := NewWriter()
	maxKey := uint64(0)
	for _, k := range keys {
		w.WriteRecord(k, storages[k])
		if k >= maxKey {
			maxKey = k + 1
		}
	}
	if _, err := w.WriteMetadata(maxKey, model); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
