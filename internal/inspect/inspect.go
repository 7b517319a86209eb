// Package inspect renders a loaded module tree as a YAML report.
package inspect

import (
	"encoding/hex"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ZephyrSails/pytorch/internal/nn"
	"github.com/ZephyrSails/pytorch/internal/serialization"
	"github.com/ZephyrSails/pytorch/internal/tensor"
)

// Report summarizes an archive and the tree loaded from it.
type Report struct {
	Path         string          `yaml:"path,omitempty"`
	Modules      int             `yaml:"modules"`
	Tensors      int             `yaml:"tensors"`
	Storages     int             `yaml:"storages"`
	StorageBytes int64           `yaml:"storageBytes"`
	Records      []RecordSummary `yaml:"records,omitempty"`
	Root         ModuleSummary   `yaml:"root"`
}

// ModuleSummary describes one module and its descendants.
type ModuleSummary struct {
	Name       string          `yaml:"name"`
	Optimized  bool            `yaml:"optimized,omitempty"`
	CodeBytes  int             `yaml:"codeBytes"`
	Code       string          `yaml:"code,omitempty"`
	Parameters []TensorSummary `yaml:"parameters,omitempty"`
	Buffers    []TensorSummary `yaml:"buffers,omitempty"`
	Submodules []ModuleSummary `yaml:"submodules,omitempty"`
}

// TensorSummary describes a parameter or buffer.
type TensorSummary struct {
	Name         string  `yaml:"name"`
	DType        string  `yaml:"dtype"`
	Shape        []int64 `yaml:"shape,flow"`
	Strides      []int64 `yaml:"strides,flow"`
	Offset       int64   `yaml:"offset,omitempty"`
	RequiresGrad bool    `yaml:"requiresGrad,omitempty"`
	// Storage identifies the shared buffer; aliasing tensors have equal ids.
	Storage string `yaml:"storage"`
}

// RecordSummary describes one archive record.
type RecordSummary struct {
	Key    uint64 `yaml:"key"`
	Offset int64  `yaml:"offset"`
	Size   uint64 `yaml:"size"`
	SHA256 string `yaml:"sha256"`
}

// Options controls what Summarize includes.
type Options struct {
	IncludeCode bool // Embed code arenas as text
}

// Summarize walks the tree rooted at root.
func Summarize(root *nn.Module, opts Options) *Report {
	s := &summarizer{opts: opts, storages: make(map[*tensor.Storage]string)}
	report := &Report{Root: s.module(root)}
	report.Modules = root.NumModules()
	report.Tensors = s.tensors
	report.Storages = len(s.storages)
	report.StorageBytes = s.bytes
	return report
}

type summarizer struct {
	opts     Options
	storages map[*tensor.Storage]string
	tensors  int
	bytes    int64
}

func (s *summarizer) module(m *nn.Module) ModuleSummary {
	out := ModuleSummary{
		Name:      m.Name(),
		Optimized: m.Optimized(),
		CodeBytes: len(m.Code()),
	}
	if s.opts.IncludeCode {
		out.Code = string(m.Code())
	}
	for _, p := range m.Parameters() {
		out.Parameters = append(out.Parameters, s.tensor(p))
	}
	for _, p := range m.Buffers() {
		out.Buffers = append(out.Buffers, s.tensor(p))
	}
	for _, child := range m.Modules() {
		out.Submodules = append(out.Submodules, s.module(child))
	}
	return out
}

func (s *summarizer) tensor(p *nn.Parameter) TensorSummary {
	t := p.Tensor()
	s.tensors++

	id, ok := s.storages[t.Storage()]
	if !ok {
		id = fmt.Sprintf("s%d", len(s.storages))
		s.storages[t.Storage()] = id
		s.bytes += int64(t.Storage().Len())
	}

	return TensorSummary{
		Name:         p.Name(),
		DType:        t.DType().String(),
		Shape:        append([]int64{}, t.Shape()...),
		Strides:      append([]int64{}, t.Strides()...),
		Offset:       t.Offset(),
		RequiresGrad: t.RequiresGrad(),
		Storage:      id,
	}
}

// AddRecords appends the record index of reader with payload checksums.
func (r *Report) AddRecords(reader *serialization.Reader) error {
	for _, rec := range reader.Records() {
		sum, err := reader.Checksum(rec.Key)
		if err != nil {
			return fmt.Errorf("failed to checksum record %d: %w", rec.Key, err)
		}
		r.Records = append(r.Records, RecordSummary{
			Key:    rec.Key,
			Offset: rec.Offset,
			Size:   rec.Size,
			SHA256: hex.EncodeToString(sum[:]),
		})
	}
	return nil
}

// Write encodes the report as YAML.
func Write(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}
