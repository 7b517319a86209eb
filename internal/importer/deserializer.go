package importer

import (
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"

	"github.com/ZephyrSails/pytorch/internal/metadata"
	"github.com/ZephyrSails/pytorch/internal/metrics"
	"github.com/ZephyrSails/pytorch/internal/nn"
	"github.com/ZephyrSails/pytorch/internal/serialization"
)

// RootModuleName is the name of the root module created by Load.
const RootModuleName = "__main__"

// Options configures a load.
type Options struct {
	// CodeLoader receives each module's code arena. Defaults to RetainCode.
	CodeLoader CodeLoader

	// Logger receives load summaries at V(1) and per-module traces at V(2).
	// The zero value discards.
	Logger logr.Logger

	// Metrics is updated during the load when non-nil.
	Metrics *metrics.Metrics

	// UseMmap memory-maps archives opened by path.
	UseMmap bool
}

// Deserializer loads one archive into a module tree.
type Deserializer struct {
	reader  serialization.RecordReader
	loader  CodeLoader
	log     logr.Logger
	metrics *metrics.Metrics
}

// NewDeserializer creates a deserializer reading records from r.
func NewDeserializer(r serialization.RecordReader, opts Options) *Deserializer {
	loader := opts.CodeLoader
	if loader == nil {
		loader = RetainCode
	}
	return &Deserializer{
		reader:  &countingReader{RecordReader: r, metrics: opts.Metrics},
		loader:  loader,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
}

// Deserialize populates the tree reachable through factory.
//
// Descriptor errors (bad tensor ids, missing or mis-sized code arenas) are
// detected before the factory is first called. Errors from the factory or
// the modules themselves abort the load; modules handed out before such a
// failure may be partially populated and should be discarded.
func (d *Deserializer) Deserialize(factory ModuleFactory) (err error) {
	start := time.Now()
	defer func() { d.metrics.ObserveLoad(start, err) }()

	data, err := d.reader.LastRecord()
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	model, err := metadata.Transcode(data)
	if err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}

	cache := newStorageCache(d.reader, d.metrics)
	defer cache.release()

	tensors, err := cache.loadTensorTable(model.Tensors)
	if err != nil {
		return err
	}

	b := &builder{
		reader:  d.reader,
		factory: factory,
		loader:  d.loader,
		tensors: tensors,
		log:     d.log,
		arenas:  make(map[uint64][]byte),
	}
	if err := b.check(model.MainModule, nil); err != nil {
		return err
	}
	if err := b.build(model.MainModule, nil); err != nil {
		return err
	}

	d.log.V(1).Info("deserialized archive",
		"producer", model.ProducerName,
		"modules", b.modules,
		"tensors", len(tensors),
		"storages", cache.len(),
		"storageBytes", cache.bytes,
		"elapsed", time.Since(start))
	return nil
}

// countingReader reports fetched records to metrics.
type countingReader struct {
	serialization.RecordReader
	metrics *metrics.Metrics
}

func (r *countingReader) LastRecord() ([]byte, error) {
	data, err := r.RecordReader.LastRecord()
	if err == nil {
		r.metrics.ObserveRecord(len(data))
	}
	return data, err
}

func (r *countingReader) RecordWithKey(key uint64) ([]byte, error) {
	data, err := r.RecordReader.RecordWithKey(key)
	if err == nil {
		r.metrics.ObserveRecord(len(data))
	}
	return data, err
}

// ImportModule loads the archive at path into the tree behind factory.
func ImportModule(factory ModuleFactory, path string, opts Options) error {
	reader, err := serialization.OpenWithOptions(path, serialization.ReaderOptions{UseMmap: opts.UseMmap})
	if err != nil {
		return err
	}
	defer reader.Close()

	return NewDeserializer(reader, opts).Deserialize(factory)
}

// ImportModuleFrom loads the archive starting at the current position of r
// into the tree behind factory. The caller keeps ownership of r.
func ImportModuleFrom(factory ModuleFactory, r io.ReadSeeker, opts Options) error {
	reader, err := serialization.NewReader(r)
	if err != nil {
		return err
	}
	defer reader.Close()

	return NewDeserializer(reader, opts).Deserialize(factory)
}

// Load loads the archive at path into a fresh module tree.
func Load(path string, opts Options) (*nn.Module, error) {
	factory := NewTreeFactory(nn.NewModule(RootModuleName))
	if err := ImportModule(factory, path, opts); err != nil {
		return nil, err
	}
	return factory.Root(), nil
}

// LoadFrom loads the archive starting at the current position of r into a
// fresh module tree. The caller keeps ownership of r.
func LoadFrom(r io.ReadSeeker, opts Options) (*nn.Module, error) {
	factory := NewTreeFactory(nn.NewModule(RootModuleName))
	if err := ImportModuleFrom(factory, r, opts); err != nil {
		return nil, err
	}
	return factory.Root(), nil
}
