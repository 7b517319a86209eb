package importer

import (
	"fmt"

	"github.com/ZephyrSails/pytorch/internal/metadata"
	"github.com/ZephyrSails/pytorch/internal/metrics"
	"github.com/ZephyrSails/pytorch/internal/serialization"
	"github.com/ZephyrSails/pytorch/internal/tensor"
)

// storageCache maps record keys to the Storage materialized from them so
// every tensor over one key aliases the same buffer.
//
// The cache owns one reference on each Storage until release is called.
type storageCache struct {
	reader   serialization.RecordReader
	metrics  *metrics.Metrics
	storages map[uint64]*tensor.Storage
	bytes    uint64
}

func newStorageCache(reader serialization.RecordReader, m *metrics.Metrics) *storageCache {
	return &storageCache{
		reader:   reader,
		metrics:  m,
		storages: make(map[uint64]*tensor.Storage),
	}
}

// resolve returns the Storage for ref.Key, fetching the record on first use.
// A record whose length differs from ref.Size is rejected.
func (c *storageCache) resolve(ref metadata.RecordRef) (*tensor.Storage, error) {
	if s, ok := c.storages[ref.Key]; ok {
		c.metrics.ObserveStorage(true)
		if uint64(s.Len()) != ref.Size {
			return nil, &StorageSizeMismatchError{Key: ref.Key, Expected: ref.Size, Actual: uint64(s.Len())}
		}
		return s, nil
	}
	c.metrics.ObserveStorage(false)

	data, err := c.reader.RecordWithKey(ref.Key)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != ref.Size {
		return nil, &StorageSizeMismatchError{Key: ref.Key, Expected: ref.Size, Actual: uint64(len(data))}
	}

	s := tensor.NewStorage(data)
	c.storages[ref.Key] = s
	c.bytes += ref.Size
	return s, nil
}

// len returns the number of distinct storages.
func (c *storageCache) len() int {
	return len(c.storages)
}

// release drops the cache's references. Storages stay alive while a tensor
// view holds them.
func (c *storageCache) release() {
	for key, s := range c.storages {
		s.Release()
		delete(c.storages, key)
	}
}

// materialize creates the tensor view described by def.
func (c *storageCache) materialize(def metadata.TensorDef) (*tensor.Tensor, error) {
	dtype, ok := def.DataType.TensorType()
	if !ok {
		return nil, fmt.Errorf("%w: %s", tensor.ErrUnknownDataType, def.DataType)
	}

	storage, err := c.resolve(def.Data)
	if err != nil {
		return nil, err
	}

	return tensor.NewView(storage, dtype, tensor.Shape(def.Dims), def.Strides, def.Offset, def.RequiresGrad)
}

// loadTensorTable materializes defs in order. The index of a tensor in the
// result is its tensor id.
func (c *storageCache) loadTensorTable(defs []metadata.TensorDef) ([]*tensor.Tensor, error) {
	table := make([]*tensor.Tensor, 0, len(defs))
	for i, def := range defs {
		t, err := c.materialize(def)
		if err != nil {
			for _, done := range table {
				done.Release()
			}
			return nil, fmt.Errorf("failed to materialize tensor %d: %w", i, err)
		}
		table = append(table, t)
	}
	return table, nil
}
