// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor types produced by the importer.
//
// Tensors are strided views over reference-counted Storage. Views loaded from
// the same archive record share one Storage:
//   - Storage: shared byte buffer with Retain/Release
//   - Tensor: dims, strides, element offset and data type over a Storage
//   - Shape, DataType: core type definitions
//
// Example:
//
//	values, err := t.Float32s() // strided gather, float16/float64 converted
package tensor

import (
	"github.com/ZephyrSails/pytorch/internal/tensor"
)

// Tensor is a strided view over a shared Storage.
type Tensor = tensor.Tensor

// Storage is a reference-counted shared byte buffer.
type Storage = tensor.Storage

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Float16 DataType = tensor.Float16
	Int8    DataType = tensor.Int8
	Int16   DataType = tensor.Int16
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Common errors.
var (
	ErrViewOutOfBounds  = tensor.ErrViewOutOfBounds
	ErrStrideRank       = tensor.ErrStrideRank
	ErrNegativeLayout   = tensor.ErrNegativeLayout
	ErrUnknownDataType  = tensor.ErrUnknownDataType
	ErrNotFloatingPoint = tensor.ErrNotFloatingPoint
	ErrReleasedStorage  = tensor.ErrReleasedStorage
)

// NewStorage wraps data in a Storage with one reference.
func NewStorage(data []byte) *Storage {
	return tensor.NewStorage(data)
}

// NewView creates a tensor view over storage and takes a reference on it.
func NewView(storage *Storage, dtype DataType, dims Shape, strides []int64, offset int64, requiresGrad bool) (*Tensor, error) {
	return tensor.NewView(storage, dtype, dims, strides, offset, requiresGrad)
}
