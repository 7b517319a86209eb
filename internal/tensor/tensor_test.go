package tensor

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func float32Bytes(values ...float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func TestNewView_Basic(t *testing.T) {
	storage := NewStorage(float32Bytes(1, 2, 3, 4, 5, 6))

	view, err := NewView(storage, Float32, Shape{2, 3}, []int64{3, 1}, 0, true)
	require.NoError(t, err)

	assert.Equal(t, Shape{2, 3}, view.Shape())
	assert.Equal(t, []int64{3, 1}, view.Strides())
	assert.Equal(t, int64(0), view.Offset())
	assert.Equal(t, Float32, view.DType())
	assert.True(t, view.RequiresGrad())
	assert.Equal(t, int64(6), view.NumElements())
	assert.Equal(t, int64(24), view.ByteSize())
	assert.True(t, view.IsContiguous())
	assert.Same(t, storage, view.Storage())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, view.AsFloat32())
}

func TestNewView_AliasesStorage(t *testing.T) {
	storage := NewStorage(float32Bytes(1, 2, 3, 4))

	a, err := NewView(storage, Float32, Shape{4}, []int64{1}, 0, false)
	require.NoError(t, err)
	b, err := NewView(storage, Float32, Shape{2}, []int64{1}, 2, false)
	require.NoError(t, err)

	a.AsFloat32()[2] = 42
	assert.Equal(t, float32(42), b.AsFloat32()[0], "write through one view must be visible through the other")
	assert.Equal(t, int32(3), storage.RefCount())
}

func TestNewView_Scalar(t *testing.T) {
	storage := NewStorage(float32Bytes(7, 8))

	view, err := NewView(storage, Float32, Shape{}, nil, 1, false)
	require.NoError(t, err)

	assert.Equal(t, int64(1), view.NumElements())
	assert.Equal(t, []float32{8}, view.AsFloat32())
}

func TestNewView_EmptyTensor(t *testing.T) {
	storage := NewStorage([]byte{})

	view, err := NewView(storage, Float32, Shape{0, 3}, []int64{3, 1}, 0, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), view.NumElements())

	values, err := view.Float32s()
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestNewView_Errors(t *testing.T) {
	tests := []struct {
		name    string
		dtype   DataType
		dims    Shape
		strides []int64
		offset  int64
		wantErr error
	}{
		{"out of bounds", Float32, Shape{2, 3}, []int64{3, 1}, 1, ErrViewOutOfBounds},
		{"strided out of bounds", Float32, Shape{2}, []int64{6}, 0, ErrViewOutOfBounds},
		{"wider dtype out of bounds", Float64, Shape{4}, []int64{1}, 0, ErrViewOutOfBounds},
		{"stride rank mismatch", Float32, Shape{2, 3}, []int64{1}, 0, ErrStrideRank},
		{"negative offset", Float32, Shape{2}, []int64{1}, -1, ErrNegativeLayout},
		{"negative stride", Float32, Shape{2}, []int64{-1}, 0, ErrNegativeLayout},
		{"unknown dtype", DataType(99), Shape{1}, []int64{1}, 0, ErrUnknownDataType},
		{"overflowing layout", Float32, Shape{math.MaxInt64}, []int64{math.MaxInt64}, 0, errLayoutOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewStorage(float32Bytes(1, 2, 3, 4, 5, 6))
			_, err := NewView(storage, tt.dtype, tt.dims, tt.strides, tt.offset, false)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int32(1), storage.RefCount(), "failed view must not retain storage")
		})
	}
}

func TestNewView_NegativeDim(t *testing.T) {
	storage := NewStorage(float32Bytes(1))
	_, err := NewView(storage, Float32, Shape{-1}, []int64{1}, 0, false)
	require.Error(t, err)
}

func TestNewView_ReleasedStorage(t *testing.T) {
	storage := NewStorage(float32Bytes(1))
	storage.Release()

	_, err := NewView(storage, Float32, Shape{1}, []int64{1}, 0, false)
	require.ErrorIs(t, err, ErrReleasedStorage)
}

func TestTensor_Float32sStrided(t *testing.T) {
	// [[1, 2, 3], [4, 5, 6]] viewed transposed as [3, 2].
	storage := NewStorage(float32Bytes(1, 2, 3, 4, 5, 6))

	view, err := NewView(storage, Float32, Shape{3, 2}, []int64{1, 3}, 0, false)
	require.NoError(t, err)
	assert.False(t, view.IsContiguous())

	values, err := view.Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, values)

	assert.Panics(t, func() { view.Data() })
}

func TestTensor_Float32sHalfAndDouble(t *testing.T) {
	half := make([]byte, 6)
	for i, v := range []float32{0.5, -2, 1024} {
		binary.LittleEndian.PutUint16(half[2*i:], float16.Fromfloat32(v).Bits())
	}
	hv, err := NewView(NewStorage(half), Float16, Shape{3}, []int64{1}, 0, false)
	require.NoError(t, err)
	values, err := hv.Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -2, 1024}, values)

	double := make([]byte, 16)
	binary.LittleEndian.PutUint64(double, math.Float64bits(1.5))
	binary.LittleEndian.PutUint64(double[8:], math.Float64bits(-3.25))
	dv, err := NewView(NewStorage(double), Float64, Shape{2}, []int64{1}, 0, false)
	require.NoError(t, err)
	values, err = dv.Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -3.25}, values)
}

func TestTensor_Float32sRejectsIntegers(t *testing.T) {
	view, err := NewView(NewStorage(make([]byte, 8)), Int64, Shape{1}, []int64{1}, 0, false)
	require.NoError(t, err)

	_, err = view.Float32s()
	require.ErrorIs(t, err, ErrNotFloatingPoint)
}

func TestTensor_TypedAccessors(t *testing.T) {
	ints := make([]byte, 16)
	binary.LittleEndian.PutUint64(ints, 3)
	binary.LittleEndian.PutUint64(ints[8:], 9)
	view, err := NewView(NewStorage(ints), Int64, Shape{2}, []int64{1}, 0, false)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 9}, view.AsInt64())
	assert.Panics(t, func() { view.AsFloat32() })

	bytesView, err := NewView(NewStorage([]byte{1, 2, 3}), Uint8, Shape{3}, []int64{1}, 0, false)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 3}, bytesView.AsUint8())
}

func TestTensor_CloneAndRelease(t *testing.T) {
	storage := NewStorage(float32Bytes(1, 2))

	view, err := NewView(storage, Float32, Shape{2}, []int64{1}, 0, false)
	require.NoError(t, err)
	clone := view.Clone()
	assert.Same(t, view.Storage(), clone.Storage())
	assert.Equal(t, int32(3), storage.RefCount())

	storage.Release()
	view.Release()
	assert.True(t, storage.IsUnique())
	assert.NotNil(t, storage.Bytes())

	clone.Release()
	assert.Nil(t, storage.Bytes(), "last release drops the buffer")
}

func TestTensor_SetRequiresGrad(t *testing.T) {
	view, err := NewView(NewStorage(float32Bytes(1)), Float32, Shape{1}, []int64{1}, 0, false)
	require.NoError(t, err)

	view.SetRequiresGrad(true)
	assert.True(t, view.RequiresGrad())
	assert.Contains(t, view.String(), "requires_grad=true")
}

func TestShape(t *testing.T) {
	s := Shape{2, 3, 4}
	assert.Equal(t, int64(24), s.NumElements())
	assert.Equal(t, int64(1), Shape{}.NumElements())
	assert.Equal(t, []int64{12, 4, 1}, s.ComputeStrides())
	assert.True(t, s.Equal(s.Clone()))
	assert.False(t, s.Equal(Shape{2, 3}))
	assert.NoError(t, Shape{0, 2}.Validate())
	assert.Error(t, Shape{2, -1}.Validate())
}

func TestDataType(t *testing.T) {
	tests := []struct {
		dt   DataType
		size int
		name string
	}{
		{Float32, 4, "float32"},
		{Float64, 8, "float64"},
		{Float16, 2, "float16"},
		{Int8, 1, "int8"},
		{Int16, 2, "int16"},
		{Int32, 4, "int32"},
		{Int64, 8, "int64"},
		{Uint8, 1, "uint8"},
		{Bool, 1, "bool"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.size, tt.dt.Size(), tt.name)
		assert.Equal(t, tt.name, tt.dt.String())
	}
	assert.Equal(t, "unknown", DataType(99).String())
	assert.Panics(t, func() { DataType(99).Size() })
	assert.True(t, Float16.IsFloatingPoint())
	assert.False(t, Int64.IsFloatingPoint())
}
