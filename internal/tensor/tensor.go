package tensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"unsafe"

	"github.com/x448/float16"
)

// Common errors.
var (
	ErrViewOutOfBounds  = errors.New("tensor view extends beyond storage")
	ErrStrideRank       = errors.New("strides and dims have different lengths")
	ErrNegativeLayout   = errors.New("negative offset or stride")
	ErrUnknownDataType  = errors.New("unknown data type")
	ErrNotFloatingPoint = errors.New("tensor is not floating point")
	ErrReleasedStorage  = errors.New("storage has been released")
	errLayoutOverflow   = errors.New("tensor layout overflows int64")
)

// Tensor is a strided view over a shared Storage.
//
// The view holds one reference on its storage. Views created from the same
// Storage alias each other: the bytes are never copied.
type Tensor struct {
	storage      *Storage
	shape        Shape    // Tensor dimensions
	strides      []int64  // Element strides
	offset       int64    // Offset into storage, in elements
	dtype        DataType // Runtime type information
	requiresGrad bool
}

// NewView creates a tensor view over storage and takes a reference on it.
//
// The view is validated against the storage size: every element reachable
// through dims, strides and offset must lie inside the buffer.
func NewView(storage *Storage, dtype DataType, dims Shape, strides []int64, offset int64, requiresGrad bool) (*Tensor, error) {
	if dtype.String() == "unknown" {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDataType, int(dtype))
	}
	if storage.RefCount() <= 0 {
		return nil, ErrReleasedStorage
	}
	if err := dims.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(strides) != len(dims) {
		return nil, fmt.Errorf("%w: %d strides for %d dims", ErrStrideRank, len(strides), len(dims))
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset=%d", ErrNegativeLayout, offset)
	}
	for i, s := range strides {
		if s < 0 {
			return nil, fmt.Errorf("%w: stride[%d]=%d", ErrNegativeLayout, i, s)
		}
	}

	needed, err := requiredBytes(dtype, dims, strides, offset)
	if err != nil {
		return nil, err
	}
	if needed > uint64(storage.Len()) {
		return nil, fmt.Errorf("%w: view needs %d bytes, storage has %d", ErrViewOutOfBounds, needed, storage.Len())
	}

	return &Tensor{
		storage:      storage.Retain(),
		shape:        dims.Clone(),
		strides:      append([]int64(nil), strides...),
		offset:       offset,
		dtype:        dtype,
		requiresGrad: requiresGrad,
	}, nil
}

// requiredBytes returns the storage size needed to back the view.
func requiredBytes(dtype DataType, dims Shape, strides []int64, offset int64) (uint64, error) {
	last := uint64(offset) //nolint:gosec // G115: offset validated non-negative
	for i, d := range dims {
		if d == 0 {
			// Empty view touches no element.
			return 0, nil
		}
		hi, span := bits.Mul64(uint64(d-1), uint64(strides[i])) //nolint:gosec // G115: validated non-negative
		if hi != 0 {
			return 0, errLayoutOverflow
		}
		var carry uint64
		last, carry = bits.Add64(last, span, 0)
		if carry != 0 {
			return 0, errLayoutOverflow
		}
	}
	if last == math.MaxUint64 {
		return 0, errLayoutOverflow
	}
	hi, n := bits.Mul64(last+1, uint64(dtype.Size())) //nolint:gosec // G115: Size is small and positive
	if hi != 0 {
		return 0, errLayoutOverflow
	}
	return n, nil
}

// Storage returns the shared storage backing this view.
func (t *Tensor) Storage() *Storage {
	return t.storage
}

// Shape returns the tensor's dimensions.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Strides returns the tensor's element strides.
func (t *Tensor) Strides() []int64 {
	return t.strides
}

// Offset returns the storage offset in elements.
func (t *Tensor) Offset() int64 {
	return t.offset
}

// DType returns the tensor's data type.
func (t *Tensor) DType() DataType {
	return t.dtype
}

// RequiresGrad reports whether gradient tracking is enabled for this tensor.
func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

// SetRequiresGrad toggles gradient tracking.
func (t *Tensor) SetRequiresGrad(requiresGrad bool) {
	t.requiresGrad = requiresGrad
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int64 {
	return t.shape.NumElements()
}

// ByteSize returns the logical size of the view in bytes.
func (t *Tensor) ByteSize() int64 {
	return t.NumElements() * int64(t.dtype.Size())
}

// IsContiguous reports whether the view has row-major strides.
// Strides of size-1 dimensions are ignored.
func (t *Tensor) IsContiguous() bool {
	expected := int64(1)
	for i := len(t.shape) - 1; i >= 0; i-- {
		if t.shape[i] == 1 {
			continue
		}
		if t.strides[i] != expected {
			return false
		}
		expected *= t.shape[i]
	}
	return true
}

// Data returns the raw bytes of a contiguous view.
// WARNING: Direct access to shared memory. Panics if the view is not contiguous.
func (t *Tensor) Data() []byte {
	if !t.IsContiguous() {
		panic("tensor view is not contiguous")
	}
	start := t.offset * int64(t.dtype.Size())
	return t.storage.Bytes()[start : start+t.ByteSize()]
}

// AsFloat32 interprets a contiguous view as []float32.
// Panics if the tensor's dtype is not Float32.
func (t *Tensor) AsFloat32() []float32 {
	t.mustBe(Float32)
	data := t.Data()
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NewView
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), t.NumElements())
}

// AsFloat64 interprets a contiguous view as []float64.
// Panics if the tensor's dtype is not Float64.
func (t *Tensor) AsFloat64() []float64 {
	t.mustBe(Float64)
	data := t.Data()
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NewView
	return unsafe.Slice((*float64)(unsafe.Pointer(&data[0])), t.NumElements())
}

// AsInt32 interprets a contiguous view as []int32.
// Panics if the tensor's dtype is not Int32.
func (t *Tensor) AsInt32() []int32 {
	t.mustBe(Int32)
	data := t.Data()
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NewView
	return unsafe.Slice((*int32)(unsafe.Pointer(&data[0])), t.NumElements())
}

// AsInt64 interprets a contiguous view as []int64.
// Panics if the tensor's dtype is not Int64.
func (t *Tensor) AsInt64() []int64 {
	t.mustBe(Int64)
	data := t.Data()
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NewView
	return unsafe.Slice((*int64)(unsafe.Pointer(&data[0])), t.NumElements())
}

// AsUint8 interprets a contiguous view as []uint8.
// Panics if the tensor's dtype is not Uint8.
func (t *Tensor) AsUint8() []uint8 {
	t.mustBe(Uint8)
	return t.Data()
}

func (t *Tensor) mustBe(dt DataType) {
	if t.dtype != dt {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", t.dtype, dt))
	}
}

// Float32s gathers the elements of a floating point view into a new slice,
// following strides in row-major order. Float16 and Float64 values are
// converted to float32.
func (t *Tensor) Float32s() ([]float32, error) {
	if !t.dtype.IsFloatingPoint() {
		return nil, fmt.Errorf("%w: %s", ErrNotFloatingPoint, t.dtype)
	}

	data := t.storage.Bytes()
	size := int64(t.dtype.Size())
	out := make([]float32, 0, t.NumElements())
	t.forEachElement(func(elem int64) {
		b := data[elem*size : (elem+1)*size]
		switch t.dtype {
		case Float32:
			out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(b)))
		case Float64:
			out = append(out, float32(math.Float64frombits(binary.LittleEndian.Uint64(b))))
		case Float16:
			out = append(out, float16.Frombits(binary.LittleEndian.Uint16(b)).Float32())
		}
	})
	return out, nil
}

// forEachElement calls fn with the storage element index of every element
// of the view, in row-major order.
func (t *Tensor) forEachElement(fn func(elem int64)) {
	if t.NumElements() == 0 {
		return
	}
	index := make([]int64, len(t.shape))
	for {
		elem := t.offset
		for i, idx := range index {
			elem += idx * t.strides[i]
		}
		fn(elem)

		dim := len(index) - 1
		for ; dim >= 0; dim-- {
			index[dim]++
			if index[dim] < t.shape[dim] {
				break
			}
			index[dim] = 0
		}
		if dim < 0 {
			return
		}
	}
}

// Clone creates another view sharing the same storage (increments refCount).
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		storage:      t.storage.Retain(),
		shape:        t.shape.Clone(),
		strides:      append([]int64(nil), t.strides...),
		offset:       t.offset,
		dtype:        t.dtype,
		requiresGrad: t.requiresGrad,
	}
}

// Release drops this view's reference on its storage.
func (t *Tensor) Release() {
	t.storage.Release()
}

// String returns a short description of the view.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, strides=%v, offset=%d, dtype=%s, requires_grad=%t)",
		[]int64(t.shape), t.strides, t.offset, t.dtype, t.requiresGrad)
}
