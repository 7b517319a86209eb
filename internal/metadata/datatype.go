package metadata

import (
	"fmt"

	"github.com/ZephyrSails/pytorch/internal/tensor"
)

// DataType is the element type enum used by tensor descriptors.
// Values follow the caffe2 TensorProto.DataType numbering.
type DataType int32

// Known data types.
const (
	Undefined DataType = 0
	Float     DataType = 1
	Int32     DataType = 2
	Byte      DataType = 3
	String    DataType = 4
	Bool      DataType = 5
	Uint8     DataType = 6
	Int8      DataType = 7
	Uint16    DataType = 8
	Int16     DataType = 9
	Int64     DataType = 10
	Float16   DataType = 12
	Double    DataType = 13
)

var dataTypeNames = map[DataType]string{
	Undefined: "UNDEFINED",
	Float:     "FLOAT",
	Int32:     "INT32",
	Byte:      "BYTE",
	String:    "STRING",
	Bool:      "BOOL",
	Uint8:     "UINT8",
	Int8:      "INT8",
	Uint16:    "UINT16",
	Int16:     "INT16",
	Int64:     "INT64",
	Float16:   "FLOAT16",
	Double:    "DOUBLE",
}

var dataTypeValues = func() map[string]DataType {
	m := make(map[string]DataType, len(dataTypeNames))
	for dt, name := range dataTypeNames {
		m[name] = dt
	}
	return m
}()

var tensorTypes = map[DataType]tensor.DataType{
	Float:   tensor.Float32,
	Double:  tensor.Float64,
	Float16: tensor.Float16,
	Int8:    tensor.Int8,
	Int16:   tensor.Int16,
	Int32:   tensor.Int32,
	Int64:   tensor.Int64,
	Byte:    tensor.Uint8,
	Uint8:   tensor.Uint8,
	Bool:    tensor.Bool,
}

// String returns the enum name.
func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int32(d))
}

// TensorType resolves the enum to a tensor element type.
// It returns false for types without a tensor representation.
func (d DataType) TensorType() (tensor.DataType, bool) {
	dt, ok := tensorTypes[d]
	return dt, ok
}

// ParseDataType resolves an enum name.
func ParseDataType(name string) (DataType, bool) {
	dt, ok := dataTypeValues[name]
	return dt, ok
}
