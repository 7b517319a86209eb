package metadata

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Wire types mirror the JSON document. Pointer fields distinguish an absent
// (or null) field from its zero value so required fields can be enforced.

type wireRef struct {
	Key  *jsonUint64 `json:"key"`
	Size *jsonUint64 `json:"size"`
}

type wireParameter struct {
	Name     *string    `json:"name"`
	TensorID *jsonInt64 `json:"tensor_id"`
	IsBuffer *bool      `json:"is_buffer"`
}

type wireTensor struct {
	Dims         *[]jsonInt64  `json:"dims"`
	Strides      *[]jsonInt64  `json:"strides"`
	Offset       *jsonInt64    `json:"offset"`
	DataType     *jsonDataType `json:"data_type"`
	RequiresGrad *bool         `json:"requires_grad"`
	Data         *wireRef      `json:"data"`
}

type wireModule struct {
	Name             *string          `json:"name"`
	Optimize         *bool            `json:"optimize"`
	Submodules       []*wireModule    `json:"submodules"`
	Parameters       []*wireParameter `json:"parameters"`
	TorchscriptArena *wireRef         `json:"torchscript_arena"`
}

type wireModel struct {
	ProtoVersion    *jsonInt64    `json:"proto_version"`
	ProducerName    *string       `json:"producer_name"`
	ProducerVersion *string       `json:"producer_version"`
	MainModule      *wireModule   `json:"main_module"`
	Tensors         []*wireTensor `json:"tensors"`
}

// valueError reports a JSON value that a scalar type refused.
type valueError struct {
	kind  string
	value string
}

func (e *valueError) Error() string {
	return fmt.Sprintf("invalid %s value %s", e.kind, e.value)
}

// integerLiteral returns the digits of a JSON integer, which may be written
// as a number or as a decimal string.
func integerLiteral(kind string, b []byte) (string, error) {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", &valueError{kind: kind, value: string(b)}
		}
		return s, nil
	}
	return string(b), nil
}

// jsonInt64 accepts a JSON number or decimal string holding an int64.
type jsonInt64 int64

func (v *jsonInt64) UnmarshalJSON(b []byte) error {
	s, err := integerLiteral("int64", b)
	if err != nil {
		return err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return &valueError{kind: "int64", value: string(b)}
	}
	*v = jsonInt64(n)
	return nil
}

// jsonUint64 accepts a JSON number or decimal string holding a uint64.
type jsonUint64 uint64

func (v *jsonUint64) UnmarshalJSON(b []byte) error {
	s, err := integerLiteral("uint64", b)
	if err != nil {
		return err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return &valueError{kind: "uint64", value: string(b)}
	}
	*v = jsonUint64(n)
	return nil
}

// jsonDataType accepts an enum name ("FLOAT") or its number (1).
type jsonDataType DataType

func (v *jsonDataType) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return &valueError{kind: "data_type", value: string(b)}
		}
		dt, ok := ParseDataType(name)
		if !ok {
			return &valueError{kind: "data_type", value: string(b)}
		}
		*v = jsonDataType(dt)
		return nil
	}

	n, err := strconv.ParseInt(string(b), 10, 32)
	if err != nil {
		return &valueError{kind: "data_type", value: string(b)}
	}
	if _, ok := dataTypeNames[DataType(n)]; !ok {
		return &valueError{kind: "data_type", value: string(b)}
	}
	*v = jsonDataType(n)
	return nil
}
