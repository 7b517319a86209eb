package importer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCodeNotSupported is returned by RetainCode for modules that cannot hold
// a code arena.
var ErrCodeNotSupported = errors.New("module does not accept code")

// StorageSizeMismatchError is returned when a storage record's length differs
// from the size declared by a tensor referencing it.
type StorageSizeMismatchError struct {
	Key      uint64
	Expected uint64
	Actual   uint64
}

// Error implements the error interface.
func (e *StorageSizeMismatchError) Error() string {
	return fmt.Sprintf("storage record %d: declared size %d, record has %d bytes", e.Key, e.Expected, e.Actual)
}

// CodeArenaSizeMismatchError is returned when a module's code arena record
// length differs from its declared size.
type CodeArenaSizeMismatchError struct {
	Path     []string
	Key      uint64
	Expected uint64
	Actual   uint64
}

// Error implements the error interface.
func (e *CodeArenaSizeMismatchError) Error() string {
	return fmt.Sprintf("code arena of module %s (record %d): declared size %d, record has %d bytes",
		modulePath(e.Path), e.Key, e.Expected, e.Actual)
}

// InvalidTensorIDError is returned when a parameter references a tensor id
// outside the tensor table.
type InvalidTensorIDError struct {
	Path      []string
	Parameter string
	TensorID  int64
	TableSize int
}

// Error implements the error interface.
func (e *InvalidTensorIDError) Error() string {
	return fmt.Sprintf("parameter %q of module %s: tensor id %d out of range [0, %d)",
		e.Parameter, modulePath(e.Path), e.TensorID, e.TableSize)
}

// modulePath formats a module path for messages. The root is "<root>".
func modulePath(path []string) string {
	if len(path) == 0 {
		return "<root>"
	}
	return strings.Join(path, ".")
}
