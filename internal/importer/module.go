package importer

import (
	"github.com/ZephyrSails/pytorch/internal/tensor"
)

// Module is the handle the importer populates. Implementations are owned by
// the caller; the importer only sets flags and registers tensors on them.
type Module interface {
	SetOptimized(optimized bool)
	RegisterParameter(name string, t *tensor.Tensor, isBuffer bool) error
}

// ModuleFactory resolves a module path to a handle.
//
// The root module is the empty path. Within one load, repeated calls with the
// same path must return the same handle; create-if-absent is acceptable.
type ModuleFactory interface {
	GetOrCreate(path []string) (Module, error)
}

// ModuleFactoryFunc adapts a function to ModuleFactory.
type ModuleFactoryFunc func(path []string) (Module, error)

// GetOrCreate calls f(path).
func (f ModuleFactoryFunc) GetOrCreate(path []string) (Module, error) {
	return f(path)
}

// CodeLoader consumes a module's code arena.
//
// tensors is the full tensor table of the archive, indexed by tensor id.
type CodeLoader interface {
	LoadCode(m Module, code []byte, tensors []*tensor.Tensor) error
}

// CodeLoaderFunc adapts a function to CodeLoader.
type CodeLoaderFunc func(m Module, code []byte, tensors []*tensor.Tensor) error

// LoadCode calls f(m, code, tensors).
func (f CodeLoaderFunc) LoadCode(m Module, code []byte, tensors []*tensor.Tensor) error {
	return f(m, code, tensors)
}

// CodeHolder is implemented by modules that can store their code arena.
type CodeHolder interface {
	SetCode(code []byte, tensors []*tensor.Tensor)
}

// RetainCode is the default CodeLoader. It stores the arena on modules
// implementing CodeHolder and fails with ErrCodeNotSupported otherwise.
var RetainCode CodeLoader = CodeLoaderFunc(func(m Module, code []byte, tensors []*tensor.Tensor) error {
	holder, ok := m.(CodeHolder)
	if !ok {
		return ErrCodeNotSupported
	}
	holder.SetCode(code, tensors)
	return nil
})

// DiscardCode is a CodeLoader that ignores code arenas.
var DiscardCode CodeLoader = CodeLoaderFunc(func(Module, []byte, []*tensor.Tensor) error {
	return nil
})
