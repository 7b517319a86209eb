// Package nn implements the host module tree populated by the importer.
//
// A Module is a named node holding ordered child modules, ordered parameters
// and buffers, and the code arena attached to it:
//   - Module: named node with children, parameters and buffers
//   - Parameter: named tensor registered on a module
//   - StateDict: dotted-name view of every tensor in a tree
//
// Design inspired by PyTorch's nn.Module: registration order is preserved and
// child modules are addressed by name.
package nn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZephyrSails/pytorch/internal/tensor"
)

// Common errors.
var (
	ErrDuplicateModule    = errors.New("module already registered")
	ErrDuplicateParameter = errors.New("parameter already registered")
	ErrNilTensor          = errors.New("nil tensor")
)

// Module is a node of a model tree.
//
// Modules are not safe for concurrent mutation. Reads are safe once the tree
// is fully built.
type Module struct {
	name      string
	optimized bool

	children   []*Module
	childIndex map[string]int
	params     []*Parameter
	paramIndex map[string]int
	code       []byte
	constants  []*tensor.Tensor
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		name:       name,
		childIndex: make(map[string]int),
		paramIndex: make(map[string]int),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return m.name
}

// Optimized reports whether the module was saved with optimization enabled.
func (m *Module) Optimized() bool {
	return m.optimized
}

// SetOptimized sets the optimization flag.
func (m *Module) SetOptimized(optimized bool) {
	m.optimized = optimized
}

// RegisterModule attaches child under its name.
func (m *Module) RegisterModule(child *Module) error {
	if _, ok := m.childIndex[child.name]; ok {
		return fmt.Errorf("%w: %q in %q", ErrDuplicateModule, child.name, m.name)
	}
	m.childIndex[child.name] = len(m.children)
	m.children = append(m.children, child)
	return nil
}

// FindModule returns the direct child with the given name, or nil.
func (m *Module) FindModule(name string) *Module {
	if i, ok := m.childIndex[name]; ok {
		return m.children[i]
	}
	return nil
}

// Modules returns the direct children in registration order.
func (m *Module) Modules() []*Module {
	return append([]*Module(nil), m.children...)
}

// Lookup resolves a path of child names starting at m. An empty path
// returns m itself.
func (m *Module) Lookup(path []string) *Module {
	cur := m
	for _, name := range path {
		cur = cur.FindModule(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// RegisterParameter attaches a tensor as a parameter, or as a buffer when
// isBuffer is true. Names are unique per module across both kinds.
func (m *Module) RegisterParameter(name string, t *tensor.Tensor, isBuffer bool) error {
	if t == nil {
		return fmt.Errorf("%w: parameter %q", ErrNilTensor, name)
	}
	if _, ok := m.paramIndex[name]; ok {
		return fmt.Errorf("%w: %q in %q", ErrDuplicateParameter, name, m.name)
	}
	m.paramIndex[name] = len(m.params)
	m.params = append(m.params, NewParameter(name, t, isBuffer))
	return nil
}

// FindParameter returns the parameter or buffer with the given name, or nil.
func (m *Module) FindParameter(name string) *Parameter {
	if i, ok := m.paramIndex[name]; ok {
		return m.params[i]
	}
	return nil
}

// Parameters returns the module's own parameters (not buffers) in
// registration order.
func (m *Module) Parameters() []*Parameter {
	return m.filter(false)
}

// Buffers returns the module's own buffers in registration order.
func (m *Module) Buffers() []*Parameter {
	return m.filter(true)
}

// AllParameters returns parameters and buffers in registration order.
func (m *Module) AllParameters() []*Parameter {
	return append([]*Parameter(nil), m.params...)
}

func (m *Module) filter(buffers bool) []*Parameter {
	var out []*Parameter
	for _, p := range m.params {
		if p.isBuffer == buffers {
			out = append(out, p)
		}
	}
	return out
}

// SetCode stores the module's code arena and the tensor table it refers to.
func (m *Module) SetCode(code []byte, constants []*tensor.Tensor) {
	m.code = code
	m.constants = constants
}

// Code returns the stored code arena.
func (m *Module) Code() []byte {
	return m.code
}

// Constants returns the tensor table the code arena was loaded with.
func (m *Module) Constants() []*tensor.Tensor {
	return m.constants
}

// Walk visits m and its descendants in pre-order. path holds the child
// names from m to the visited module. Returning an error stops the walk.
func (m *Module) Walk(fn func(path []string, mod *Module) error) error {
	return m.walk(nil, fn)
}

func (m *Module) walk(path []string, fn func([]string, *Module) error) error {
	if err := fn(path, m); err != nil {
		return err
	}
	for _, child := range m.children {
		if err := child.walk(append(path[:len(path):len(path)], child.name), fn); err != nil {
			return err
		}
	}
	return nil
}

// StateDict returns every parameter and buffer of the tree keyed by dotted
// path, e.g. "encoder.layer0.weight".
func (m *Module) StateDict() map[string]*tensor.Tensor {
	dict := make(map[string]*tensor.Tensor)
	_ = m.Walk(func(path []string, mod *Module) error {
		prefix := strings.Join(path, ".")
		if prefix != "" {
			prefix += "."
		}
		for _, p := range mod.params {
			dict[prefix+p.name] = p.tensor
		}
		return nil
	})
	return dict
}

// NumModules returns the number of modules in the tree rooted at m.
func (m *Module) NumModules() int {
	n := 0
	_ = m.Walk(func([]string, *Module) error {
		n++
		return nil
	})
	return n
}
