package importer

import (
	"github.com/ZephyrSails/pytorch/internal/nn"
)

// TreeFactory is a create-if-absent ModuleFactory over an nn.Module tree.
type TreeFactory struct {
	root *nn.Module
}

// NewTreeFactory creates a factory whose empty path resolves to root.
func NewTreeFactory(root *nn.Module) *TreeFactory {
	return &TreeFactory{root: root}
}

// Root returns the root module.
func (f *TreeFactory) Root() *nn.Module {
	return f.root
}

// GetOrCreate returns the module at path, creating missing modules along it.
func (f *TreeFactory) GetOrCreate(path []string) (Module, error) {
	cur := f.root
	for _, name := range path {
		child := cur.FindModule(name)
		if child == nil {
			child = nn.NewModule(name)
			if err := cur.RegisterModule(child); err != nil {
				return nil, err
			}
		}
		cur = child
	}
	return cur, nil
}
