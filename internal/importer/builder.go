package importer

import (
	"fmt"
	"slices"

	"github.com/go-logr/logr"

	"github.com/ZephyrSails/pytorch/internal/metadata"
	"github.com/ZephyrSails/pytorch/internal/serialization"
	"github.com/ZephyrSails/pytorch/internal/tensor"
)

// builder rebuilds the module tree of one load.
type builder struct {
	reader  serialization.RecordReader
	factory ModuleFactory
	loader  CodeLoader
	tensors []*tensor.Tensor
	log     logr.Logger

	arenas  map[uint64][]byte
	modules int
}

// check validates the whole descriptor tree before any module is touched:
// every parameter must reference the tensor table and every code arena must
// be present with its declared size. Arenas are kept for build.
func (b *builder) check(def *metadata.ModuleDef, path []string) error {
	for _, sub := range def.Submodules {
		if err := b.check(sub, append(path, sub.Name)); err != nil {
			return err
		}
	}

	for _, p := range def.Parameters {
		if p.TensorID < 0 || p.TensorID >= int64(len(b.tensors)) {
			return &InvalidTensorIDError{
				Path:      slices.Clone(path),
				Parameter: p.Name,
				TensorID:  p.TensorID,
				TableSize: len(b.tensors),
			}
		}
	}

	arena := def.TorchscriptArena
	code, ok := b.arenas[arena.Key]
	if !ok {
		var err error
		code, err = b.reader.RecordWithKey(arena.Key)
		if err != nil {
			return fmt.Errorf("failed to read code arena of module %s: %w", modulePath(path), err)
		}
		b.arenas[arena.Key] = code
	}
	if uint64(len(code)) != arena.Size {
		return &CodeArenaSizeMismatchError{
			Path:     slices.Clone(path),
			Key:      arena.Key,
			Expected: arena.Size,
			Actual:   uint64(len(code)),
		}
	}
	return nil
}

// build populates the module at path from def, then its descendants.
//
// Modules are visited in pre-order, left to right. Children are built before
// the module's own parameters are registered, and parameters are registered
// before the code arena is loaded.
func (b *builder) build(def *metadata.ModuleDef, path []string) error {
	module, err := b.factory.GetOrCreate(append([]string{}, path...))
	if err != nil {
		return fmt.Errorf("failed to get module %s: %w", modulePath(path), err)
	}
	b.modules++
	module.SetOptimized(def.Optimize)

	for _, sub := range def.Submodules {
		if err := b.build(sub, append(path, sub.Name)); err != nil {
			return err
		}
	}

	for _, p := range def.Parameters {
		if err := module.RegisterParameter(p.Name, b.tensors[p.TensorID], p.IsBuffer); err != nil {
			return fmt.Errorf("failed to register %q on module %s: %w", p.Name, modulePath(path), err)
		}
	}

	code := b.arenas[def.TorchscriptArena.Key]
	if err := b.loader.LoadCode(module, code, b.tensors); err != nil {
		return fmt.Errorf("failed to load code of module %s: %w", modulePath(path), err)
	}

	b.log.V(2).Info("built module", "path", modulePath(path),
		"children", len(def.Submodules), "parameters", len(def.Parameters), "code", len(code))
	return nil
}
