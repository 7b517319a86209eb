// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public module tree types.
//
// A Module holds ordered child modules, parameters and buffers, and the code
// arena loaded for it. Trees are usually produced by loader.Load.
package nn

import (
	"github.com/ZephyrSails/pytorch/internal/nn"
)

// Module is a node of a model tree.
type Module = nn.Module

// Parameter is a named tensor registered on a module.
type Parameter = nn.Parameter

// Common errors.
var (
	ErrDuplicateModule    = nn.ErrDuplicateModule
	ErrDuplicateParameter = nn.ErrDuplicateParameter
	ErrNilTensor          = nn.ErrNilTensor
)

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return nn.NewModule(name)
}
