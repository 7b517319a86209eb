package nn

import (
	"github.com/ZephyrSails/pytorch/internal/tensor"
)

// Parameter is a named tensor registered on a module.
//
// Buffers are parameters that are not trained (e.g., running statistics of a
// batch norm); they share the same storage rules.
type Parameter struct {
	name     string         // Parameter name (e.g., "weight", "bias")
	tensor   *tensor.Tensor // View over shared storage
	isBuffer bool
}

// NewParameter creates a new parameter.
func NewParameter(name string, t *tensor.Tensor, isBuffer bool) *Parameter {
	return &Parameter{
		name:     name,
		tensor:   t,
		isBuffer: isBuffer,
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}

// IsBuffer reports whether the parameter is a non-trainable buffer.
func (p *Parameter) IsBuffer() bool {
	return p.isBuffer
}
