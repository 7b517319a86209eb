package metadata

// RecordRef references a record of the archive.
type RecordRef struct {
	Key  uint64 // Record key
	Size uint64 // Expected payload size in bytes
}

// ParameterDef describes a parameter or buffer registered on a module.
type ParameterDef struct {
	Name     string
	TensorID int64 // Index into ModelDef.Tensors
	IsBuffer bool  // Non-trainable buffer rather than a parameter
}

// TensorDef describes a tensor view over a storage record.
type TensorDef struct {
	Dims         []int64
	Strides      []int64
	Offset       int64 // In elements
	DataType     DataType
	RequiresGrad bool
	Data         RecordRef
}

// ModuleDef describes one module of the tree.
type ModuleDef struct {
	Name             string
	Optimize         bool
	Submodules       []*ModuleDef // Order is meaningful
	Parameters       []ParameterDef
	TorchscriptArena RecordRef // Code arena for this module
}

// ModelDef is the root descriptor of a model archive.
type ModelDef struct {
	ProtoVersion    int64
	ProducerName    string
	ProducerVersion string
	MainModule      *ModuleDef
	Tensors         []TensorDef // Tensor table, indexed by tensor id
}

// NumModules returns the number of modules in the tree rooted at m.
func (m *ModuleDef) NumModules() int {
	n := 1
	for _, sub := range m.Submodules {
		n += sub.NumModules()
	}
	return n
}
