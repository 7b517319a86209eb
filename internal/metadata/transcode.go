package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// MaxMetadataSize bounds the metadata document (100MB).
	MaxMetadataSize = 100 * 1024 * 1024

	// SupportedProtoVersion is the only proto_version accepted when present.
	SupportedProtoVersion = 1
)

// ErrMetadataTooLarge is wrapped when the document exceeds MaxMetadataSize.
var ErrMetadataTooLarge = errors.New("metadata document too large")

// Transcode decodes and validates the metadata document in a single pass.
//
// Malformed JSON is reported as *MetadataTranscodeError. A document that is
// well-formed but disagrees with the schema is reported as
// *SchemaValidationError. No partial descriptor is returned on error.
func Transcode(data []byte) (*ModelDef, error) {
	if len(data) > MaxMetadataSize {
		return nil, &MetadataTranscodeError{
			Err: fmt.Errorf("%w: %d bytes (max %d)", ErrMetadataTooLarge, len(data), MaxMetadataSize),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var wire wireModel
	if err := dec.Decode(&wire); err != nil {
		return nil, classify(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &MetadataTranscodeError{Err: errors.New("unexpected data after metadata document")}
	}

	return wire.convert()
}

// classify maps a decoder error onto the error taxonomy.
func classify(err error) error {
	var (
		typeErr  *json.UnmarshalTypeError
		valueErr *valueError
	)
	switch {
	case errors.As(err, &typeErr):
		return invalid(typeErr.Field, "expected %s, got JSON %s", typeErr.Type, typeErr.Value)
	case errors.As(err, &valueErr):
		return &SchemaValidationError{Reason: valueErr.Error()}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return invalid(field, "unknown field")
	}
	if errors.Is(err, io.EOF) {
		err = fmt.Errorf("empty document: %w", err)
	}
	return &MetadataTranscodeError{Err: err}
}

func (w *wireModel) convert() (*ModelDef, error) {
	model := &ModelDef{}

	if w.ProtoVersion != nil {
		if *w.ProtoVersion != SupportedProtoVersion {
			return nil, invalid("proto_version", "unsupported version %d (supported: %d)",
				int64(*w.ProtoVersion), SupportedProtoVersion)
		}
		model.ProtoVersion = int64(*w.ProtoVersion)
	}
	if w.ProducerName != nil {
		model.ProducerName = *w.ProducerName
	}
	if w.ProducerVersion != nil {
		model.ProducerVersion = *w.ProducerVersion
	}

	model.Tensors = make([]TensorDef, 0, len(w.Tensors))
	for i, wt := range w.Tensors {
		t, err := convertTensor(wt, fmt.Sprintf("tensors[%d]", i))
		if err != nil {
			return nil, err
		}
		model.Tensors = append(model.Tensors, t)
	}

	if w.MainModule == nil {
		return nil, missing("main_module")
	}
	root, err := convertModule(w.MainModule, "main_module", true)
	if err != nil {
		return nil, err
	}
	model.MainModule = root

	return model, nil
}

func convertModule(w *wireModule, path string, root bool) (*ModuleDef, error) {
	if w == nil {
		return nil, invalid(path, "null module")
	}
	if w.Name == nil {
		return nil, missing(path + ".name")
	}
	if !root && *w.Name == "" {
		return nil, invalid(path+".name", "submodule name is empty")
	}
	if w.TorchscriptArena == nil {
		return nil, missing(path + ".torchscript_arena")
	}
	arena, err := convertRef(w.TorchscriptArena, path+".torchscript_arena")
	if err != nil {
		return nil, err
	}

	m := &ModuleDef{
		Name:             *w.Name,
		Optimize:         w.Optimize != nil && *w.Optimize,
		TorchscriptArena: arena,
	}

	seen := make(map[string]struct{}, len(w.Submodules))
	for i, ws := range w.Submodules {
		subPath := fmt.Sprintf("%s.submodules[%d]", path, i)
		sub, err := convertModule(ws, subPath, false)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[sub.Name]; dup {
			return nil, invalid(subPath+".name", "duplicate submodule name %q", sub.Name)
		}
		seen[sub.Name] = struct{}{}
		m.Submodules = append(m.Submodules, sub)
	}

	names := make(map[string]struct{}, len(w.Parameters))
	for i, wp := range w.Parameters {
		paramPath := fmt.Sprintf("%s.parameters[%d]", path, i)
		p, err := convertParameter(wp, paramPath)
		if err != nil {
			return nil, err
		}
		if _, dup := names[p.Name]; dup {
			return nil, invalid(paramPath+".name", "duplicate parameter name %q", p.Name)
		}
		names[p.Name] = struct{}{}
		m.Parameters = append(m.Parameters, p)
	}

	return m, nil
}

func convertParameter(w *wireParameter, path string) (ParameterDef, error) {
	if w == nil {
		return ParameterDef{}, invalid(path, "null parameter")
	}
	if w.Name == nil {
		return ParameterDef{}, missing(path + ".name")
	}
	if *w.Name == "" {
		return ParameterDef{}, invalid(path+".name", "parameter name is empty")
	}
	if w.TensorID == nil {
		return ParameterDef{}, missing(path + ".tensor_id")
	}
	return ParameterDef{
		Name:     *w.Name,
		TensorID: int64(*w.TensorID),
		IsBuffer: w.IsBuffer != nil && *w.IsBuffer,
	}, nil
}

func convertTensor(w *wireTensor, path string) (TensorDef, error) {
	if w == nil {
		return TensorDef{}, invalid(path, "null tensor")
	}
	if w.Dims == nil {
		return TensorDef{}, missing(path + ".dims")
	}
	if w.Strides == nil {
		return TensorDef{}, missing(path + ".strides")
	}
	if w.DataType == nil {
		return TensorDef{}, missing(path + ".data_type")
	}
	if w.Data == nil {
		return TensorDef{}, missing(path + ".data")
	}

	dims, err := nonNegative(*w.Dims, path+".dims")
	if err != nil {
		return TensorDef{}, err
	}
	strides, err := nonNegative(*w.Strides, path+".strides")
	if err != nil {
		return TensorDef{}, err
	}
	if len(strides) != len(dims) {
		return TensorDef{}, invalid(path+".strides", "has %d entries for %d dims", len(strides), len(dims))
	}

	var offset int64
	if w.Offset != nil {
		offset = int64(*w.Offset)
		if offset < 0 {
			return TensorDef{}, invalid(path+".offset", "negative offset %d", offset)
		}
	}

	dt := DataType(*w.DataType)
	if _, ok := dt.TensorType(); !ok {
		return TensorDef{}, invalid(path+".data_type", "unresolvable type reference %s", dt)
	}

	data, err := convertRef(w.Data, path+".data")
	if err != nil {
		return TensorDef{}, err
	}

	return TensorDef{
		Dims:         dims,
		Strides:      strides,
		Offset:       offset,
		DataType:     dt,
		RequiresGrad: w.RequiresGrad != nil && *w.RequiresGrad,
		Data:         data,
	}, nil
}

func convertRef(w *wireRef, path string) (RecordRef, error) {
	if w.Key == nil {
		return RecordRef{}, missing(path + ".key")
	}
	if w.Size == nil {
		return RecordRef{}, missing(path + ".size")
	}
	return RecordRef{Key: uint64(*w.Key), Size: uint64(*w.Size)}, nil
}

func nonNegative(values []jsonInt64, path string) ([]int64, error) {
	out := make([]int64, len(values))
	for i, v := range values {
		if v < 0 {
			return nil, invalid(fmt.Sprintf("%s[%d]", path, i), "negative value %d", int64(v))
		}
		out[i] = int64(v)
	}
	return out, nil
}
