// Package metadata transcodes the JSON metadata record of a script module
// archive into validated, strongly-typed descriptors.
//
// The metadata document describes the whole model:
//
//	{
//	  "proto_version": 1,
//	  "producer_name": "pytorch",
//	  "main_module": {
//	    "name": "main",
//	    "optimize": true,
//	    "submodules": [ ... ],
//	    "parameters": [{"name": "weight", "tensor_id": 0, "is_buffer": false}],
//	    "torchscript_arena": {"key": "3", "size": 120}
//	  },
//	  "tensors": [
//	    {"dims": [2, 3], "strides": [3, 1], "offset": 0, "data_type": "FLOAT",
//	     "requires_grad": true, "data": {"key": "7", "size": 24}}
//	  ]
//	}
//
// Decoding is fail-closed: malformed JSON yields a MetadataTranscodeError and
// any disagreement with the schema (unknown field, wrong type, missing
// required field, unknown data type) yields a SchemaValidationError. No
// descriptor is ever default-initialized from a partial document.
package metadata
