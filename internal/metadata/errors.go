package metadata

import "fmt"

// MetadataTranscodeError is returned when the metadata record is not valid JSON.
type MetadataTranscodeError struct {
	Err error
}

// Error implements the error interface.
func (e *MetadataTranscodeError) Error() string {
	return fmt.Sprintf("metadata transcode: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *MetadataTranscodeError) Unwrap() error {
	return e.Err
}

// SchemaValidationError is returned when the metadata JSON disagrees with the schema.
type SchemaValidationError struct {
	Field  string // JSON path of the offending field, empty when unknown
	Reason string
}

// Error implements the error interface.
func (e *SchemaValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema validation: field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("schema validation: %s", e.Reason)
}

func missing(field string) error {
	return &SchemaValidationError{Field: field, Reason: "required field is missing"}
}

func invalid(field, format string, args ...any) error {
	return &SchemaValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
