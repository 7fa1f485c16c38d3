package errors

import (
	"fmt"
)

// SchemaInferenceError is returned when a schema cannot be derived because
// the sample holds no rows and no override covers the columns.
type SchemaInferenceError struct {
	Columns []string // Columns left without a type
	Message string
}

func (e *SchemaInferenceError) Error() string {
	if len(e.Columns) > 0 {
		return fmt.Sprintf("schema inference failed for %d column(s) %v: %s", len(e.Columns), e.Columns, e.Message)
	}
	return "schema inference failed: " + e.Message
}

// NewSchemaInferenceError creates a SchemaInferenceError for the untyped columns.
func NewSchemaInferenceError(columns []string, message string) *SchemaInferenceError {
	return &SchemaInferenceError{Columns: columns, Message: message}
}

// ParseError reports a malformed row. Line is the 1-based physical line in
// the source where the record starts; Column is the 1-based field index,
// or 0 when the whole record is at fault (e.g. a wrong field count).
type ParseError struct {
	Line    int
	Column  int
	Field   string // Column name when known
	Chunk   int
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	pos := fmt.Sprintf("line %d", e.Line)
	if e.Column > 0 {
		pos += fmt.Sprintf(", column %d", e.Column)
	}
	if e.Field != "" {
		pos += fmt.Sprintf(" (%s)", e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("csv parse error at %s: %s: %v", pos, e.Message, e.Cause)
	}
	return fmt.Sprintf("csv parse error at %s: %s", pos, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// EncodingError reports an invalid UTF-8 sequence under strict decoding.
type EncodingError struct {
	Line   int
	Offset int64 // Absolute byte offset in the source
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("invalid utf-8 sequence at line %d (byte offset %d)", e.Line, e.Offset)
}

// IOError wraps a failure of the underlying source or sink.
type IOError struct {
	Op    string // "open", "stat", "mmap", "read", "seek", "write"
	Path  string
	Cause error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *IOError) Unwrap() error {
	return e.Cause
}

// NewIOError wraps cause as an IOError for op.
func NewIOError(op, path string, cause error) *IOError {
	return &IOError{Op: op, Path: path, Cause: cause}
}

// ContractViolation is the panic value raised when partial aggregate states
// of different concrete kinds are merged. Merge topology is built internally,
// so this is a programming error and never returned as an error value.
type ContractViolation struct {
	Op    string
	Left  string
	Right string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation in %s: cannot combine %s with %s", e.Op, e.Left, e.Right)
}

// NewContractViolation creates a ContractViolation describing both operands.
func NewContractViolation(op string, left, right any) *ContractViolation {
	return &ContractViolation{
		Op:    op,
		Left:  fmt.Sprintf("%T", left),
		Right: fmt.Sprintf("%T", right),
	}
}
