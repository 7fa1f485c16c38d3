package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/paveg/colcsv/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataFrameError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.DataFrameError
		expected string
	}{
		{
			name: "Error with column",
			err: &errors.DataFrameError{
				Op:      "Project",
				Column:  "age",
				Message: "column does not exist",
			},
			expected: "Project operation failed on column 'age': column does not exist",
		},
		{
			name: "Error without column",
			err: &errors.DataFrameError{
				Op:      "Read",
				Message: "batch size must be positive",
			},
			expected: "Read operation failed: batch size must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDataFrameError_Unwrap(t *testing.T) {
	cause := stderrors.New("underlying error")
	err := &errors.DataFrameError{
		Op:      "Read",
		Message: "validation failed",
		Cause:   cause,
	}

	assert.Equal(t, cause, err.Unwrap())
}

func TestDataFrameError_Is(t *testing.T) {
	err1 := errors.NewColumnNotFoundError("Project", "age")
	err2 := errors.NewColumnNotFoundError("Project", "age")
	err3 := errors.NewColumnNotFoundError("Aggregate", "age")

	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err1.Is(stderrors.New("different error")))
	assert.True(t, stderrors.Is(fmt.Errorf("wrapped: %w", err1), err2))
}

func TestConstructors(t *testing.T) {
	err := errors.NewUnsupportedTypeError("Sum", "name", "utf8")
	assert.Equal(t, "Sum operation failed on column 'name': unsupported type: utf8", err.Error())

	err = errors.NewValidationError("Read", "delimiter", "must be a single byte")
	assert.Equal(t, "delimiter", err.Column)

	err = errors.NewInvalidInputError("Read", "threads must be non-negative")
	assert.Empty(t, err.Column)
}

func TestParseError(t *testing.T) {
	t.Run("with column and field", func(t *testing.T) {
		err := &errors.ParseError{Line: 7, Column: 2, Field: "age", Message: "cannot parse \"x\" as int64"}
		assert.Equal(t, `csv parse error at line 7, column 2 (age): cannot parse "x" as int64`, err.Error())
	})

	t.Run("record level with cause", func(t *testing.T) {
		cause := stderrors.New("wrong number of fields")
		err := &errors.ParseError{Line: 3, Message: "malformed record", Cause: cause}
		assert.Equal(t, "csv parse error at line 3: malformed record: wrong number of fields", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("errors.As through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("reading chunk 2: %w", &errors.ParseError{Line: 11, Column: 1})
		var pe *errors.ParseError
		require.ErrorAs(t, wrapped, &pe)
		assert.Equal(t, 11, pe.Line)
	})
}

func TestEncodingError(t *testing.T) {
	err := &errors.EncodingError{Line: 4, Offset: 93}
	assert.Equal(t, "invalid utf-8 sequence at line 4 (byte offset 93)", err.Error())
}

func TestIOError(t *testing.T) {
	cause := stderrors.New("disk full")
	err := errors.NewIOError("write", "", cause)
	assert.Equal(t, "write: disk full", err.Error())
	assert.ErrorIs(t, err, cause)

	err = errors.NewIOError("open", "/tmp/x.csv", cause)
	assert.Equal(t, "open /tmp/x.csv: disk full", err.Error())
}

func TestSchemaInferenceError(t *testing.T) {
	err := errors.NewSchemaInferenceError([]string{"a", "b"}, "no sample rows")
	assert.Equal(t, "schema inference failed for 2 column(s) [a b]: no sample rows", err.Error())

	err = errors.NewSchemaInferenceError(nil, "empty source")
	assert.Equal(t, "schema inference failed: empty source", err.Error())
}

func TestContractViolation(t *testing.T) {
	type left struct{}
	type right struct{}
	err := errors.NewContractViolation("Merge", &left{}, &right{})
	assert.Equal(t, "contract violation in Merge: cannot combine *errors_test.left with *errors_test.right", err.Error())
}
