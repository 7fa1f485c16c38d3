// Package validation provides reusable checks for read options and frame
// operations: column existence, projection bounds and column lengths.
package validation

import (
	"fmt"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/paveg/colcsv/internal/errors"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ColumnProvider interface for types that provide column information
type ColumnProvider interface {
	HasColumn(name string) bool
	Width() int
}

// SchemaColumns adapts an Arrow schema to a ColumnProvider.
func SchemaColumns(sc *arrow.Schema) ColumnProvider {
	return schemaColumns{sc}
}

type schemaColumns struct{ sc *arrow.Schema }

func (s schemaColumns) HasColumn(name string) bool { return s.sc.HasField(name) }
func (s schemaColumns) Width() int                 { return s.sc.NumFields() }

// NameColumns adapts an ordered list of column names to a ColumnProvider.
type NameColumns []string

// HasColumn reports whether name is in the list.
func (n NameColumns) HasColumn(name string) bool { return slices.Contains(n, name) }

// Width returns the number of names.
func (n NameColumns) Width() int { return len(n) }

// ColumnValidator validates column existence
type ColumnValidator struct {
	cols    ColumnProvider
	columns []string
	op      string
}

// NewColumnValidator creates a validator for column operations
func NewColumnValidator(cols ColumnProvider, op string, columns ...string) *ColumnValidator {
	return &ColumnValidator{
		cols:    cols,
		columns: columns,
		op:      op,
	}
}

// Validate checks that every column exists
func (v *ColumnValidator) Validate() error {
	for _, column := range v.columns {
		if !v.cols.HasColumn(column) {
			return errors.NewColumnNotFoundError(v.op, column)
		}
	}
	return nil
}

// IndexValidator validates a column index against the provider's width
type IndexValidator struct {
	index   int
	cols    ColumnProvider
	op      string
	context string
}

// NewIndexValidator creates a validator for index operations. context
// names the index in the error message.
func NewIndexValidator(cols ColumnProvider, index int, op, context string) *IndexValidator {
	return &IndexValidator{
		index:   index,
		cols:    cols,
		op:      op,
		context: context,
	}
}

// Validate checks if index is within bounds
func (v *IndexValidator) Validate() error {
	if v.index < 0 || v.index >= v.cols.Width() {
		message := fmt.Sprintf("%s %d out of range for %d columns", v.context, v.index, v.cols.Width())
		return errors.NewValidationError(v.op, "", message)
	}
	return nil
}

// LengthValidator validates that a column is as long as its siblings
type LengthValidator struct {
	expected int
	actual   int
	op       string
	column   string
}

// NewLengthValidator creates a validator for length consistency
func NewLengthValidator(expected, actual int, op, column string) *LengthValidator {
	return &LengthValidator{
		expected: expected,
		actual:   actual,
		op:       op,
		column:   column,
	}
}

// Validate checks if lengths match
func (v *LengthValidator) Validate() error {
	if v.expected != v.actual {
		return &errors.DataFrameError{
			Op:      v.op,
			Column:  v.column,
			Message: fmt.Sprintf("length %d does not match %d", v.actual, v.expected),
			Cause:   errors.ErrMismatchedLength,
		}
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateColumns is a convenience function for column validation
func ValidateColumns(cols ColumnProvider, op string, columns ...string) error {
	return NewColumnValidator(cols, op, columns...).Validate()
}

// ValidateIndices checks every index against cols.
func ValidateIndices(cols ColumnProvider, op, context string, indices ...int) error {
	validators := make([]Validator, len(indices))
	for i, idx := range indices {
		validators[i] = NewIndexValidator(cols, idx, op, context)
	}
	return NewCompoundValidator(validators...).Validate()
}

// ValidateLength is a convenience function for length validation
func ValidateLength(expected, actual int, op, column string) error {
	return NewLengthValidator(expected, actual, op, column).Validate()
}
