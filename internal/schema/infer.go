package schema

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/paveg/colcsv/internal/errors"
)

// Join returns the narrowest type able to represent values of both a and b.
// nil is the bottom element. Widening is monotonic:
//
//	int64 → float64 → utf8
//	bool → utf8
//	date32 → timestamp → utf8
//
// and any pair from different families joins to utf8.
func Join(a, b arrow.DataType) arrow.DataType {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case arrow.TypeEqual(a, b):
		return a
	}

	if isNumeric(a) && isNumeric(b) {
		return arrow.PrimitiveTypes.Float64
	}
	if isTemporal(a) && isTemporal(b) {
		return Timestamp
	}
	return arrow.BinaryTypes.String
}

func isNumeric(dt arrow.DataType) bool {
	return dt.ID() == arrow.INT64 || dt.ID() == arrow.FLOAT64
}

func isTemporal(dt arrow.DataType) bool {
	return dt.ID() == arrow.DATE32 || dt.ID() == arrow.TIMESTAMP
}

// DefaultColumnNames returns column_1 … column_n for headerless sources.
func DefaultColumnNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("column_%d", i+1)
	}
	return names
}

// Infer derives a schema for the named columns from sampled records.
// Columns listed in overrides take the override type without inspecting the
// sample. Records with a field count different from len(names) are ignored.
// Columns that saw only empty values become utf8. Infer fails with a
// SchemaInferenceError when there are no usable records and some column has
// no override.
func Infer(records [][]string, names []string, overrides map[string]arrow.DataType) (*arrow.Schema, error) {
	types := make([]arrow.DataType, len(names))
	fixed := make([]bool, len(names))
	for i, name := range names {
		if dt, ok := overrides[name]; ok {
			types[i] = dt
			fixed[i] = true
		}
	}

	usable := 0
	for _, record := range records {
		if len(record) != len(names) {
			continue
		}
		usable++
		for i, value := range record {
			if fixed[i] {
				continue
			}
			types[i] = Join(types[i], Classify(value))
		}
	}

	if usable == 0 {
		var missing []string
		for i, name := range names {
			if !fixed[i] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return nil, errors.NewSchemaInferenceError(missing, "no sample rows and no type override")
		}
	}

	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		dt := types[i]
		if dt == nil {
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}
