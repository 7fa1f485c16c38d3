package schema_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paveg/colcsv/internal/errors"
	"github.com/paveg/colcsv/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	i64 := arrow.PrimitiveTypes.Int64
	f64 := arrow.PrimitiveTypes.Float64
	str := arrow.BinaryTypes.String
	boolean := arrow.FixedWidthTypes.Boolean
	date := arrow.FixedWidthTypes.Date32
	ts := schema.Timestamp

	tests := []struct {
		name     string
		a, b     arrow.DataType
		expected arrow.DataType
	}{
		{"bottom left", nil, i64, i64},
		{"bottom right", f64, nil, f64},
		{"both bottom", nil, nil, nil},
		{"same", i64, i64, i64},
		{"int widens to float", i64, f64, f64},
		{"float absorbs int", f64, i64, f64},
		{"float widens to text", f64, str, str},
		{"bool with int", boolean, i64, str},
		{"date widens to timestamp", date, ts, ts},
		{"date with int", date, i64, str},
		{"text is top", str, boolean, str},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := schema.Join(tt.a, tt.b)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			assert.True(t, arrow.TypeEqual(tt.expected, got), "got %v", got)
		})
	}
}

func TestJoinIsCommutativeAndAssociative(t *testing.T) {
	all := []arrow.DataType{
		nil,
		arrow.PrimitiveTypes.Int64,
		arrow.PrimitiveTypes.Float64,
		arrow.BinaryTypes.String,
		arrow.FixedWidthTypes.Boolean,
		arrow.FixedWidthTypes.Date32,
		schema.Timestamp,
	}
	same := func(a, b arrow.DataType) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		return arrow.TypeEqual(a, b)
	}

	for _, a := range all {
		for _, b := range all {
			assert.True(t, same(schema.Join(a, b), schema.Join(b, a)))
			for _, c := range all {
				assert.True(t, same(schema.Join(schema.Join(a, b), c), schema.Join(a, schema.Join(b, c))))
			}
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		value    string
		expected arrow.DataType
	}{
		{"42", arrow.PrimitiveTypes.Int64},
		{"-7", arrow.PrimitiveTypes.Int64},
		{"3.14", arrow.PrimitiveTypes.Float64},
		{".2", arrow.PrimitiveTypes.Float64},
		{"1e3", arrow.PrimitiveTypes.Float64},
		{"TRUE", arrow.FixedWidthTypes.Boolean},
		{"false", arrow.FixedWidthTypes.Boolean},
		{"2024-02-29", arrow.FixedWidthTypes.Date32},
		{"2024-02-29T10:11:12Z", schema.Timestamp},
		{"2024-02-29 10:11:12", schema.Timestamp},
		{"Setosa", arrow.BinaryTypes.String},
		{"2024-13-01", arrow.BinaryTypes.String},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.True(t, arrow.TypeEqual(tt.expected, schema.Classify(tt.value)))
		})
	}

	assert.Nil(t, schema.Classify(""))
}

func TestInfer(t *testing.T) {
	names := []string{"id", "price", "label"}

	t.Run("widens int to float on a later row", func(t *testing.T) {
		records := [][]string{
			{"1", "10", "a"},
			{"2", "20", "b"},
			{"3", "30", "c"},
			{"4", "40.5", "d"},
		}
		s, err := schema.Infer(records, names, nil)
		require.NoError(t, err)

		assert.Equal(t, arrow.INT64, s.Field(0).Type.ID())
		assert.Equal(t, arrow.FLOAT64, s.Field(1).Type.ID())
		assert.Equal(t, arrow.STRING, s.Field(2).Type.ID())
		assert.True(t, s.Field(1).Nullable)
	})

	t.Run("empty values carry no evidence", func(t *testing.T) {
		records := [][]string{
			{"", "1", ""},
			{"2", "", ""},
		}
		s, err := schema.Infer(records, names, nil)
		require.NoError(t, err)

		assert.Equal(t, arrow.INT64, s.Field(0).Type.ID())
		assert.Equal(t, arrow.INT64, s.Field(1).Type.ID())
		assert.Equal(t, arrow.STRING, s.Field(2).Type.ID())
	})

	t.Run("overrides skip inference", func(t *testing.T) {
		records := [][]string{{"1", "x", "2"}}
		s, err := schema.Infer(records, names, map[string]arrow.DataType{
			"price": arrow.PrimitiveTypes.Float32,
			"label": arrow.PrimitiveTypes.Int32,
		})
		require.NoError(t, err)

		assert.Equal(t, arrow.FLOAT32, s.Field(1).Type.ID())
		assert.Equal(t, arrow.INT32, s.Field(2).Type.ID())
	})

	t.Run("ragged records are ignored", func(t *testing.T) {
		records := [][]string{
			{"1", "2"},
			{"1", "2.5", "x"},
		}
		s, err := schema.Infer(records, names, nil)
		require.NoError(t, err)
		assert.Equal(t, arrow.FLOAT64, s.Field(1).Type.ID())
	})

	t.Run("no rows and no overrides", func(t *testing.T) {
		_, err := schema.Infer(nil, names, nil)

		var sie *errors.SchemaInferenceError
		require.ErrorAs(t, err, &sie)
		assert.Equal(t, names, sie.Columns)
	})

	t.Run("no rows but every column overridden", func(t *testing.T) {
		s, err := schema.Infer(nil, []string{"a"}, map[string]arrow.DataType{"a": arrow.PrimitiveTypes.Int64})
		require.NoError(t, err)
		assert.Equal(t, 1, s.NumFields())
	})
}

func TestDefaultColumnNames(t *testing.T) {
	assert.Equal(t, []string{"column_1", "column_2", "column_3"}, schema.DefaultColumnNames(3))
	assert.Empty(t, schema.DefaultColumnNames(0))
}
