package schema_test

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paveg/colcsv/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := map[string]arrow.Type{
		"int32":    arrow.INT32,
		"Int64":    arrow.INT64,
		"float":    arrow.FLOAT64,
		"f32":      arrow.FLOAT32,
		"str":      arrow.STRING,
		"boolean":  arrow.BOOL,
		"date":     arrow.DATE32,
		"datetime": arrow.TIMESTAMP,
	}
	for name, id := range tests {
		t.Run(name, func(t *testing.T) {
			dt, err := schema.ParseType(name)
			require.NoError(t, err)
			assert.Equal(t, id, dt.ID())
			assert.True(t, schema.Supported(dt))
		})
	}

	_, err := schema.ParseType("decimal")
	assert.EqualError(t, err, `unknown column type "decimal"`)
}

func TestParseTypes(t *testing.T) {
	out, err := schema.ParseTypes(map[string]string{"a": "int64", "b": "utf8"})
	require.NoError(t, err)
	assert.Equal(t, arrow.INT64, out["a"].ID())
	assert.Equal(t, arrow.STRING, out["b"].ID())

	_, err = schema.ParseTypes(map[string]string{"a": "money"})
	assert.EqualError(t, err, `column a: unknown column type "money"`)

	out, err = schema.ParseTypes(nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSupported(t *testing.T) {
	assert.False(t, schema.Supported(arrow.BinaryTypes.Binary))
	assert.False(t, schema.Supported(arrow.PrimitiveTypes.Uint8))
}

func TestParseTimestamp(t *testing.T) {
	ts, ok := schema.ParseTimestamp("2024-03-01T12:30:00+02:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), ts)

	ts, ok = schema.ParseTimestamp("2024-03-01 12:30:00.25")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 0, 250_000_000, time.UTC), ts)

	_, ok = schema.ParseTimestamp("2024-03-01")
	assert.False(t, ok)
	_, ok = schema.ParseTimestamp("not a timestamp at all")
	assert.False(t, ok)
}

func TestParseBool(t *testing.T) {
	v, ok := schema.ParseBool("True")
	assert.True(t, ok)
	assert.True(t, v)

	_, ok = schema.ParseBool("yes")
	assert.False(t, ok)
}
