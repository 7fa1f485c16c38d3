// Package schema derives Arrow schemas for delimited text: the logical types
// a column may take, how text tokens map onto them and how evidence from
// sampled rows widens a column's type.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
)

// Timestamp is the logical type of inferred date-time columns.
var Timestamp = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

// DateLayout is the layout recognized for date columns.
const DateLayout = "2006-01-02"

// TimestampLayouts are tried in order when parsing timestamp tokens.
var TimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
}

// ParseType maps a configuration type name onto an Arrow type.
func ParseType(name string) (arrow.DataType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int32", "i32":
		return arrow.PrimitiveTypes.Int32, nil
	case "int64", "i64", "int", "integer":
		return arrow.PrimitiveTypes.Int64, nil
	case "float32", "f32":
		return arrow.PrimitiveTypes.Float32, nil
	case "float64", "f64", "float", "double":
		return arrow.PrimitiveTypes.Float64, nil
	case "utf8", "str", "string", "text":
		return arrow.BinaryTypes.String, nil
	case "bool", "boolean":
		return arrow.FixedWidthTypes.Boolean, nil
	case "date32", "date":
		return arrow.FixedWidthTypes.Date32, nil
	case "timestamp", "datetime":
		return Timestamp, nil
	default:
		return nil, fmt.Errorf("unknown column type %q", name)
	}
}

// ParseTypes converts a name → type-name map, as found in configuration
// files, into Arrow overrides.
func ParseTypes(dtypes map[string]string) (map[string]arrow.DataType, error) {
	if len(dtypes) == 0 {
		return nil, nil
	}
	out := make(map[string]arrow.DataType, len(dtypes))
	for col, name := range dtypes {
		dt, err := ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		out[col] = dt
	}
	return out, nil
}

// Supported reports whether tokens can be cast to dt.
func Supported(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT32, arrow.INT64, arrow.FLOAT32, arrow.FLOAT64,
		arrow.STRING, arrow.BOOL, arrow.DATE32, arrow.TIMESTAMP:
		return true
	default:
		return false
	}
}

// ParseBool accepts true/false in any letter case.
func ParseBool(s string) (bool, bool) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, true
	case strings.EqualFold(s, "false"):
		return false, true
	default:
		return false, false
	}
}

// ParseDate parses a DateLayout token.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	return t, err == nil
}

// ParseTimestamp parses a token with the first matching TimestampLayouts
// entry. Layouts without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	// Cheap rejection before trying every layout
	if len(s) < len("2006-01-02T15:04:05") || s[4] != '-' {
		return time.Time{}, false
	}
	for _, layout := range TimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Classify returns the narrowest type able to hold s, or nil for an empty
// token, which carries no evidence.
func Classify(s string) arrow.DataType {
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return arrow.PrimitiveTypes.Int64
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return arrow.PrimitiveTypes.Float64
	}
	if _, ok := ParseBool(s); ok {
		return arrow.FixedWidthTypes.Boolean
	}
	if _, ok := ParseDate(s); ok {
		return arrow.FixedWidthTypes.Date32
	}
	if _, ok := ParseTimestamp(s); ok {
		return Timestamp
	}
	return arrow.BinaryTypes.String
}
