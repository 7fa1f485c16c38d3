package series

import (
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Layouts holds the Go time layouts used to render temporal values.
type Layouts struct {
	Date      string
	Time      string
	Timestamp string
}

// DefaultLayouts renders values so that they read back as the same type.
var DefaultLayouts = Layouts{
	Date:      "2006-01-02",
	Time:      "15:04:05.999999",
	Timestamp: "2006-01-02T15:04:05.999999Z07:00",
}

// Format renders arr[i] as text. Nulls render as the empty string, and
// floating-point values always carry a fraction or exponent so they are
// not mistaken for integers when read back.
func Format(arr arrow.Array, i int, layouts Layouts) string {
	if arr.IsNull(i) {
		return ""
	}

	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Boolean:
		return strconv.FormatBool(a.Value(i))
	case *array.Int8:
		return strconv.FormatInt(int64(a.Value(i)), 10)
	case *array.Int16:
		return strconv.FormatInt(int64(a.Value(i)), 10)
	case *array.Int32:
		return strconv.FormatInt(int64(a.Value(i)), 10)
	case *array.Int64:
		return strconv.FormatInt(a.Value(i), 10)
	case *array.Uint8:
		return strconv.FormatUint(uint64(a.Value(i)), 10)
	case *array.Uint16:
		return strconv.FormatUint(uint64(a.Value(i)), 10)
	case *array.Uint32:
		return strconv.FormatUint(uint64(a.Value(i)), 10)
	case *array.Uint64:
		return strconv.FormatUint(a.Value(i), 10)
	case *array.Float32:
		return formatFloat(float64(a.Value(i)), 32)
	case *array.Float64:
		return formatFloat(a.Value(i), 64)
	case *array.Date32, *array.Date64, *array.Time32, *array.Time64, *array.Timestamp:
		return formatTemporal(arr, i, layouts)
	case *array.Duration:
		unit := a.DataType().(*arrow.DurationType).Unit
		return (time.Duration(a.Value(i)) * unit.Multiplier()).String()
	default:
		return arr.ValueStr(i)
	}
}

func formatFloat(v float64, bits int) string {
	s := strconv.FormatFloat(v, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func formatTemporal(arr arrow.Array, i int, layouts Layouts) string {
	switch a := arr.(type) {
	case *array.Date32:
		return a.Value(i).ToTime().Format(layouts.Date)
	case *array.Date64:
		return a.Value(i).ToTime().Format(layouts.Date)
	case *array.Time32:
		unit := a.DataType().(*arrow.Time32Type).Unit
		return a.Value(i).ToTime(unit).Format(layouts.Time)
	case *array.Time64:
		unit := a.DataType().(*arrow.Time64Type).Unit
		return a.Value(i).ToTime(unit).Format(layouts.Time)
	case *array.Timestamp:
		return timestampTime(a, i).Format(layouts.Timestamp)
	}
	return arr.ValueStr(i)
}

func timestampTime(a *array.Timestamp, i int) time.Time {
	dt := a.DataType().(*arrow.TimestampType)
	t := a.Value(i).ToTime(dt.Unit)
	if loc, err := dt.GetZone(); err == nil && loc != nil {
		return t.In(loc)
	}
	return t.UTC()
}

// GoValue returns arr[i] as a plain Go value, or nil when null. Temporal
// values are returned as time.Time.
func GoValue(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}

	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.Int32:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Float32:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.Date32:
		return a.Value(i).ToTime()
	case *array.Timestamp:
		return timestampTime(a, i)
	default:
		return arr.GetOneForMarshal(i)
	}
}
