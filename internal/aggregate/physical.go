package aggregate

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/paveg/colcsv/internal/errors"
)

// PhysicalType returns the storage type of logical temporal types and dt
// itself otherwise.
func PhysicalType(dt arrow.DataType) arrow.DataType {
	switch dt.ID() {
	case arrow.DATE32, arrow.TIME32:
		return arrow.PrimitiveTypes.Int32
	case arrow.DATE64, arrow.TIME64, arrow.TIMESTAMP, arrow.DURATION:
		return arrow.PrimitiveTypes.Int64
	default:
		return dt
	}
}

// Physical returns arr viewed as its physical storage type, sharing buffers
// with arr. The caller releases the result.
func Physical(arr arrow.Array) arrow.Array {
	phys := PhysicalType(arr.DataType())
	if arrow.TypeEqual(phys, arr.DataType()) {
		arr.Retain()
		return arr
	}

	data := array.NewData(phys, arr.Len(), arr.Data().Buffers(), nil, arr.NullN(), arr.Data().Offset())
	defer data.Release()
	return array.MakeFromData(data)
}

func rawValues(arr arrow.Array) any {
	switch a := arr.(type) {
	case *array.Int8:
		return a.Int8Values()
	case *array.Int16:
		return a.Int16Values()
	case *array.Int32:
		return a.Int32Values()
	case *array.Int64:
		return a.Int64Values()
	case *array.Uint8:
		return a.Uint8Values()
	case *array.Uint16:
		return a.Uint16Values()
	case *array.Uint32:
		return a.Uint32Values()
	case *array.Uint64:
		return a.Uint64Values()
	case *array.Float32:
		return a.Float32Values()
	case *array.Float64:
		return a.Float64Values()
	default:
		return nil
	}
}

// values returns the physical values of arr as []T. Null slots hold
// unspecified values.
func values[T Numeric](op string, arr arrow.Array) ([]T, error) {
	vals, ok := rawValues(arr).([]T)
	if !ok {
		return nil, errors.NewUnsupportedTypeError(op, "", arr.DataType().String())
	}
	return vals, nil
}

// IsNumeric reports whether dt's physical type is an integer or float type.
func IsNumeric(dt arrow.DataType) bool {
	switch PhysicalType(dt).ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		return true
	default:
		return false
	}
}
