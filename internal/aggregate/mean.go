package aggregate

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/scalar"

	"github.com/paveg/colcsv/internal/errors"
)

// Mean averages the non-null values of any numeric column as float64. It
// finalizes to a null scalar when no value was seen.
type Mean struct {
	sum   float64
	count uint64
}

// NewMean creates an empty Mean.
func NewMean() *Mean {
	return &Mean{}
}

func (m *Mean) Init() {
	m.sum, m.count = 0, 0
}

func (m *Mean) Update(col arrow.Array) error {
	phys := Physical(col)
	defer phys.Release()

	switch vals := rawValues(phys).(type) {
	case []int8:
		addMean(m, phys, vals)
	case []int16:
		addMean(m, phys, vals)
	case []int32:
		addMean(m, phys, vals)
	case []int64:
		addMean(m, phys, vals)
	case []uint8:
		addMean(m, phys, vals)
	case []uint16:
		addMean(m, phys, vals)
	case []uint32:
		addMean(m, phys, vals)
	case []uint64:
		addMean(m, phys, vals)
	case []float32:
		addMean(m, phys, vals)
	case []float64:
		addMean(m, phys, vals)
	default:
		return errors.NewUnsupportedTypeError("Mean.Update", "", col.DataType().String())
	}
	return nil
}

func addMean[T Numeric](m *Mean, arr arrow.Array, vals []T) {
	for i, v := range vals {
		if arr.IsValid(i) {
			m.sum += float64(v)
			m.count++
		}
	}
}

func (m *Mean) Combine(other *Mean) {
	m.sum += other.sum
	m.count += other.count
}

func (m *Mean) Finalize() scalar.Scalar {
	if m.count == 0 {
		return scalar.MakeNullScalar(arrow.PrimitiveTypes.Float64)
	}
	return scalar.NewFloat64Scalar(m.sum / float64(m.count))
}
