package aggregate

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/paveg/colcsv/internal/errors"
)

// Func names an aggregate function.
type Func string

const (
	FuncCount    Func = "count"     // non-null values
	FuncCountAll Func = "count_all" // all rows
	FuncSum      Func = "sum"
	FuncMin      Func = "min"
	FuncMax      Func = "max"
	FuncMean     Func = "mean"
)

// Spec requests one aggregate over one column.
type Spec struct {
	Func   Func
	Column string
}

func (s Spec) String() string {
	return fmt.Sprintf("%s(%s)", s.Func, s.Column)
}

// ParseSpec parses "func(column)" or "func:column".
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	var fn, col string
	switch {
	case strings.HasSuffix(s, ")") && strings.Contains(s, "("):
		open := strings.Index(s, "(")
		fn, col = s[:open], s[open+1:len(s)-1]
	case strings.Contains(s, ":"):
		fn, col, _ = strings.Cut(s, ":")
	default:
		return Spec{}, errors.NewInvalidInputError("ParseSpec", fmt.Sprintf("expected func(column), got %q", s))
	}

	spec := Spec{Func: Func(strings.ToLower(strings.TrimSpace(fn))), Column: strings.TrimSpace(col)}
	if spec.Column == "" {
		return Spec{}, errors.NewInvalidInputError("ParseSpec", fmt.Sprintf("missing column in %q", s))
	}
	switch spec.Func {
	case FuncCount, FuncCountAll, FuncSum, FuncMin, FuncMax, FuncMean:
		return spec, nil
	default:
		return Spec{}, errors.NewInvalidInputError("ParseSpec", fmt.Sprintf("unknown aggregate %q", fn))
	}
}

// New instantiates the accumulator for spec over a column of type dtype.
// Numeric variants are instantiated for the column's physical type.
func New(spec Spec, dtype arrow.DataType) (Aggregator, error) {
	switch spec.Func {
	case FuncCount:
		return Erase(NewCount(false)), nil
	case FuncCountAll:
		return Erase(NewCount(true)), nil
	case FuncMean:
		if !IsNumeric(dtype) {
			return nil, errors.NewUnsupportedTypeError("aggregate "+spec.String(), spec.Column, dtype.String())
		}
		return Erase(NewMean()), nil
	case FuncSum, FuncMin, FuncMax:
		if agg := numeric(spec.Func, PhysicalType(dtype)); agg != nil {
			return agg, nil
		}
		return nil, errors.NewUnsupportedTypeError("aggregate "+spec.String(), spec.Column, dtype.String())
	default:
		return nil, errors.NewInvalidInputError("aggregate", fmt.Sprintf("unknown aggregate %q", spec.Func))
	}
}

func numeric(fn Func, phys arrow.DataType) Aggregator {
	switch phys.ID() {
	case arrow.INT8:
		return forType[int8](fn)
	case arrow.INT16:
		return forType[int16](fn)
	case arrow.INT32:
		return forType[int32](fn)
	case arrow.INT64:
		return forType[int64](fn)
	case arrow.UINT8:
		return forType[uint8](fn)
	case arrow.UINT16:
		return forType[uint16](fn)
	case arrow.UINT32:
		return forType[uint32](fn)
	case arrow.UINT64:
		return forType[uint64](fn)
	case arrow.FLOAT32:
		return forType[float32](fn)
	case arrow.FLOAT64:
		return forType[float64](fn)
	default:
		return nil
	}
}

func forType[T Numeric](fn Func) Aggregator {
	switch fn {
	case FuncSum:
		return Erase(NewSum[T]())
	case FuncMin:
		return Erase(NewMin[T]())
	case FuncMax:
		return Erase(NewMax[T]())
	default:
		return nil
	}
}
