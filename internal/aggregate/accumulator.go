// Package aggregate implements partial aggregate states that fold column
// batches incrementally and merge associatively across workers.
//
// Every accumulator follows the same four-step lifecycle:
//
//	Init      reset to the identity element
//	Update    fold one column of one batch, repeatable
//	Combine   absorb another state of the same kind
//	Finalize  produce an immutable, kind-tagged scalar
//
// Accumulator[A] is self-typed: Combine accepts only the concrete type A, so
// merging different kinds does not compile. Aggregator erases the type for
// aggregates chosen at run time; merging mismatched kinds through it panics
// with *errors.ContractViolation.
//
// Accumulators are not safe for concurrent use. Each instance belongs to one
// goroutine until it is handed to a merge.
package aggregate

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"golang.org/x/exp/constraints"
)

// Accumulator is the contract shared by every aggregate variant.
type Accumulator[A any] interface {
	Init()
	Update(col arrow.Array) error
	Combine(other A)
	Finalize() scalar.Scalar
}

// Numeric is the set of physical value types numeric accumulators accept.
type Numeric interface {
	constraints.Integer | constraints.Float
}

func arrowType[T Numeric]() arrow.DataType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return arrow.PrimitiveTypes.Int8
	case int16:
		return arrow.PrimitiveTypes.Int16
	case int32:
		return arrow.PrimitiveTypes.Int32
	case int64:
		return arrow.PrimitiveTypes.Int64
	case uint8:
		return arrow.PrimitiveTypes.Uint8
	case uint16:
		return arrow.PrimitiveTypes.Uint16
	case uint32:
		return arrow.PrimitiveTypes.Uint32
	case uint64:
		return arrow.PrimitiveTypes.Uint64
	case float32:
		return arrow.PrimitiveTypes.Float32
	case float64:
		return arrow.PrimitiveTypes.Float64
	default:
		return nil
	}
}

func scalarOf[T Numeric](v T) scalar.Scalar {
	switch x := any(v).(type) {
	case int8:
		return scalar.NewInt8Scalar(x)
	case int16:
		return scalar.NewInt16Scalar(x)
	case int32:
		return scalar.NewInt32Scalar(x)
	case int64:
		return scalar.NewInt64Scalar(x)
	case uint8:
		return scalar.NewUint8Scalar(x)
	case uint16:
		return scalar.NewUint16Scalar(x)
	case uint32:
		return scalar.NewUint32Scalar(x)
	case uint64:
		return scalar.NewUint64Scalar(x)
	case float32:
		return scalar.NewFloat32Scalar(x)
	case float64:
		return scalar.NewFloat64Scalar(x)
	default:
		return scalar.MakeScalar(v)
	}
}
