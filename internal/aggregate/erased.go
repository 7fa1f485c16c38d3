package aggregate

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/scalar"

	"github.com/paveg/colcsv/internal/errors"
)

// Aggregator is an accumulator whose concrete kind is only known at run
// time.
type Aggregator interface {
	Init()
	Update(col arrow.Array) error
	// Merge absorbs other, which must wrap the same concrete accumulator
	// type. A mismatch panics with *errors.ContractViolation.
	Merge(other Aggregator)
	Finalize() scalar.Scalar
	// Unwrap returns the wrapped accumulator.
	Unwrap() any
}

type erased[A Accumulator[A]] struct {
	acc A
}

// Erase wraps acc as an Aggregator.
func Erase[A Accumulator[A]](acc A) Aggregator {
	return &erased[A]{acc: acc}
}

func (e *erased[A]) Init()                        { e.acc.Init() }
func (e *erased[A]) Update(col arrow.Array) error { return e.acc.Update(col) }
func (e *erased[A]) Finalize() scalar.Scalar      { return e.acc.Finalize() }
func (e *erased[A]) Unwrap() any                  { return e.acc }

func (e *erased[A]) Merge(other Aggregator) {
	o, ok := other.(*erased[A])
	if !ok {
		var right any = other
		if other != nil {
			right = other.Unwrap()
		}
		panic(errors.NewContractViolation("Merge", e.acc, right))
	}
	e.acc.Combine(o.acc)
}
