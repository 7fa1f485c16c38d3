package aggregate

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/scalar"
)

// Sum adds the non-null values of a column whose physical type is T. Nulls
// contribute zero. Integer sums wrap on overflow like T does and float sums
// accumulate in batch order without compensation.
type Sum[T Numeric] struct {
	total T
}

// NewSum creates a Sum at the additive identity.
func NewSum[T Numeric]() *Sum[T] {
	return &Sum[T]{}
}

func (s *Sum[T]) Init() {
	var zero T
	s.total = zero
}

func (s *Sum[T]) Update(col arrow.Array) error {
	phys := Physical(col)
	defer phys.Release()

	vals, err := values[T]("Sum.Update", phys)
	if err != nil {
		return err
	}

	var part T
	if phys.NullN() == 0 {
		for _, v := range vals {
			part += v
		}
	} else {
		for i, v := range vals {
			if phys.IsValid(i) {
				part += v
			}
		}
	}
	s.total += part
	return nil
}

func (s *Sum[T]) Combine(other *Sum[T]) {
	s.total += other.total
}

// Value returns the running total.
func (s *Sum[T]) Value() T {
	return s.total
}

func (s *Sum[T]) Finalize() scalar.Scalar {
	return scalarOf(s.total)
}
