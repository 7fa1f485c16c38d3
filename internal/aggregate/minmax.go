package aggregate

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/scalar"
)

// extreme tracks the running minimum or maximum of non-null values. NaN is
// never stored, so the result does not depend on arrival order.
type extreme[T Numeric] struct {
	val   T
	set   bool
	less  func(a, b T) bool
	label string
}

func (e *extreme[T]) init() {
	var zero T
	e.val, e.set = zero, false
}

func (e *extreme[T]) offer(v T) {
	if v != v { // NaN
		return
	}
	if !e.set || e.less(v, e.val) {
		e.val, e.set = v, true
	}
}

func (e *extreme[T]) update(col arrow.Array) error {
	phys := Physical(col)
	defer phys.Release()

	vals, err := values[T](e.label, phys)
	if err != nil {
		return err
	}
	for i, v := range vals {
		if phys.IsValid(i) {
			e.offer(v)
		}
	}
	return nil
}

func (e *extreme[T]) combine(other *extreme[T]) {
	if other.set {
		e.offer(other.val)
	}
}

func (e *extreme[T]) finalize() scalar.Scalar {
	if !e.set {
		return scalar.MakeNullScalar(arrowType[T]())
	}
	return scalarOf(e.val)
}

// Min keeps the smallest non-null value, skipping NaN. It finalizes to a
// null scalar when no such value was seen.
type Min[T Numeric] struct {
	e extreme[T]
}

// NewMin creates an empty Min.
func NewMin[T Numeric]() *Min[T] {
	return &Min[T]{e: extreme[T]{less: func(a, b T) bool { return a < b }, label: "Min.Update"}}
}

func (m *Min[T]) Init()                        { m.e.init() }
func (m *Min[T]) Update(col arrow.Array) error { return m.e.update(col) }
func (m *Min[T]) Combine(other *Min[T])        { m.e.combine(&other.e) }
func (m *Min[T]) Finalize() scalar.Scalar      { return m.e.finalize() }

// Max keeps the largest non-null value, skipping NaN. It finalizes to a
// null scalar when no such value was seen.
type Max[T Numeric] struct {
	e extreme[T]
}

// NewMax creates an empty Max.
func NewMax[T Numeric]() *Max[T] {
	return &Max[T]{e: extreme[T]{less: func(a, b T) bool { return a > b }, label: "Max.Update"}}
}

func (m *Max[T]) Init()                        { m.e.init() }
func (m *Max[T]) Update(col arrow.Array) error { return m.e.update(col) }
func (m *Max[T]) Combine(other *Max[T])        { m.e.combine(&other.e) }
func (m *Max[T]) Finalize() scalar.Scalar      { return m.e.finalize() }
