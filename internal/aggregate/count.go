package aggregate

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/scalar"

	"github.com/paveg/colcsv/internal/errors"
)

// Count counts values, optionally including nulls.
type Count struct {
	includeNulls bool
	n            uint64
}

// NewCount creates a Count. With includeNulls every row is counted,
// otherwise only non-null values.
func NewCount(includeNulls bool) *Count {
	return &Count{includeNulls: includeNulls}
}

func (c *Count) Init() {
	c.n = 0
}

func (c *Count) Update(col arrow.Array) error {
	if c.includeNulls {
		c.n += uint64(col.Len())
	} else {
		c.n += uint64(col.Len() - col.NullN())
	}
	return nil
}

// Combine adds the count of other. It panics with an
// *errors.ContractViolation when only one side counts nulls.
func (c *Count) Combine(other *Count) {
	if c.includeNulls != other.includeNulls {
		panic(&errors.ContractViolation{Op: "Combine", Left: c.kind(), Right: other.kind()})
	}
	c.n += other.n
}

func (c *Count) kind() string {
	if c.includeNulls {
		return "count_all"
	}
	return "count"
}

// Value returns the current count.
func (c *Count) Value() uint64 {
	return c.n
}

func (c *Count) Finalize() scalar.Scalar {
	return scalar.NewUint64Scalar(c.n)
}
