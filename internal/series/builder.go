package series

import (
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/colcsv/internal/errors"
	"github.com/paveg/colcsv/internal/schema"
)

// Builder accumulates one column from text tokens. Values are applied in two
// steps: Stage parses a token into a pending slot and Commit appends the
// pending slot to the column. A row whose tokens do not all stage cleanly is
// abandoned by simply not committing, which leaves every column untouched.
type Builder interface {
	// Stage parses token into the pending slot. An empty token stages null.
	Stage(token string) error
	// Commit appends the pending slot.
	Commit()
	// AppendNull appends a null directly.
	AppendNull()
	// Len returns the number of committed values.
	Len() int
	// NewArray returns the committed values and resets the builder.
	NewArray() arrow.Array
	Release()
}

type arrowBuilder[T any] interface {
	Append(T)
	AppendNull()
	Len() int
	NewArray() arrow.Array
	Release()
}

type tokenBuilder[T any] struct {
	b       arrowBuilder[T]
	parse   func(string) (T, error)
	pending T
	null    bool
}

func (tb *tokenBuilder[T]) Stage(token string) error {
	if token == "" {
		tb.null = true
		return nil
	}
	v, err := tb.parse(token)
	if err != nil {
		return err
	}
	tb.pending = v
	tb.null = false
	return nil
}

func (tb *tokenBuilder[T]) Commit() {
	if tb.null {
		tb.b.AppendNull()
		return
	}
	tb.b.Append(tb.pending)
}

func (tb *tokenBuilder[T]) AppendNull()           { tb.b.AppendNull() }
func (tb *tokenBuilder[T]) Len() int              { return tb.b.Len() }
func (tb *tokenBuilder[T]) NewArray() arrow.Array { return tb.b.NewArray() }
func (tb *tokenBuilder[T]) Release()              { tb.b.Release() }

// NewBuilder returns a Builder producing arrays of dtype.
func NewBuilder(mem memory.Allocator, dtype arrow.DataType) (Builder, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	switch dt := dtype.(type) {
	case *arrow.Int32Type:
		return &tokenBuilder[int32]{b: array.NewInt32Builder(mem), parse: parseInt32}, nil
	case *arrow.Int64Type:
		return &tokenBuilder[int64]{b: array.NewInt64Builder(mem), parse: parseInt64}, nil
	case *arrow.Float32Type:
		return &tokenBuilder[float32]{b: array.NewFloat32Builder(mem), parse: parseFloat32}, nil
	case *arrow.Float64Type:
		return &tokenBuilder[float64]{b: array.NewFloat64Builder(mem), parse: parseFloat64}, nil
	case *arrow.StringType:
		return &tokenBuilder[string]{b: array.NewStringBuilder(mem), parse: parseString}, nil
	case *arrow.BooleanType:
		return &tokenBuilder[bool]{b: array.NewBooleanBuilder(mem), parse: parseBool}, nil
	case *arrow.Date32Type:
		return &tokenBuilder[arrow.Date32]{b: array.NewDate32Builder(mem), parse: parseDate32}, nil
	case *arrow.TimestampType:
		return &tokenBuilder[arrow.Timestamp]{
			b:     array.NewTimestampBuilder(mem, dt),
			parse: timestampParser(dt.Unit),
		}, nil
	default:
		return nil, errors.NewUnsupportedTypeError("NewBuilder", "", dtype.String())
	}
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, invalidToken(s, "int32")
	}
	return int32(v), nil
}

func parseInt64(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, invalidToken(s, "int64")
	}
	return v, nil
}

func parseFloat32(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, invalidToken(s, "float32")
	}
	return float32(v), nil
}

func parseFloat64(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, invalidToken(s, "float64")
	}
	return v, nil
}

func parseString(s string) (string, error) {
	return s, nil
}

func parseBool(s string) (bool, error) {
	v, ok := schema.ParseBool(s)
	if !ok {
		return false, invalidToken(s, "bool")
	}
	return v, nil
}

func parseDate32(s string) (arrow.Date32, error) {
	t, ok := schema.ParseDate(s)
	if !ok {
		return 0, invalidToken(s, "date32")
	}
	return arrow.Date32FromTime(t), nil
}

func timestampParser(unit arrow.TimeUnit) func(string) (arrow.Timestamp, error) {
	return func(s string) (arrow.Timestamp, error) {
		t, ok := schema.ParseTimestamp(s)
		if !ok {
			// Date-only tokens widen to midnight UTC
			if t, ok = schema.ParseDate(s); !ok {
				return 0, invalidToken(s, "timestamp")
			}
		}
		return toTimestamp(t, unit), nil
	}
}

func toTimestamp(t time.Time, unit arrow.TimeUnit) arrow.Timestamp {
	switch unit {
	case arrow.Second:
		return arrow.Timestamp(t.Unix())
	case arrow.Millisecond:
		return arrow.Timestamp(t.UnixMilli())
	case arrow.Nanosecond:
		return arrow.Timestamp(t.UnixNano())
	default:
		return arrow.Timestamp(t.UnixMicro())
	}
}

func invalidToken(s, typeName string) error {
	return fmt.Errorf("cannot parse %q as %s", s, typeName)
}
