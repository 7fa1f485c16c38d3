// Package series provides named, chunked Arrow columns.
package series

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/colcsv/internal/errors"
)

// Value is the set of Go types New accepts.
type Value interface {
	string | int32 | int64 | float32 | float64 | bool
}

// Series is a named column made of one or more Arrow arrays of the same type.
type Series struct {
	name string
	data *arrow.Chunked
}

// New creates a single-chunk Series from a slice of values.
func New[T Value](name string, values []T, mem memory.Allocator) *Series {
	return NewNullable(name, values, nil, mem)
}

// NewNullable creates a single-chunk Series where valid[i] == false marks
// values[i] as null. A nil valid slice means no nulls.
func NewNullable[T Value](name string, values []T, valid []bool, mem memory.Allocator) *Series {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	var arr arrow.Array
	switch v := any(values).(type) {
	case []string:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		arr = b.NewArray()
	case []int32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		arr = b.NewArray()
	case []int64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		arr = b.NewArray()
	case []float32:
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		arr = b.NewArray()
	case []float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		arr = b.NewArray()
	case []bool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		arr = b.NewArray()
	default:
		panic(fmt.Sprintf("unsupported type: %T", values))
	}
	defer arr.Release()

	return FromArrays(name, arr.DataType(), []arrow.Array{arr})
}

// FromArrays creates a Series over chunks. The Series holds its own
// references, so callers still release their arrays.
func FromArrays(name string, dtype arrow.DataType, chunks []arrow.Array) *Series {
	return &Series{name: name, data: arrow.NewChunked(dtype, chunks)}
}

// FromChunked creates a Series that takes ownership of data.
func FromChunked(name string, data *arrow.Chunked) *Series {
	return &Series{name: name, data: data}
}

// Name returns the column name
func (s *Series) Name() string {
	return s.name
}

// Len returns the number of values across all chunks
func (s *Series) Len() int {
	return s.data.Len()
}

// NullN returns the number of null values
func (s *Series) NullN() int {
	return s.data.NullN()
}

// DataType returns the Arrow data type
func (s *Series) DataType() arrow.DataType {
	return s.data.DataType()
}

// Field returns the Arrow field describing the column.
func (s *Series) Field() arrow.Field {
	return arrow.Field{Name: s.name, Type: s.DataType(), Nullable: true}
}

// NumChunks returns the number of underlying arrays
func (s *Series) NumChunks() int {
	return len(s.data.Chunks())
}

// Chunks returns the underlying arrays without retaining them.
func (s *Series) Chunks() []arrow.Array {
	return s.data.Chunks()
}

// Chunked returns the underlying chunked array without retaining it.
func (s *Series) Chunked() *arrow.Chunked {
	return s.data
}

// Rename returns a Series sharing the same data under a new name.
func (s *Series) Rename(name string) *Series {
	s.data.Retain()
	return &Series{name: name, data: s.data}
}

// Rechunk returns a Series holding the same values in a single chunk.
func (s *Series) Rechunk(mem memory.Allocator) (*Series, error) {
	chunks := s.data.Chunks()
	if len(chunks) == 1 {
		return s.Rename(s.name), nil
	}
	if len(chunks) == 0 {
		return FromArrays(s.name, s.DataType(), nil), nil
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	arr, err := array.Concatenate(chunks, mem)
	if err != nil {
		return nil, &errors.DataFrameError{
			Op:      "Rechunk",
			Column:  s.name,
			Message: "failed to concatenate chunks",
			Cause:   err,
		}
	}
	defer arr.Release()
	return FromArrays(s.name, s.DataType(), []arrow.Array{arr}), nil
}

// Slice returns rows [i, j) as a new Series sharing memory with s.
func (s *Series) Slice(i, j int64) *Series {
	return &Series{name: s.name, data: array.NewChunkedSlice(s.data, i, j)}
}

// IsNull reports whether the value at row index is null.
func (s *Series) IsNull(index int) bool {
	arr, off := s.locate(index)
	return arr.IsNull(off)
}

// Value returns the value at row index as a Go value, or nil when null.
// Temporal values are returned as time.Time.
func (s *Series) Value(index int) any {
	arr, off := s.locate(index)
	return GoValue(arr, off)
}

// Format renders the value at row index with layouts. Nulls render as "".
func (s *Series) Format(index int, layouts Layouts) string {
	arr, off := s.locate(index)
	return Format(arr, off, layouts)
}

func (s *Series) locate(index int) (arrow.Array, int) {
	if index < 0 || index >= s.Len() {
		panic(fmt.Sprintf("series %s: index %d out of range [0, %d)", s.name, index, s.Len()))
	}
	for _, chunk := range s.data.Chunks() {
		if index < chunk.Len() {
			return chunk, index
		}
		index -= chunk.Len()
	}
	panic("unreachable")
}

// String returns a string representation of the series
func (s *Series) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d, chunks=%d)", s.DataType(), s.name, s.Len(), s.NumChunks())
}

// Release releases the underlying Arrow memory
func (s *Series) Release() {
	if s.data != nil {
		s.data.Release()
	}
}
