// Package dataframe provides an ordered collection of equally long,
// chunked columns backed by Apache Arrow.
package dataframe

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cespare/xxhash/v2"

	"github.com/paveg/colcsv/internal/errors"
	"github.com/paveg/colcsv/internal/series"
	"github.com/paveg/colcsv/internal/validation"
)

// DataFrame represents a table of data with typed columns
type DataFrame struct {
	columns map[string]*series.Series
	order   []string // Maintains column order
}

// New creates a DataFrame from series. On success the DataFrame takes
// ownership of the series. Names must be unique and lengths equal.
func New(columns ...*series.Series) (*DataFrame, error) {
	df := &DataFrame{
		columns: make(map[string]*series.Series, len(columns)),
		order:   make([]string, 0, len(columns)),
	}

	for _, s := range columns {
		if _, dup := df.columns[s.Name()]; dup {
			return nil, errors.NewInvalidInputError("New", fmt.Sprintf("duplicate column name %q", s.Name()))
		}
		if len(df.order) > 0 {
			if err := validation.ValidateLength(df.Len(), s.Len(), "New", s.Name()); err != nil {
				return nil, err
			}
		}
		df.columns[s.Name()] = s
		df.order = append(df.order, s.Name())
	}
	return df, nil
}

// Empty returns a DataFrame with the fields of sc and no rows.
func Empty(sc *arrow.Schema) *DataFrame {
	df := &DataFrame{columns: make(map[string]*series.Series, sc.NumFields())}
	for _, f := range sc.Fields() {
		df.columns[f.Name] = series.FromArrays(f.Name, f.Type, nil)
		df.order = append(df.order, f.Name)
	}
	return df
}

// FromRecords creates a DataFrame whose columns hold one chunk per record,
// in record order. Records must share sc. The DataFrame holds its own
// references.
func FromRecords(sc *arrow.Schema, records []arrow.Record) (*DataFrame, error) {
	for _, rec := range records {
		if !rec.Schema().Equal(sc) {
			return nil, errors.NewInvalidInputError("FromRecords", "record schema does not match")
		}
	}

	df := &DataFrame{columns: make(map[string]*series.Series, sc.NumFields())}
	for i, f := range sc.Fields() {
		chunks := make([]arrow.Array, 0, len(records))
		for _, rec := range records {
			chunks = append(chunks, rec.Column(i))
		}
		df.columns[f.Name] = series.FromArrays(f.Name, f.Type, chunks)
		df.order = append(df.order, f.Name)
	}
	return df, nil
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	return append([]string{}, df.order...)
}

// Len returns the number of rows
func (df *DataFrame) Len() int {
	if len(df.order) == 0 {
		return 0
	}
	return df.columns[df.order[0]].Len()
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.order)
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (*series.Series, bool) {
	s, exists := df.columns[name]
	return s, exists
}

// ColumnAt returns the i-th column.
func (df *DataFrame) ColumnAt(i int) *series.Series {
	return df.columns[df.order[i]]
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// Schema returns the Arrow schema of the DataFrame.
func (df *DataFrame) Schema() *arrow.Schema {
	fields := make([]arrow.Field, len(df.order))
	for i, name := range df.order {
		fields[i] = df.columns[name].Field()
	}
	return arrow.NewSchema(fields, nil)
}

// NumChunks returns the largest chunk count over all columns.
func (df *DataFrame) NumChunks() int {
	n := 0
	for _, s := range df.columns {
		n = max(n, s.NumChunks())
	}
	return n
}

// Select returns a new DataFrame with only the specified columns, in the
// requested order.
func (df *DataFrame) Select(names ...string) (*DataFrame, error) {
	if err := validation.ValidateColumns(df, "Select", names...); err != nil {
		return nil, err
	}
	selected := make([]*series.Series, 0, len(names))
	for _, name := range names {
		selected = append(selected, df.columns[name].Rename(name))
	}
	return newOwned(selected)
}

// Rechunk returns a DataFrame whose columns each hold a single chunk.
func (df *DataFrame) Rechunk(mem memory.Allocator) (*DataFrame, error) {
	out := make([]*series.Series, 0, len(df.order))
	for _, name := range df.order {
		s, err := df.columns[name].Rechunk(mem)
		if err != nil {
			releaseAll(out)
			return nil, err
		}
		out = append(out, s)
	}
	return newOwned(out)
}

func newOwned(columns []*series.Series) (*DataFrame, error) {
	df, err := New(columns...)
	if err != nil {
		releaseAll(columns)
		return nil, err
	}
	return df, nil
}

func releaseAll(columns []*series.Series) {
	for _, s := range columns {
		s.Release()
	}
}

// Slice creates a new DataFrame containing rows from start (inclusive) to
// end (exclusive). The range is clamped to the frame.
func (df *DataFrame) Slice(start, end int) *DataFrame {
	start = min(max(start, 0), df.Len())
	end = min(max(end, start), df.Len())

	out := &DataFrame{columns: make(map[string]*series.Series, len(df.order))}
	for _, name := range df.order {
		out.columns[name] = df.columns[name].Slice(int64(start), int64(end))
		out.order = append(out.order, name)
	}
	return out
}

// Concat appends the rows of others below df without copying: each column
// gains the other frames' chunks. All frames must share the schema.
func (df *DataFrame) Concat(others ...*DataFrame) (*DataFrame, error) {
	for _, other := range others {
		if !df.hasSameSchema(other) {
			return nil, errors.NewInvalidInputError("Concat", "schemas do not match")
		}
	}

	out := &DataFrame{columns: make(map[string]*series.Series, len(df.order))}
	for _, name := range df.order {
		chunks := append([]arrow.Array{}, df.columns[name].Chunks()...)
		for _, other := range others {
			chunks = append(chunks, other.columns[name].Chunks()...)
		}
		out.columns[name] = series.FromArrays(name, df.columns[name].DataType(), chunks)
		out.order = append(out.order, name)
	}
	return out, nil
}

func (df *DataFrame) hasSameSchema(other *DataFrame) bool {
	if len(df.order) != len(other.order) {
		return false
	}
	for i, name := range df.order {
		if other.order[i] != name {
			return false
		}
		if !arrow.TypeEqual(df.columns[name].DataType(), other.columns[name].DataType()) {
			return false
		}
	}
	return true
}

// Table returns the DataFrame as an Arrow table. The caller releases it.
func (df *DataFrame) Table() arrow.Table {
	sc := df.Schema()
	cols := make([]arrow.Column, len(df.order))
	for i, name := range df.order {
		cols[i] = *arrow.NewColumn(sc.Field(i), df.columns[name].Chunked())
	}
	tbl := array.NewTable(sc, cols, int64(df.Len()))
	for i := range cols {
		cols[i].Release()
	}
	return tbl
}

// Fingerprint hashes the schema and every value in row-major order. It
// depends on content only, so frames holding the same rows fingerprint
// equally regardless of how their columns are chunked.
func (df *DataFrame) Fingerprint() uint64 {
	h := xxhash.New()
	for _, name := range df.order {
		s := df.columns[name]
		_, _ = h.WriteString(name)
		_, _ = h.WriteString(s.DataType().String())
		_, _ = h.Write([]byte{0})
	}

	for row := 0; row < df.Len(); row++ {
		for _, name := range df.order {
			s := df.columns[name]
			if s.IsNull(row) {
				_, _ = h.Write([]byte{0xff})
				continue
			}
			_, _ = h.WriteString(s.Format(row, series.DefaultLayouts))
			_, _ = h.Write([]byte{0})
		}
	}
	return h.Sum64()
}

// Equal reports whether both frames hold the same columns and values.
func (df *DataFrame) Equal(other *DataFrame) bool {
	if !df.hasSameSchema(other) || df.Len() != other.Len() {
		return false
	}
	for _, name := range df.order {
		a, b := df.columns[name], other.columns[name]
		for row := 0; row < df.Len(); row++ {
			if a.IsNull(row) != b.IsNull(row) {
				return false
			}
			if a.Format(row, series.DefaultLayouts) != b.Format(row, series.DefaultLayouts) {
				return false
			}
		}
	}
	return true
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.order) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}
	for _, name := range df.order {
		s := df.columns[name]
		parts = append(parts, fmt.Sprintf("  %s: %s", name, s.DataType()))
	}
	return strings.Join(parts, "\n")
}

// Release releases all columns
func (df *DataFrame) Release() {
	for _, s := range df.columns {
		s.Release()
	}
}
