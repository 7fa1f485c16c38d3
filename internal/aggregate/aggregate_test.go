package aggregate_test

import (
	"math"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/colcsv/internal/aggregate"
	"github.com/paveg/colcsv/internal/errors"
	"github.com/paveg/colcsv/internal/parallel"
)

func int64Array(t *testing.T, mem memory.Allocator, values []int64, valid []bool) arrow.Array {
	t.Helper()
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewArray()
}

func float64Array(t *testing.T, mem memory.Allocator, values []float64, valid []bool) arrow.Array {
	t.Helper()
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewArray()
}

// partialSums accumulates each group into its own Sum.
func partialSums(t *testing.T, mem memory.Allocator, groups [][]int64) []*aggregate.Sum[int64] {
	t.Helper()
	parts := make([]*aggregate.Sum[int64], len(groups))
	for i, g := range groups {
		arr := int64Array(t, mem, g, nil)
		parts[i] = aggregate.NewSum[int64]()
		require.NoError(t, parts[i].Update(arr))
		arr.Release()
	}
	return parts
}

func TestSum_MergeOrderIndependent(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	groups := [][]int64{{1, 2}, {3}, {4, 5}}
	orders := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

	for _, order := range orders {
		parts := partialSums(t, mem, groups)
		ordered := make([]*aggregate.Sum[int64], len(order))
		for i, idx := range order {
			ordered[i] = parts[idx]
		}

		merged := aggregate.Merge(ordered...)
		assert.Equal(t, int64(15), merged.Value(), "order %v", order)
	}

	// Grouping differs from the left fold: (a + (b + c))
	parts := partialSums(t, mem, groups)
	parts[1].Combine(parts[2])
	parts[0].Combine(parts[1])
	assert.Equal(t, int64(15), parts[0].Value())

	tree := aggregate.MergeTree(parallel.NewWorkerPool(2), partialSums(t, mem, groups)...)
	assert.Equal(t, int64(15), tree.Value())

	single := partialSums(t, mem, [][]int64{{1, 2, 3, 4, 5}})[0]
	assert.Equal(t, single.Finalize(), aggregate.Merge(partialSums(t, mem, groups)...).Finalize())
}

func TestSum_Nulls(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	arr := float64Array(t, mem, []float64{1.5, 100, 2.5}, []bool{true, false, true})
	defer arr.Release()

	s := aggregate.NewSum[float64]()
	require.NoError(t, s.Update(arr))
	require.NoError(t, s.Update(arr))
	assert.Equal(t, 8.0, s.Value())

	result := s.Finalize()
	assert.Equal(t, arrow.FLOAT64, result.DataType().ID())
	assert.Equal(t, 8.0, result.(*scalar.Float64).Value)

	s.Init()
	assert.Equal(t, 0.0, s.Value())
}

func TestSum_TypeMismatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	arr := int64Array(t, mem, []int64{1}, nil)
	defer arr.Release()

	s := aggregate.NewSum[float64]()
	var dfErr *errors.DataFrameError
	assert.ErrorAs(t, s.Update(arr), &dfErr)
}

func TestSum_Temporal(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	b := array.NewDate32Builder(mem)
	b.AppendValues([]arrow.Date32{10, 20, 30}, []bool{true, true, false})
	arr := b.NewArray()
	b.Release()
	defer arr.Release()

	s := aggregate.NewSum[int32]()
	require.NoError(t, s.Update(arr))
	assert.Equal(t, int32(30), s.Value())
	assert.Equal(t, arrow.INT32, s.Finalize().DataType().ID())
}

func TestSum_IntegerOverflowWraps(t *testing.T) {
	b := array.NewInt8Builder(memory.DefaultAllocator)
	b.AppendValues([]int8{127, 1}, nil)
	arr := b.NewArray()
	b.Release()
	defer arr.Release()

	s := aggregate.NewSum[int8]()
	require.NoError(t, s.Update(arr))
	assert.Equal(t, int8(-128), s.Value())
}

func TestCount_Nulls(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	arr := int64Array(t, mem, []int64{1, 0, 3, 0, 5}, []bool{true, false, true, false, true})
	defer arr.Release()

	tests := []struct {
		name         string
		includeNulls bool
		expected     uint64
	}{
		{"exclude nulls", false, 3},
		{"include nulls", true, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := aggregate.NewCount(tt.includeNulls)
			require.NoError(t, c.Update(arr))
			assert.Equal(t, tt.expected, c.Value())

			result := c.Finalize()
			assert.Equal(t, arrow.UINT64, result.DataType().ID())
			assert.Equal(t, tt.expected, result.(*scalar.Uint64).Value)
		})
	}
}

func TestCount_Combine(t *testing.T) {
	arr := int64Array(t, memory.DefaultAllocator, []int64{1, 2}, nil)
	defer arr.Release()

	parts := make([]*aggregate.Count, 4)
	for i := range parts {
		parts[i] = aggregate.NewCount(true)
		require.NoError(t, parts[i].Update(arr))
	}
	assert.Equal(t, uint64(8), aggregate.MergeTree(nil, parts...).Value())
}

func TestMinMax(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	left := int64Array(t, mem, []int64{4, -9, 7}, []bool{true, false, true})
	right := int64Array(t, mem, []int64{2, 11}, nil)
	defer left.Release()
	defer right.Release()

	minL, minR := aggregate.NewMin[int64](), aggregate.NewMin[int64]()
	maxL, maxR := aggregate.NewMax[int64](), aggregate.NewMax[int64]()
	require.NoError(t, minL.Update(left))
	require.NoError(t, minR.Update(right))
	require.NoError(t, maxL.Update(left))
	require.NoError(t, maxR.Update(right))

	minR.Combine(minL)
	maxL.Combine(maxR)
	assert.Equal(t, int64(2), minR.Finalize().(*scalar.Int64).Value)
	assert.Equal(t, int64(11), maxL.Finalize().(*scalar.Int64).Value)

	empty := aggregate.NewMin[float64]()
	result := empty.Finalize()
	assert.False(t, result.IsValid())
	assert.Equal(t, arrow.FLOAT64, result.DataType().ID())
}

func TestMinMax_NaNIgnoresOrder(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	nan := math.NaN()
	orders := [][]float64{{nan, 1.5}, {1.5, nan}, {nan, 1.5, nan}}
	for _, values := range orders {
		arr := float64Array(t, mem, values, nil)
		lo, hi := aggregate.NewMin[float64](), aggregate.NewMax[float64]()
		require.NoError(t, lo.Update(arr))
		require.NoError(t, hi.Update(arr))
		arr.Release()

		assert.Equal(t, 1.5, lo.Finalize().(*scalar.Float64).Value, "min over %v", values)
		assert.Equal(t, 1.5, hi.Finalize().(*scalar.Float64).Value, "max over %v", values)
	}

	t.Run("combine", func(t *testing.T) {
		nans := float64Array(t, mem, []float64{nan}, nil)
		ones := float64Array(t, mem, []float64{1.5}, nil)
		defer nans.Release()
		defer ones.Release()

		partials := func() (*aggregate.Min[float64], *aggregate.Min[float64]) {
			a, b := aggregate.NewMin[float64](), aggregate.NewMin[float64]()
			require.NoError(t, a.Update(nans))
			require.NoError(t, b.Update(ones))
			return a, b
		}
		a, b := partials()
		a.Combine(b)
		c, d := partials()
		d.Combine(c)
		assert.Equal(t, 1.5, a.Finalize().(*scalar.Float64).Value)
		assert.Equal(t, a.Finalize().(*scalar.Float64).Value, d.Finalize().(*scalar.Float64).Value)
	})

	t.Run("all NaN", func(t *testing.T) {
		arr := float64Array(t, mem, []float64{nan, nan}, nil)
		defer arr.Release()
		hi := aggregate.NewMax[float64]()
		require.NoError(t, hi.Update(arr))
		assert.False(t, hi.Finalize().IsValid())
	})
}

func TestMean(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	ints := int64Array(t, mem, []int64{1, 2, 0}, []bool{true, true, false})
	floats := float64Array(t, mem, []float64{6}, nil)
	defer ints.Release()
	defer floats.Release()

	a, b := aggregate.NewMean(), aggregate.NewMean()
	require.NoError(t, a.Update(ints))
	require.NoError(t, b.Update(floats))
	a.Combine(b)
	assert.Equal(t, 3.0, a.Finalize().(*scalar.Float64).Value)

	assert.False(t, aggregate.NewMean().Finalize().IsValid())
}

func TestErased_MergeMismatchPanics(t *testing.T) {
	sum := aggregate.Erase(aggregate.NewSum[int64]())
	count := aggregate.Erase(aggregate.NewCount(false))

	defer func() {
		r := recover()
		require.NotNil(t, r)
		cv, ok := r.(*errors.ContractViolation)
		require.True(t, ok, "panic value %T", r)
		assert.Equal(t, "Merge", cv.Op)
		assert.Contains(t, cv.Error(), "Sum[int64]")
		assert.Contains(t, cv.Error(), "Count")
	}()
	sum.Merge(count)
}

func TestErased_CountKindMismatchPanics(t *testing.T) {
	count := aggregate.Erase(aggregate.NewCount(false))
	countAll := aggregate.Erase(aggregate.NewCount(true))

	defer func() {
		r := recover()
		require.NotNil(t, r)
		cv, ok := r.(*errors.ContractViolation)
		require.True(t, ok, "panic value %T", r)
		assert.Equal(t, "Combine", cv.Op)
		assert.Equal(t, "count", cv.Left)
		assert.Equal(t, "count_all", cv.Right)
	}()
	count.Merge(countAll)
}

func TestErased_NumericKindMismatchPanics(t *testing.T) {
	ints := aggregate.Erase(aggregate.NewSum[int64]())
	floats := aggregate.Erase(aggregate.NewSum[float64]())
	assert.Panics(t, func() { ints.Merge(floats) })
}

func TestMergeAll(t *testing.T) {
	arr := int64Array(t, memory.DefaultAllocator, []int64{1, 2, 3}, nil)
	defer arr.Release()

	parts := make([]aggregate.Aggregator, 3)
	for i := range parts {
		agg, err := aggregate.New(aggregate.Spec{Func: aggregate.FuncSum, Column: "x"}, arr.DataType())
		require.NoError(t, err)
		require.NoError(t, agg.Update(arr))
		parts[i] = agg
	}

	merged := aggregate.MergeAll(parts...)
	assert.Equal(t, int64(18), merged.Finalize().(*scalar.Int64).Value)
	assert.Nil(t, aggregate.MergeAll())
}

func TestMergeAllTree(t *testing.T) {
	arr := int64Array(t, memory.DefaultAllocator, []int64{4, 1, 9}, nil)
	defer arr.Release()

	parts := make([]aggregate.Aggregator, 5)
	for i := range parts {
		agg, err := aggregate.New(aggregate.Spec{Func: aggregate.FuncMin, Column: "x"}, arr.DataType())
		require.NoError(t, err)
		if i != 2 {
			require.NoError(t, agg.Update(arr))
		}
		parts[i] = agg
	}

	merged := aggregate.MergeAllTree(parallel.NewWorkerPool(2), parts...)
	assert.Equal(t, int64(1), merged.Finalize().(*scalar.Int64).Value)
	assert.Nil(t, aggregate.MergeAllTree(nil))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		spec     aggregate.Spec
		dtype    arrow.DataType
		expected string
		wantErr  bool
	}{
		{"count any type", aggregate.Spec{Func: aggregate.FuncCount, Column: "s"}, arrow.BinaryTypes.String, "*aggregate.Count", false},
		{"sum int32", aggregate.Spec{Func: aggregate.FuncSum, Column: "i"}, arrow.PrimitiveTypes.Int32, "*aggregate.Sum[int32]", false},
		{"sum timestamp", aggregate.Spec{Func: aggregate.FuncSum, Column: "t"}, &arrow.TimestampType{Unit: arrow.Microsecond}, "*aggregate.Sum[int64]", false},
		{"max float32", aggregate.Spec{Func: aggregate.FuncMax, Column: "f"}, arrow.PrimitiveTypes.Float32, "*aggregate.Max[float32]", false},
		{"mean uint16", aggregate.Spec{Func: aggregate.FuncMean, Column: "u"}, arrow.PrimitiveTypes.Uint16, "*aggregate.Mean", false},
		{"sum string", aggregate.Spec{Func: aggregate.FuncSum, Column: "s"}, arrow.BinaryTypes.String, "", true},
		{"mean bool", aggregate.Spec{Func: aggregate.FuncMean, Column: "b"}, arrow.FixedWidthTypes.Boolean, "", true},
		{"unknown", aggregate.Spec{Func: "median", Column: "x"}, arrow.PrimitiveTypes.Int64, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, err := aggregate.New(tt.spec, tt.dtype)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, typeName(agg.Unwrap()))
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *aggregate.Count:
		return "*aggregate.Count"
	case *aggregate.Sum[int32]:
		return "*aggregate.Sum[int32]"
	case *aggregate.Sum[int64]:
		return "*aggregate.Sum[int64]"
	case *aggregate.Max[float32]:
		return "*aggregate.Max[float32]"
	case *aggregate.Mean:
		return "*aggregate.Mean"
	default:
		return "unknown"
	}
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		input    string
		expected aggregate.Spec
		wantErr  bool
	}{
		{"sum(price)", aggregate.Spec{Func: aggregate.FuncSum, Column: "price"}, false},
		{"COUNT_ALL( id )", aggregate.Spec{Func: aggregate.FuncCountAll, Column: "id"}, false},
		{"mean:score", aggregate.Spec{Func: aggregate.FuncMean, Column: "score"}, false},
		{"sum()", aggregate.Spec{}, true},
		{"median(x)", aggregate.Spec{}, true},
		{"price", aggregate.Spec{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := aggregate.ParseSpec(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, string(got.Func)+"("+got.Column+")", got.String())
		})
	}
}

func TestPhysical(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	b := array.NewTimestampBuilder(mem, &arrow.TimestampType{Unit: arrow.Second})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.AppendValues([]arrow.Timestamp{arrow.Timestamp(at.Unix()), 0}, []bool{true, false})
	arr := b.NewArray()
	b.Release()
	defer arr.Release()

	sliced := array.NewSlice(arr, 0, 1)
	defer sliced.Release()

	phys := aggregate.Physical(sliced)
	defer phys.Release()

	ints, ok := phys.(*array.Int64)
	require.True(t, ok)
	assert.Equal(t, 1, ints.Len())
	assert.Equal(t, at.Unix(), ints.Value(0))
	assert.True(t, aggregate.IsNumeric(arr.DataType()))
	assert.False(t, aggregate.IsNumeric(arrow.BinaryTypes.String))
}
