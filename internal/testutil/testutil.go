// Package testutil provides common testing utilities shared by the package
// tests:
// - Checked memory allocators that fail the test on leaks
// - Standard employee DataFrames and their CSV text
// - Common DataFrame assertions
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/colcsv/internal/dataframe"
	"github.com/paveg/colcsv/internal/series"
)

const (
	// defaultRowCount is the default number of rows in test DataFrames.
	defaultRowCount = 4
)

// TestMemoryContext provides a checked allocator that verifies every
// allocation was released.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release asserts that no memory is outstanding.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a checked memory allocator for tests.
// Returns a TestMemoryContext that should be released with defer.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	checked := memory.NewCheckedAllocator(memory.NewGoAllocator())

	return &TestMemoryContext{
		Allocator: checked,
		cleanup: func() {
			checked.AssertSize(tb, 0)
		},
	}
}

// TestDataFrameOption configures test DataFrame creation.
type TestDataFrameOption func(*testDataFrameConfig)

type testDataFrameConfig struct {
	includeNulls bool
	rowCount     int
	withActive   bool
}

// WithNulls makes every third salary null.
func WithNulls() TestDataFrameOption {
	return func(cfg *testDataFrameConfig) {
		cfg.includeNulls = true
	}
}

// WithRowCount sets the number of rows in test data.
func WithRowCount(count int) TestDataFrameOption {
	return func(cfg *testDataFrameConfig) {
		cfg.rowCount = count
	}
}

// WithActiveColumn includes an 'active' boolean column.
func WithActiveColumn() TestDataFrameOption {
	return func(cfg *testDataFrameConfig) {
		cfg.withActive = true
	}
}

func newConfig(opts []TestDataFrameOption) *testDataFrameConfig {
	cfg := &testDataFrameConfig{rowCount: defaultRowCount}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// CreateTestDataFrame creates a standard test DataFrame with employee data.
//
// Default DataFrame includes:
// - name (string): ["Alice", "Bob", "Charlie", "David"]
// - age (int64): [25, 30, 35, 28]
// - department (string): ["Engineering", "Sales", "Engineering", "Marketing"]
// - salary (float64): [100000.5, 80000.25, 120000, 75000.75]
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
//	df := testutil.CreateTestDataFrame(mem.Allocator)
//	defer df.Release()
func CreateTestDataFrame(allocator memory.Allocator, opts ...TestDataFrameOption) *dataframe.DataFrame {
	cfg := newConfig(opts)

	columns := []*series.Series{
		series.New("name", generateNames(cfg.rowCount), allocator),
		series.New("age", generateAges(cfg.rowCount), allocator),
		series.New("department", generateDepartments(cfg.rowCount), allocator),
		series.NewNullable("salary", generateSalaries(cfg.rowCount), salaryValidity(cfg), allocator),
	}
	if cfg.withActive {
		columns = append(columns, series.New("active", generateActiveFlags(cfg.rowCount), allocator))
	}

	df, err := dataframe.New(columns...)
	if err != nil {
		panic(err)
	}
	return df
}

// EmployeeCSV renders the rows of CreateTestDataFrame as CSV text with a
// header line. Null salaries are empty fields.
func EmployeeCSV(opts ...TestDataFrameOption) string {
	cfg := newConfig(opts)
	names := generateNames(cfg.rowCount)
	ages := generateAges(cfg.rowCount)
	departments := generateDepartments(cfg.rowCount)
	salaries := generateSalaries(cfg.rowCount)
	valid := salaryValidity(cfg)
	active := generateActiveFlags(cfg.rowCount)

	var sb strings.Builder
	sb.WriteString("name,age,department,salary")
	if cfg.withActive {
		sb.WriteString(",active")
	}
	sb.WriteByte('\n')
	for i := range cfg.rowCount {
		salary := ""
		if valid == nil || valid[i] {
			salary = fmt.Sprint(salaries[i])
		}
		fmt.Fprintf(&sb, "%s,%d,%s,%s", names[i], ages[i], departments[i], salary)
		if cfg.withActive {
			fmt.Fprintf(&sb, ",%t", active[i])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// CreateSimpleTestDataFrame creates a simple 2-column DataFrame for basic testing.
func CreateSimpleTestDataFrame(allocator memory.Allocator) *dataframe.DataFrame {
	df, err := dataframe.New(
		series.New("name", []string{"Alice", "Bob"}, allocator),
		series.New("age", []int64{25, 30}, allocator),
	)
	if err != nil {
		panic(err)
	}
	return df
}

// AssertDataFrameEqual compares schema, row order and values.
func AssertDataFrameEqual(t *testing.T, expected, actual *dataframe.DataFrame) {
	t.Helper()

	require.NotNil(t, expected, "expected DataFrame should not be nil")
	require.NotNil(t, actual, "actual DataFrame should not be nil")

	assert.Equal(t, expected.Len(), actual.Len(), "DataFrame lengths should match")
	assert.Equal(t, expected.Columns(), actual.Columns(), "DataFrame columns should match")
	assert.True(t, expected.Schema().Equal(actual.Schema()),
		"schemas should match:\n%s\n%s", expected.Schema(), actual.Schema())
	assert.True(t, expected.Equal(actual), "DataFrame values should match")
}

// AssertDataFrameHasColumns verifies that a DataFrame has the expected columns.
func AssertDataFrameHasColumns(t *testing.T, df *dataframe.DataFrame, expectedColumns []string) {
	t.Helper()

	require.NotNil(t, df, "DataFrame should not be nil")
	assert.Equal(t, expectedColumns, df.Columns(), "columns should match")
}

// AssertDataFrameNotEmpty verifies that a DataFrame is not empty.
func AssertDataFrameNotEmpty(t *testing.T, df *dataframe.DataFrame) {
	t.Helper()

	require.NotNil(t, df, "DataFrame should not be nil")
	assert.Positive(t, df.Len(), "DataFrame should not be empty")
	assert.Positive(t, df.Width(), "DataFrame should have columns")
}

// Helper functions for generating test data

func generateNames(count int) []string {
	baseNames := []string{"Alice", "Bob", "Charlie", "David", "Eve", "Frank", "Grace", "Henry"}
	names := make([]string, count)
	for i := range count {
		names[i] = baseNames[i%len(baseNames)]
	}
	return names
}

func generateAges(count int) []int64 {
	baseAges := []int64{25, 30, 35, 28, 32, 45, 29, 38}
	ages := make([]int64, count)
	for i := range count {
		ages[i] = baseAges[i%len(baseAges)]
	}
	return ages
}

func generateDepartments(count int) []string {
	baseDepts := []string{"Engineering", "Sales", "Engineering", "Marketing", "HR", "Finance", "Engineering", "Sales"}
	departments := make([]string, count)
	for i := range count {
		departments[i] = baseDepts[i%len(baseDepts)]
	}
	return departments
}

func generateSalaries(count int) []float64 {
	baseSalaries := []float64{100000.5, 80000.25, 120000, 75000.75, 90000, 110000.5, 95000, 85000.25}
	salaries := make([]float64, count)
	for i := range count {
		salaries[i] = baseSalaries[i%len(baseSalaries)]
	}
	return salaries
}

func salaryValidity(cfg *testDataFrameConfig) []bool {
	if !cfg.includeNulls {
		return nil
	}
	valid := make([]bool, cfg.rowCount)
	for i := range valid {
		valid[i] = i%3 != 1
	}
	return valid
}

func generateActiveFlags(count int) []bool {
	baseFlags := []bool{true, true, false, true, true, false, true, false}
	flags := make([]bool, count)
	for i := range count {
		flags[i] = baseFlags[i%len(baseFlags)]
	}
	return flags
}
