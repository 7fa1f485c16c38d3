// Package colcsv reads delimited text into typed, chunked Arrow columns and
// folds those columns into scalar aggregates. This package is the public
// API; the implementation lives under internal/.
//
// Reads are parallel internally and blocking from the caller's view:
//
//	df, err := colcsv.ReadCSVFile(ctx, "sales.csv", colcsv.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	defer df.Release()
//
// Aggregates can be computed in the same pass as parsing, without building
// the table:
//
//	sums, err := colcsv.Aggregate(ctx, src, opts, colcsv.Spec{Func: colcsv.Sum, Column: "amount"})
package colcsv

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/scalar"

	"github.com/paveg/colcsv/internal/aggregate"
	"github.com/paveg/colcsv/internal/config"
	"github.com/paveg/colcsv/internal/dataframe"
	colio "github.com/paveg/colcsv/internal/io"
)

type (
	// DataFrame is an ordered set of equally long, named Arrow columns.
	DataFrame = dataframe.DataFrame
	// Options configures one CSV read.
	Options = colio.CSVOptions
	// Config is the file/env configuration of the command line tool.
	Config = config.Config
	// WriteOptions configures CSV output.
	WriteOptions = config.Write
	// Source is a random-access byte source.
	Source = colio.Source
	// Spec requests one aggregate over one column.
	Spec = aggregate.Spec
)

// Aggregate functions accepted in a Spec.
const (
	Count    = aggregate.FuncCount
	CountAll = aggregate.FuncCountAll
	Sum      = aggregate.FuncSum
	Min      = aggregate.FuncMin
	Max      = aggregate.FuncMax
	Mean     = aggregate.FuncMean
)

// DefaultOptions returns the default read options.
func DefaultOptions() Options {
	return colio.DefaultCSVOptions()
}

// DefaultWriteOptions returns the write options of the global configuration.
func DefaultWriteOptions() WriteOptions {
	return config.GetGlobalConfig().Write
}

// LoadConfig loads a JSON or YAML configuration file over the defaults.
func LoadConfig(path string) (Config, error) {
	return config.LoadFromFile(path)
}

// OptionsFromConfig builds read options from a loaded configuration.
func OptionsFromConfig(cfg Config) Options {
	opts := DefaultOptions()
	opts.Read = cfg.Read
	return opts
}

// ParseSpec parses "func(column)" or "func:column".
func ParseSpec(s string) (Spec, error) {
	return aggregate.ParseSpec(s)
}

// NewBytesSource wraps an in-memory buffer.
func NewBytesSource(data []byte) Source {
	return colio.NewBytesSource(data)
}

// OpenFile opens path as a Source, memory-mapped where supported. The
// caller must Close it.
func OpenFile(path string) (Source, error) {
	return colio.OpenFile(path)
}

// ReadCSV parses src into a DataFrame. The caller owns the result and must
// Release it.
func ReadCSV(ctx context.Context, src Source, opts Options) (*DataFrame, error) {
	return colio.NewCSVReader(src, opts).Read(ctx)
}

// ReadCSVFile memory-maps path and parses it into a DataFrame.
func ReadCSVFile(ctx context.Context, path string, opts Options) (*DataFrame, error) {
	src, err := colio.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return ReadCSV(ctx, src, opts)
}

// ReadCSVFrom buffers r and parses it into a DataFrame.
func ReadCSVFrom(ctx context.Context, r io.ReadSeeker, opts Options) (*DataFrame, error) {
	src, err := colio.NewReaderSource(r)
	if err != nil {
		return nil, err
	}
	return ReadCSV(ctx, src, opts)
}

// Aggregate computes specs over src in a single parsing pass. Results are
// returned in the order of specs.
func Aggregate(ctx context.Context, src Source, opts Options, specs ...Spec) ([]scalar.Scalar, error) {
	return colio.NewCSVReader(src, opts).Aggregate(ctx, specs...)
}

// AggregateFile is Aggregate over a memory-mapped file.
func AggregateFile(ctx context.Context, path string, opts Options, specs ...Spec) ([]scalar.Scalar, error) {
	src, err := colio.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return Aggregate(ctx, src, opts, specs...)
}

// InferSchema returns the schema a read of src with opts would produce.
func InferSchema(ctx context.Context, src Source, opts Options) (*arrow.Schema, error) {
	return colio.NewCSVReader(src, opts).Schema(ctx)
}

// WriteCSV writes df to w as delimited text.
func WriteCSV(w io.Writer, df *DataFrame, opts WriteOptions) error {
	return colio.NewCSVWriter(w, opts).Write(df)
}

// WithDataFrame creates a DataFrame, runs fn on it and releases it.
//
//	err := colcsv.WithDataFrame(func() (*colcsv.DataFrame, error) {
//		return colcsv.ReadCSVFile(ctx, path, opts)
//	}, func(df *colcsv.DataFrame) error {
//		return colcsv.WriteCSV(os.Stdout, df, colcsv.DefaultWriteOptions())
//	})
func WithDataFrame(factory func() (*DataFrame, error), fn func(*DataFrame) error) error {
	df, err := factory()
	if err != nil {
		return err
	}
	defer df.Release()
	return fn(df)
}
