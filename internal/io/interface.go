// Package io reads delimited text into chunked Arrow DataFrames and writes
// DataFrames back as delimited text.
//
// A read runs in stages:
//   - the source is sampled once to infer the schema (or an explicit schema
//     and per-column overrides are used);
//   - the body is split into record-aligned chunks, one per worker;
//   - each chunk is parsed by its own ChunkReader into bounded batches;
//   - batches are assembled in chunk order, or folded straight into
//     aggregate states when only scalar results are wanted.
//
// Memory management: DataFrames and records are reference counted Arrow
// data and must be released by their owner.
package io

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/paveg/colcsv/internal/config"
	"github.com/paveg/colcsv/internal/dataframe"
	"github.com/paveg/colcsv/internal/logging"
	"github.com/paveg/colcsv/internal/monitoring"
)

// DataReader defines the interface for reading data from various sources
type DataReader interface {
	// Read reads data from the source and returns a DataFrame
	Read(ctx context.Context) (*dataframe.DataFrame, error)
}

// DataWriter defines the interface for writing data to various destinations
type DataWriter interface {
	// Write writes the DataFrame to the destination
	Write(df *dataframe.DataFrame) error
}

// CSVOptions is the complete, immutable configuration of one CSV read. It
// is validated once when the read starts.
type CSVOptions struct {
	config.Read

	// Schema fixes every column's name and type and disables inference.
	Schema *arrow.Schema
	// Overrides fixes the type of individual columns. They are merged with
	// the type names in Read.DTypes.
	Overrides map[string]arrow.DataType

	Allocator memory.Allocator
	Logger    *zap.Logger
	Metrics   *monitoring.MetricsCollector
}

// DefaultCSVOptions returns CSV options seeded from the global read
// configuration.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Read: config.GetGlobalConfig().Read}
}

func (o *CSVOptions) allocator() memory.Allocator {
	if o.Allocator == nil {
		return memory.DefaultAllocator
	}
	return o.Allocator
}

func (o *CSVOptions) logger() *zap.Logger {
	return logging.OrNop(o.Logger)
}

var (
	_ DataReader = (*CSVReader)(nil)
	_ DataWriter = (*CSVWriter)(nil)
)
