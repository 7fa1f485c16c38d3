package io

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/colcsv/internal/dataframe"
)

// Assemble stitches per-chunk batches into one DataFrame, in chunk index
// order. Each batch becomes one physical chunk of every column; with rechunk
// the columns are coalesced into a single array when more than one chunk
// exists. Assemble releases the input records.
func Assemble(schema *arrow.Schema, batches [][]arrow.Record, rechunk bool, mem memory.Allocator) (*dataframe.DataFrame, error) {
	var flat []arrow.Record
	for _, chunk := range batches {
		flat = append(flat, chunk...)
	}
	defer func() {
		for _, rec := range flat {
			rec.Release()
		}
	}()

	if len(flat) == 0 {
		return dataframe.Empty(schema), nil
	}

	df, err := dataframe.FromRecords(schema, flat)
	if err != nil {
		return nil, err
	}
	if !rechunk || df.NumChunks() <= 1 {
		return df, nil
	}

	defer df.Release()
	return df.Rechunk(mem)
}
