package io

import (
	"bytes"
	"context"

	"github.com/paveg/colcsv/internal/parallel"
)

const quoteChar = '"'

// Chunk is a record-aligned byte range [Start, End) of a source.
type Chunk struct {
	Index     int
	Start     int
	End       int
	FirstLine int // 1-based physical line of Start in the source
}

// Len returns the chunk size in bytes.
func (c Chunk) Len() int {
	return c.End - c.Start
}

func countLines(b []byte) int {
	return bytes.Count(b, []byte{'\n'})
}

func indexNewline(b []byte) int {
	return bytes.IndexByte(b, '\n')
}

// segmentStats describes one segment of the pre-pass: its line terminators
// and the framing state it leaves for every state it may start in.
type segmentStats struct {
	lines int
	trans [numFrameStates]frameState
}

// SplitChunks partitions data[start:] into at most n record-aligned chunks.
//
// Candidate boundaries are evenly spaced. A concurrent pre-pass runs the
// framing automaton of delim over each segment from every possible start
// state, so composing the segments in order yields the exact tokenizer
// state and line number at every candidate; each boundary then moves
// forward to the next line terminator that ends a record. Chunks cover
// data[start:] without gap or overlap, and each starts where a sequential
// encoding/csv reader would start a record. Empty chunks are dropped, so
// small inputs yield fewer than n. startLine is the 1-based line number of
// data[start], which must itself start a record.
func SplitChunks(ctx context.Context, data []byte, start, startLine, n int, delim byte) ([]Chunk, error) {
	size := len(data) - start
	if size <= 0 {
		return nil, nil
	}
	n = max(1, min(n, size))

	segStart := func(i int) int { return start + i*size/n }
	segments := make([]int, n)
	for i := range segments {
		segments[i] = i
	}

	f := newFramer(delim)
	stats, err := parallel.ProcessIndexed(ctx, parallel.NewWorkerPool(n), segments,
		func(_ context.Context, _ int, i int) (segmentStats, error) {
			seg := data[segStart(i):segStart(i+1)]
			return segmentStats{lines: countLines(seg), trans: f.transitions(seg)}, nil
		})
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, 0, n)
	prev, prevLine := start, startLine
	state, lines := fieldStart, 0
	for i := 1; i <= n; i++ {
		end, endLine := len(data), 0
		if i < n {
			state = stats[i-1].trans[state]
			lines += stats[i-1].lines
			candidate := segStart(i)
			end = f.recordEnd(data, candidate, state)
			endLine = startLine + lines + countLines(data[candidate:end])
		}
		if end > prev {
			chunks = append(chunks, Chunk{Index: len(chunks), Start: prev, End: end, FirstLine: prevLine})
			prev, prevLine = end, endLine
		}
	}
	return chunks, nil
}
