package io

import (
	"bytes"
	"encoding/csv"
	stderrors "errors"
	"io"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/paveg/colcsv/internal/errors"
	"github.com/paveg/colcsv/internal/logging"
	"github.com/paveg/colcsv/internal/series"
)

// parseSettings are the per-chunk knobs shared by every ChunkReader of one
// read.
type parseSettings struct {
	delimiter    rune
	batchSize    int
	ignoreErrors bool
	lossy        bool
	rowLimit     int // 0 = unlimited
	mem          memory.Allocator
	log          *zap.Logger
}

// ChunkReader lazily parses one chunk into record batches of at most
// batchSize rows. Only projected columns are materialized. A ChunkReader is
// owned by a single goroutine.
type ChunkReader struct {
	source   []byte
	chunk    Chunk
	width    int   // fields per record in the source
	proj     []int // source column of each output column
	schema   *arrow.Schema
	settings parseSettings
	framer   *framer

	data     []byte // decoded chunk bytes
	prepared bool
	csv      *csv.Reader
	builders []series.Builder
	rec      arrow.Record
	err      error
	done     bool
	rows     int
	dropped  int
	batches  int
}

// newChunkReader creates a reader over source[chunk.Start:chunk.End].
// schema describes the output columns and proj maps each of them to its
// field index in records of width fields.
func newChunkReader(source []byte, chunk Chunk, width int, proj []int, schema *arrow.Schema, settings parseSettings) *ChunkReader {
	settings.log = logging.OrNop(settings.log)
	return &ChunkReader{
		source:   source,
		chunk:    chunk,
		width:    width,
		proj:     proj,
		schema:   schema,
		settings: settings,
		framer:   newFramer(byte(settings.delimiter)),
	}
}

func (r *ChunkReader) prepare() error {
	raw := r.source[r.chunk.Start:r.chunk.End]
	if utf8.Valid(raw) {
		r.data = raw
	} else if r.settings.lossy {
		r.data, _, _ = transform.Bytes(runes.ReplaceIllFormed(), raw)
	} else {
		off := invalidUTF8Offset(raw)
		return &errors.EncodingError{
			Line:   r.chunk.FirstLine + bytes.Count(raw[:off], []byte{'\n'}),
			Offset: int64(r.chunk.Start + off),
		}
	}

	r.builders = make([]series.Builder, len(r.proj))
	for i, f := range r.schema.Fields() {
		b, err := series.NewBuilder(r.settings.mem, f.Type)
		if err != nil {
			r.releaseBuilders()
			return err
		}
		r.builders[i] = b
	}
	r.rewind()
	r.prepared = true
	return nil
}

func invalidUTF8Offset(b []byte) int {
	for off := 0; off < len(b); {
		c, size := utf8.DecodeRune(b[off:])
		if c == utf8.RuneError && size <= 1 {
			return off
		}
		off += size
	}
	return len(b)
}

func (r *ChunkReader) rewind() {
	cr := csv.NewReader(bytes.NewReader(r.data))
	cr.Comma = r.settings.delimiter
	cr.FieldsPerRecord = r.width
	cr.ReuseRecord = true
	r.csv = cr
}

// Next parses the next batch. It returns false at the end of the chunk or
// on error; Err distinguishes the two. The previous Record is released.
func (r *ChunkReader) Next() bool {
	if r.rec != nil {
		r.rec.Release()
		r.rec = nil
	}
	if r.done || r.err != nil {
		return false
	}
	if !r.prepared {
		if err := r.prepare(); err != nil {
			r.err = err
			return false
		}
	}

	n := 0
	for n < r.settings.batchSize {
		if r.settings.rowLimit > 0 && r.rows >= r.settings.rowLimit {
			r.done = true
			break
		}

		fields, err := r.csv.Read()
		if err == io.EOF {
			r.done = true
			break
		}
		if err == nil {
			err = r.stage(fields)
		} else {
			err = r.recordError(err)
		}
		if err != nil {
			var pe *errors.ParseError
			if r.settings.ignoreErrors && stderrors.As(err, &pe) {
				r.settings.log.Warn("dropped malformed row",
					zap.Int("line", pe.Line),
					zap.Int("column", pe.Column),
					zap.Int("chunk", pe.Chunk),
					zap.Error(err),
				)
				r.dropped++
				continue
			}
			r.err = err
			return false
		}

		for _, b := range r.builders {
			b.Commit()
		}
		n++
		r.rows++
	}

	if n == 0 {
		return false
	}

	cols := make([]arrow.Array, len(r.builders))
	for i, b := range r.builders {
		cols[i] = b.NewArray()
	}
	r.rec = array.NewRecord(r.schema, cols, int64(n))
	for _, c := range cols {
		c.Release()
	}
	r.batches++
	return true
}

// stage parses every projected field of a record. Nothing is committed if
// any field fails.
func (r *ChunkReader) stage(fields []string) error {
	for i, b := range r.builders {
		src := r.proj[i]
		if err := b.Stage(fields[src]); err != nil {
			line, _ := r.csv.FieldPos(src)
			return &errors.ParseError{
				Line:    r.chunk.FirstLine + line - 1,
				Column:  src + 1,
				Field:   r.schema.Field(i).Name,
				Chunk:   r.chunk.Index,
				Message: "invalid value",
				Cause:   err,
			}
		}
	}
	return nil
}

func (r *ChunkReader) recordError(err error) error {
	var pe *csv.ParseError
	if !stderrors.As(err, &pe) {
		return errors.NewIOError("read", "", err)
	}

	perr := &errors.ParseError{
		Line:    r.chunk.FirstLine + pe.StartLine - 1,
		Chunk:   r.chunk.Index,
		Message: pe.Err.Error(),
	}
	if !stderrors.Is(pe.Err, csv.ErrFieldCount) {
		// encoding/csv reports a byte column of the physical line
		perr.Column = r.framer.fieldAt(r.data, pe.StartLine, pe.Line, pe.Column)
		perr.Field = r.fieldName(perr.Column - 1)
	}
	return perr
}

// fieldName returns the output name of source field src, or "" when src is
// not projected.
func (r *ChunkReader) fieldName(src int) string {
	for i, p := range r.proj {
		if p == src {
			return r.schema.Field(i).Name
		}
	}
	return ""
}

// Record returns the current batch. It is valid until the next call to
// Next; callers that keep it must Retain it.
func (r *ChunkReader) Record() arrow.Record {
	return r.rec
}

// Err returns the error that stopped iteration, if any.
func (r *ChunkReader) Err() error {
	return r.err
}

// Rows returns the number of rows emitted so far.
func (r *ChunkReader) Rows() int {
	return r.rows
}

// Dropped returns the number of malformed rows skipped so far.
func (r *ChunkReader) Dropped() int {
	return r.dropped
}

// Batches returns the number of batches emitted so far.
func (r *ChunkReader) Batches() int {
	return r.batches
}

// Reset rewinds the reader to the start of its chunk.
func (r *ChunkReader) Reset() {
	if r.rec != nil {
		r.rec.Release()
		r.rec = nil
	}
	for _, b := range r.builders {
		// Discard values committed before an aborted batch
		b.NewArray().Release()
	}
	r.err, r.done = nil, false
	r.rows, r.dropped, r.batches = 0, 0, 0
	if r.prepared {
		r.rewind()
	}
}

// Release frees the current batch and the column builders.
func (r *ChunkReader) Release() {
	if r.rec != nil {
		r.rec.Release()
		r.rec = nil
	}
	r.releaseBuilders()
}

func (r *ChunkReader) releaseBuilders() {
	for _, b := range r.builders {
		if b != nil {
			b.Release()
		}
	}
	r.builders = nil
}
