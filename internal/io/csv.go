package io

import (
	"bytes"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/paveg/colcsv/internal/aggregate"
	"github.com/paveg/colcsv/internal/dataframe"
	"github.com/paveg/colcsv/internal/errors"
	"github.com/paveg/colcsv/internal/parallel"
	"github.com/paveg/colcsv/internal/schema"
	"github.com/paveg/colcsv/internal/validation"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVReader reads CSV data and converts it to DataFrames
type CSVReader struct {
	src  Source
	opts CSVOptions
}

// NewCSVReader creates a new CSV reader with the specified options
func NewCSVReader(src Source, opts CSVOptions) *CSVReader {
	return &CSVReader{src: src, opts: opts}
}

// scanPlan is everything fixed before the first chunk is parsed.
type scanPlan struct {
	data     []byte
	full     *arrow.Schema // every source column
	proj     []int         // source index of each output column
	out      *arrow.Schema
	chunks   []Chunk
	settings parseSettings
}

// scanStats totals the per-chunk counters of one scan.
type scanStats struct {
	rows    int
	dropped int
	batches int
}

// Schema infers the schema of the source without parsing its body.
func (r *CSVReader) Schema(ctx context.Context) (*arrow.Schema, error) {
	plan, err := r.plan(ctx, r.opts.Columns, r.opts.Projection, false)
	if err != nil {
		return nil, err
	}
	return plan.out, nil
}

// Read parses the whole source into a DataFrame.
func (r *CSVReader) Read(ctx context.Context) (*dataframe.DataFrame, error) {
	var df *dataframe.DataFrame
	start := time.Now()
	log := r.opts.logger()

	err := r.opts.Metrics.RecordOperation("read", r.opts.ThreadCount() > 1, func() (int64, error) {
		plan, err := r.plan(ctx, r.opts.Columns, r.opts.Projection, true)
		if err != nil {
			return 0, err
		}

		batches, stats, err := scanChunks(ctx, &r.opts, plan, chunkFold[[]arrow.Record]{
			consume: func(recs []arrow.Record, rec arrow.Record) ([]arrow.Record, error) {
				rec.Retain()
				return append(recs, rec), nil
			},
			discard: releaseRecords,
		})
		if err != nil {
			return 0, err
		}

		df, err = Assemble(plan.out, batches, r.opts.Rechunk, r.opts.allocator())
		if err != nil {
			return 0, err
		}

		log.Info("csv read complete",
			zap.String("path", r.src.Path()),
			zap.Int("rows", df.Len()),
			zap.Int("columns", df.Width()),
			zap.Int("chunks", len(plan.chunks)),
			zap.Int("batches", stats.batches),
			zap.Int("dropped", stats.dropped),
			zap.Duration("duration", time.Since(start)),
		)
		return int64(df.Len()), nil
	})
	if err != nil {
		log.Error("csv read failed", zap.String("path", r.src.Path()), zap.Error(err))
		return nil, err
	}
	return df, nil
}

// Aggregate computes specs in a single pass without materializing the
// table. Each chunk folds its batches into its own aggregate states, which
// are merged once every chunk is done. A Column of "*" is accepted by
// count_all. Results are returned in the order of specs.
func (r *CSVReader) Aggregate(ctx context.Context, specs ...aggregate.Spec) ([]scalar.Scalar, error) {
	if len(specs) == 0 {
		return nil, errors.NewInvalidInputError("Aggregate", "no aggregates requested")
	}

	var results []scalar.Scalar
	log := r.opts.logger()
	start := time.Now()

	err := r.opts.Metrics.RecordOperation("aggregate", r.opts.ThreadCount() > 1, func() (int64, error) {
		var names []string
		for _, spec := range specs {
			switch {
			case spec.Column != "*":
				names = append(names, spec.Column)
			case spec.Func != aggregate.FuncCountAll:
				return 0, errors.NewInvalidInputError("Aggregate", fmt.Sprintf("%s does not accept *", spec.Func))
			}
		}

		var plan *scanPlan
		var err error
		if names == nil {
			// Only row counts requested; the first column is enough
			plan, err = r.plan(ctx, nil, []int{0}, true)
		} else {
			plan, err = r.plan(ctx, names, nil, true)
		}
		if err != nil {
			return 0, err
		}

		cols := make([]int, len(specs))
		for k, spec := range specs {
			if spec.Column != "*" {
				cols[k] = plan.out.FieldIndices(spec.Column)[0]
			}
		}
		newStates := func() ([]aggregate.Aggregator, error) {
			states := make([]aggregate.Aggregator, len(specs))
			for k, spec := range specs {
				agg, err := aggregate.New(spec, plan.out.Field(cols[k]).Type)
				if err != nil {
					return nil, err
				}
				states[k] = agg
			}
			return states, nil
		}
		// Surface type errors before any chunk is parsed
		if _, err := newStates(); err != nil {
			return 0, err
		}

		parts, stats, err := scanChunks(ctx, &r.opts, plan, chunkFold[[]aggregate.Aggregator]{
			init: newStates,
			consume: func(states []aggregate.Aggregator, rec arrow.Record) ([]aggregate.Aggregator, error) {
				for k, agg := range states {
					if err := agg.Update(rec.Column(cols[k])); err != nil {
						return states, err
					}
				}
				return states, nil
			},
		})
		if err != nil {
			return 0, err
		}

		wp := parallel.NewWorkerPool(r.opts.ThreadCount())
		results = make([]scalar.Scalar, len(specs))
		for k := range specs {
			column := make([]aggregate.Aggregator, 0, len(parts))
			for _, states := range parts {
				column = append(column, states[k])
			}
			merged := aggregate.MergeAllTree(wp, column...)
			if merged == nil {
				identity, _ := newStates()
				merged = identity[k]
			}
			results[k] = merged.Finalize()
		}

		log.Info("csv aggregate complete",
			zap.String("path", r.src.Path()),
			zap.Int("aggregates", len(specs)),
			zap.Int("rows", stats.rows),
			zap.Int("dropped", stats.dropped),
			zap.Int("chunks", len(plan.chunks)),
			zap.Duration("duration", time.Since(start)),
		)
		return int64(stats.rows), nil
	})
	if err != nil {
		log.Error("csv aggregate failed", zap.String("path", r.src.Path()), zap.Error(err))
		return nil, err
	}
	return results, nil
}

// plan validates the options, reads the header, infers the schema from a
// sample and, when split is set, divides the body into chunks.
func (r *CSVReader) plan(ctx context.Context, columns []string, indices []int, split bool) (*scanPlan, error) {
	opts := &r.opts
	if err := opts.Validate(); err != nil {
		return nil, &errors.DataFrameError{Op: "ReadCSV", Message: "invalid options", Cause: err}
	}

	data := r.src.Bytes()
	pos := 0
	if bytes.HasPrefix(data, utf8BOM) {
		pos = len(utf8BOM)
	}
	framer := newFramer(opts.DelimiterByte())
	pos, skipped := framer.skipRecords(data, pos, opts.SkipRows)
	line := 1 + skipped

	var names []string
	switch {
	case opts.HasHeader && pos >= len(data):
		if opts.Schema == nil {
			return nil, errors.NewSchemaInferenceError(nil, "source has no header line")
		}
	case opts.HasHeader:
		end := framer.recordEnd(data, pos, fieldStart)
		header, err := r.readHeader(data[pos:end], pos, line)
		if err != nil {
			return nil, err
		}
		names = header
		line += bytes.Count(data[pos:end], []byte{'\n'})
		pos = end
	}

	sample := r.sample(data[pos:])
	if names == nil {
		switch {
		case opts.Schema != nil:
			names = schema.DefaultColumnNames(opts.Schema.NumFields())
		case len(sample) > 0:
			names = schema.DefaultColumnNames(len(sample[0]))
		default:
			return nil, errors.NewSchemaInferenceError(nil, "source has no rows to infer columns from")
		}
	}

	full, err := r.resolveSchema(names, sample)
	if err != nil {
		return nil, err
	}

	proj, err := resolveProjection(full, columns, indices)
	if err != nil {
		return nil, err
	}
	fields := make([]arrow.Field, len(proj))
	for i, idx := range proj {
		fields[i] = full.Field(idx)
	}

	plan := &scanPlan{
		data: data,
		full: full,
		proj: proj,
		out:  arrow.NewSchema(fields, nil),
		settings: parseSettings{
			delimiter:    rune(opts.DelimiterByte()),
			batchSize:    opts.BatchSize,
			ignoreErrors: opts.IgnoreParserErrors,
			lossy:        opts.Lossy(),
			rowLimit:     opts.StopAfterNRows,
			mem:          opts.allocator(),
			log:          opts.logger(),
		},
	}
	if !split {
		return plan, nil
	}

	plan.chunks, err = SplitChunks(ctx, data, pos, line, opts.ThreadCount(), opts.DelimiterByte())
	if err != nil {
		return nil, err
	}
	opts.logger().Debug("split source",
		zap.Int("bytes", len(data)-pos),
		zap.Int("chunks", len(plan.chunks)),
		zap.Int("columns", len(proj)),
	)
	return plan, nil
}

// readHeader tokenizes the header record. Duplicate names get a
// _duplicated_N suffix.
func (r *CSVReader) readHeader(raw []byte, offset, line int) ([]string, error) {
	if !utf8.Valid(raw) {
		if !r.opts.Lossy() {
			off := invalidUTF8Offset(raw)
			return nil, &errors.EncodingError{Line: line, Offset: int64(offset + off)}
		}
		raw, _, _ = transform.Bytes(runes.ReplaceIllFormed(), raw)
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = rune(r.opts.DelimiterByte())
	header, err := cr.Read()
	if err != nil {
		return nil, &errors.ParseError{Line: line, Message: "invalid header", Cause: err}
	}

	seen := make(map[string]int, len(header))
	names := make([]string, len(header))
	for i, name := range header {
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_duplicated_%d", name, n)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names, nil
}

// sample tokenizes up to InferenceLimit records of body. Malformed records
// are skipped; the main parse reports them.
func (r *CSVReader) sample(body []byte) [][]string {
	limit := r.opts.InferenceLimit()
	cr := csv.NewReader(bytes.NewReader(body))
	cr.Comma = rune(r.opts.DelimiterByte())
	cr.FieldsPerRecord = -1

	records := make([][]string, 0, min(limit, 64))
	for len(records) < limit {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		var pe *csv.ParseError
		if stderrors.As(err, &pe) {
			continue
		}
		if err != nil {
			break
		}
		records = append(records, rec)
	}
	return records
}

func (r *CSVReader) resolveSchema(names []string, sample [][]string) (*arrow.Schema, error) {
	if sc := r.opts.Schema; sc != nil {
		if sc.NumFields() != len(names) {
			return nil, errors.NewValidationError("ReadCSV", "",
				fmt.Sprintf("schema has %d fields but the source has %d columns", sc.NumFields(), len(names)))
		}
		for _, f := range sc.Fields() {
			if !schema.Supported(f.Type) {
				return nil, errors.NewUnsupportedTypeError("ReadCSV", f.Name, f.Type.String())
			}
		}
		return sc, nil
	}

	overrides, err := schema.ParseTypes(r.opts.DTypes)
	if err != nil {
		return nil, errors.NewValidationError("ReadCSV", "", err.Error())
	}
	if len(r.opts.Overrides) > 0 && overrides == nil {
		overrides = make(map[string]arrow.DataType, len(r.opts.Overrides))
	}
	for name, dt := range r.opts.Overrides {
		overrides[name] = dt
	}
	for name, dt := range overrides {
		if err := validation.ValidateColumns(validation.NameColumns(names), "ReadCSV", name); err != nil {
			return nil, err
		}
		if !schema.Supported(dt) {
			return nil, errors.NewUnsupportedTypeError("ReadCSV", name, dt.String())
		}
	}

	return schema.Infer(sample, names, overrides)
}

// resolveProjection maps names or indices onto source column indices, kept
// in source order. With neither, every column is selected.
func resolveProjection(full *arrow.Schema, columns []string, indices []int) ([]int, error) {
	var proj []int
	switch {
	case len(columns) > 0:
		if err := validation.ValidateColumns(validation.SchemaColumns(full), "ReadCSV", columns...); err != nil {
			return nil, err
		}
		for _, name := range columns {
			proj = append(proj, full.FieldIndices(name)[0])
		}
	case len(indices) > 0:
		if err := validation.ValidateIndices(validation.SchemaColumns(full), "ReadCSV", "projection index", indices...); err != nil {
			return nil, err
		}
		proj = append(proj, indices...)
	default:
		proj = make([]int, full.NumFields())
		for i := range proj {
			proj[i] = i
		}
		return proj, nil
	}

	slices.Sort(proj)
	return slices.Compact(proj), nil
}

// chunkFold describes how a chunk's batches are folded into per-chunk state.
type chunkFold[S any] struct {
	init    func() (S, error) // nil starts from the zero value
	consume func(S, arrow.Record) (S, error)
	discard func(S) // nil when state holds no resources
}

// scanChunks parses every chunk of plan concurrently, one worker per chunk,
// and returns the folded states in chunk order. With a row limit the chunks
// are parsed one after another instead, each limited to the rows still
// missing, so the result is exactly the first rows of the source; chunks
// past the limit are never parsed and have no state. On error every state
// built so far is discarded.
func scanChunks[S any](ctx context.Context, opts *CSVOptions, plan *scanPlan, fold chunkFold[S]) ([]S, scanStats, error) {
	states := make([]S, len(plan.chunks))
	stats := make([]scanStats, len(plan.chunks))
	done := make([]bool, len(plan.chunks))
	discard := func(s S) {
		if fold.discard != nil {
			fold.discard(s)
		}
	}

	parse := func(ctx context.Context, i int, c Chunk, settings parseSettings) error {
		var state S
		if fold.init != nil {
			var err error
			if state, err = fold.init(); err != nil {
				return err
			}
		}

		cr := newChunkReader(plan.data, c, plan.full.NumFields(), plan.proj, plan.out, settings)
		defer cr.Release()

		for cr.Next() {
			if err := ctx.Err(); err != nil {
				discard(state)
				return err
			}
			var err error
			if state, err = fold.consume(state, cr.Record()); err != nil {
				discard(state)
				return err
			}
		}
		if err := cr.Err(); err != nil {
			discard(state)
			return err
		}

		states[i], done[i] = state, true
		stats[i] = scanStats{rows: cr.Rows(), dropped: cr.Dropped(), batches: cr.Batches()}
		opts.Metrics.ChunkParsed(int64(c.Len()), int64(cr.Rows()), int64(cr.Dropped()), int64(cr.Batches()))
		opts.logger().Debug("chunk parsed",
			zap.Int("chunk", c.Index),
			zap.Int("first_line", c.FirstLine),
			zap.Int("rows", cr.Rows()),
			zap.Int("dropped", cr.Dropped()),
		)
		return nil
	}

	var err error
	parsed := len(plan.chunks)
	if limit := plan.settings.rowLimit; limit > 0 {
		parsed = 0
		for i, c := range plan.chunks {
			if limit == 0 {
				break
			}
			if err = ctx.Err(); err != nil {
				break
			}
			settings := plan.settings
			settings.rowLimit = limit
			if err = parse(ctx, i, c, settings); err != nil {
				break
			}
			limit -= stats[i].rows
			parsed++
		}
	} else {
		pool := parallel.NewWorkerPool(opts.ThreadCount())
		_, err = parallel.ProcessIndexed(ctx, pool, plan.chunks, func(ctx context.Context, i int, c Chunk) (struct{}, error) {
			return struct{}{}, parse(ctx, i, c, plan.settings)
		})
	}
	if err != nil {
		for i, ok := range done {
			if ok {
				discard(states[i])
			}
		}
		return nil, scanStats{}, err
	}

	var total scanStats
	for _, s := range stats[:parsed] {
		total.rows += s.rows
		total.dropped += s.dropped
		total.batches += s.batches
	}
	return states[:parsed], total, nil
}

func releaseRecords(recs []arrow.Record) {
	for _, rec := range recs {
		rec.Release()
	}
}
