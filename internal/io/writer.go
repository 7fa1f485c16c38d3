package io

import (
	"bufio"
	"encoding/csv"
	"io"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/paveg/colcsv/internal/config"
	"github.com/paveg/colcsv/internal/dataframe"
	"github.com/paveg/colcsv/internal/errors"
	"github.com/paveg/colcsv/internal/series"
)

// CSVWriter writes DataFrames to CSV format
type CSVWriter struct {
	writer io.Writer
	config config.Write
}

// NewCSVWriter creates a new CSV writer with the specified options
func NewCSVWriter(writer io.Writer, cfg config.Write) *CSVWriter {
	return &CSVWriter{writer: writer, config: cfg}
}

// Write streams df as delimited text. Rows are formatted and flushed in
// batches of config.BatchSize, in order. The first failed flush aborts the
// write; bytes already written stay written.
func (w *CSVWriter) Write(df *dataframe.DataFrame) error {
	if err := w.config.Validate(); err != nil {
		return &errors.DataFrameError{Op: "WriteCSV", Message: "invalid options", Cause: err}
	}

	// csv.Writer reuses bw, so rows written around it stay in order
	bw := bufio.NewWriter(w.writer)
	cw := csv.NewWriter(bw)
	cw.Comma = rune(w.config.DelimiterByte())
	layouts := series.Layouts{
		Date:      w.config.DateFormat,
		Time:      w.config.TimeFormat,
		Timestamp: w.config.TimestampFormat,
	}

	if w.config.Header {
		if err := writeRow(bw, cw, df.Columns()); err != nil {
			return err
		}
		if err := flush(cw); err != nil {
			return err
		}
	}
	if df.Len() == 0 {
		return nil
	}

	tbl := df.Table()
	defer tbl.Release()
	tr := array.NewTableReader(tbl, int64(w.config.BatchSize))
	defer tr.Release()

	// Records never span input chunks, so batches are counted by row
	row := make([]string, df.Width())
	pending := 0
	for tr.Next() {
		rec := tr.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			for j, col := range rec.Columns() {
				row[j] = series.Format(col, i, layouts)
			}
			if err := writeRow(bw, cw, row); err != nil {
				return err
			}
			if pending++; pending == w.config.BatchSize {
				if err := flush(cw); err != nil {
					return err
				}
				pending = 0
			}
		}
	}
	if err := tr.Err(); err != nil {
		return errors.NewIOError("write", "", err)
	}
	if pending > 0 {
		return flush(cw)
	}
	return nil
}

// writeRow writes one record. A lone empty field is quoted, since an
// empty line is skipped on read.
func writeRow(bw *bufio.Writer, cw *csv.Writer, row []string) error {
	var err error
	if len(row) == 1 && row[0] == "" {
		_, err = bw.WriteString("\"\"\n")
	} else {
		err = cw.Write(row)
	}
	if err != nil {
		return errors.NewIOError("write", "", err)
	}
	return nil
}

func flush(cw *csv.Writer) error {
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.NewIOError("write", "", err)
	}
	return nil
}
