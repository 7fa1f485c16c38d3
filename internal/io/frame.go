package io

// frameState is the tokenizer state between two bytes of a source. The
// automaton follows encoding/csv with LazyQuotes off: a quote opens a field
// only at field start and closes it only before a delimiter or a line end,
// and a malformed field discards the rest of its physical line.
type frameState uint8

const (
	fieldStart frameState = iota
	unquoted
	quoted
	quoteSeen   // quote inside a quoted field: closes it or escapes the next
	quoteSeenCR // closing quote followed by \r
	badLine     // tokenizer error, skipping to the next line terminator
	numFrameStates
)

// framer is the transition table of the framing automaton for one
// delimiter.
type framer struct {
	delim byte
	next  [numFrameStates][256]frameState
}

func newFramer(delim byte) *framer {
	f := &framer{delim: delim}
	for c := range 256 {
		var row [numFrameStates]frameState
		switch byte(c) {
		case '\n':
			row = [numFrameStates]frameState{fieldStart, fieldStart, quoted, fieldStart, fieldStart, fieldStart}
		case quoteChar:
			row = [numFrameStates]frameState{quoted, badLine, quoteSeen, quoted, badLine, badLine}
		case delim:
			row = [numFrameStates]frameState{fieldStart, fieldStart, quoted, fieldStart, badLine, badLine}
		case '\r':
			row = [numFrameStates]frameState{unquoted, unquoted, quoted, quoteSeenCR, badLine, badLine}
		default:
			row = [numFrameStates]frameState{unquoted, unquoted, quoted, badLine, badLine, badLine}
		}
		for s := range row {
			f.next[s][c] = row[s]
		}
	}
	return f
}

// transitions maps every state at the start of seg to the state after it.
func (f *framer) transitions(seg []byte) [numFrameStates]frameState {
	var out [numFrameStates]frameState
	for s := range out {
		out[s] = frameState(s)
	}
	for _, c := range seg {
		for s := range out {
			out[s] = f.next[out[s]][c]
		}
	}
	return out
}

// recordEnd scans from pos, in state, for the first line terminator that
// ends a record and returns the offset just past it, or len(data).
func (f *framer) recordEnd(data []byte, pos int, state frameState) int {
	for ; pos < len(data); pos++ {
		c := data[pos]
		state = f.next[state][c]
		if c == '\n' && state == fieldStart {
			return pos + 1
		}
	}
	return len(data)
}

// skipRecords skips n records starting at from and returns the offset after
// the last skipped record together with the number of physical lines
// consumed.
func (f *framer) skipRecords(data []byte, from, n int) (int, int) {
	pos, lines := from, 0
	for ; n > 0 && pos < len(data); n-- {
		end := f.recordEnd(data, pos, fieldStart)
		lines += countLines(data[pos:end])
		pos = end
	}
	return pos, lines
}

// fieldAt returns the 1-based field of the record starting at the 1-based
// physical line startLine that holds the byte at the 1-based line and
// column. It maps encoding/csv error positions onto field indices.
func (f *framer) fieldAt(data []byte, startLine, line, col int) int {
	from := lineOffset(data, startLine)
	to := min(lineOffset(data, line)+col-1, len(data))

	field, state := 1, fieldStart
	for pos := from; pos < to; pos++ {
		c := data[pos]
		next := f.next[state][c]
		if c == f.delim && next == fieldStart {
			field++
		}
		state = next
	}
	return field
}

// lineOffset returns the offset of the 1-based physical line in data.
func lineOffset(data []byte, line int) int {
	pos := 0
	for ; line > 1 && pos < len(data); line-- {
		i := indexNewline(data[pos:])
		if i < 0 {
			return len(data)
		}
		pos += i + 1
	}
	return pos
}
