// Package bulk parses pasted or uploaded (date, spend) text into validated rows.
//
// Parsing is a pure function of its input: it keeps no state between calls
// and is cheap enough to re-run on every edit of a pasted block.
package bulk

import (
	"iter"
	"slices"
	"strings"
)

// ErrColumnCount is reported for a line that doesn't split into two fields.
const ErrColumnCount = "Expected exactly 2 columns: Date, Spend"

// ParsedRow is one data line after splitting and validation.
type ParsedRow struct {
	RowNumber   int     `json:"rowNumber"`
	RawDate     string  `json:"rawDate"`
	RawSpend    string  `json:"rawSpend"`
	Date        *string `json:"date"`
	AmountCents *int64  `json:"amountCents"`
	Error       string  `json:"error,omitempty"`
}

// Valid reports whether the row passed every check.
func (r ParsedRow) Valid() bool {
	return r.Error == "" && r.Date != nil && r.AmountCents != nil
}

// Parse splits raw into rows. See Rows for the rules.
func Parse(raw string) []ParsedRow {
	return slices.Collect(Rows(raw))
}

// Rows lazily yields the data rows of raw.
//
// Blank lines are dropped without consuming a row number. The first line
// decides the delimiter for the whole input: tab if it contains one, comma
// otherwise. A first line of exactly "date","spend" (any case) is a header and
// is skipped, so the first data row is numbered 2.
func Rows(raw string) iter.Seq[ParsedRow] {
	return func(yield func(ParsedRow) bool) {
		lines := nonEmptyLines(raw)
		if len(lines) == 0 {
			return
		}

		delim := byte(',')
		if strings.IndexByte(lines[0], '\t') >= 0 {
			delim = '\t'
		}

		start := 0
		if isHeader(splitFields(lines[0], delim)) {
			start = 1
		}

		for i := start; i < len(lines); i++ {
			if !yield(parseLine(i+1, lines[i], delim)) {
				return
			}
		}
	}
}

func parseLine(rowNumber int, line string, delim byte) ParsedRow {
	fields := splitFields(line, delim)
	if len(fields) != 2 {
		row := ParsedRow{RowNumber: rowNumber, Error: ErrColumnCount}
		if len(fields) > 0 {
			row.RawDate = fields[0]
		}
		if len(fields) > 1 {
			row.RawSpend = fields[1]
		}
		return row
	}
	return ParseRow(rowNumber, fields[0], fields[1])
}

func nonEmptyLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var lines []string
	for line := range strings.SplitSeq(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// splitFields splits one line on delim, honoring double-quoted fields with
// "" as an escaped quote. Every field is trimmed.
func splitFields(line string, delim byte) []string {
	var (
		out      []string
		cur      strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case ch == delim && !inQuotes:
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}

	return append(out, strings.TrimSpace(cur.String()))
}

func isHeader(fields []string) bool {
	if len(fields) != 2 {
		return false
	}
	return strings.ToLower(fields[0]) == "date" && strings.ToLower(fields[1]) == "spend"
}
