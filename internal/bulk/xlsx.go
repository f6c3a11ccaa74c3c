package bulk

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmptyWorkbook is returned for a workbook without sheets.
var ErrEmptyWorkbook = errors.New("workbook has no sheets")

// ReadUpload returns the text content of an uploaded file. Spreadsheets are
// flattened to tab-delimited lines from their first sheet so they go through
// the same parser as pasted data.
func ReadUpload(name string, r io.Reader) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return WorkbookText(r)
	default:
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("reading upload: %w", err)
		}
		return string(data), nil
	}
}

// WorkbookText renders the first sheet of an xlsx workbook as tab-delimited
// text. Every line has at least two fields, so the tab delimiter holds even
// when the first row is a single title cell. Cells containing a tab or quote
// are quoted.
func WorkbookText(r io.Reader) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", ErrEmptyWorkbook
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}

	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(quoteCell(cell))
		}
		// GetRows drops trailing empty cells. Restore the spend column so a
		// blank amount still reads as two fields.
		if len(row) < 2 {
			b.WriteByte('\t')
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func quoteCell(s string) string {
	if !strings.ContainsAny(s, "\t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
