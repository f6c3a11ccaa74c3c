package bulk

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSummarize(t *testing.T) {
	rows := Parse(strings.Join([]string{
		"Date,Spend",
		"01/02/2024,10",
		"01/03/2024,20",
		"13/01/2024,5",
		"02/30/2024,5",
		"01/04/2024,abc",
		"01/05/2024,",
		"just one column",
	}, "\n"))

	s := Summarize(rows)
	assert.Equal(t, Summary{Total: 7, Valid: 2, InvalidShape: 1, InvalidDate: 2, InvalidAmount: 2}, s)
	assert.Equal(t, 5, s.Invalid())
}

func TestSummarize_WorkbookBlankSpend(t *testing.T) {
	data := workbook(t, map[string]string{
		"A1": "Date", "B1": "Spend",
		"A2": "01/02/2024", "B2": "10",
		"A3": "01/03/2024",
	})
	text, err := ReadUpload("spend.xlsx", bytes.NewReader(data))
	require.NoError(t, err)

	s := Summarize(Parse(text))
	assert.Equal(t, Summary{Total: 2, Valid: 1, InvalidAmount: 1}, s)
}

func TestValidEntries_KeepsOrder(t *testing.T) {
	rows := Parse("01/03/2024,3\nbad,1\n01/01/2024,1\n01/03/2024,4")
	entries := ValidEntries(rows)
	assert.Equal(t, []Entry{
		{Date: "01/03/2024", AmountCents: 300},
		{Date: "01/01/2024", AmountCents: 100},
		{Date: "01/03/2024", AmountCents: 400},
	}, entries)
}

func TestWorkbookText(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Date"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "Spend"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "01/02/2024"))
	require.NoError(t, f.SetCellValue(sheet, "B2", "23423.00"))
	require.NoError(t, f.SetCellValue(sheet, "A3", "01/03/2024"))
	require.NoError(t, f.SetCellValue(sheet, "B3", "$1,234.50"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	text, err := ReadUpload("spend.XLSX", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "Date\tSpend\n01/02/2024\t23423.00\n01/03/2024\t$1,234.50\n", text)

	rows := Parse(text)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].RowNumber)
	assert.Equal(t, int64(2342300), *rows[0].AmountCents)
	assert.Equal(t, int64(123450), *rows[1].AmountCents)
}

func TestReadUpload_PlainText(t *testing.T) {
	text, err := ReadUpload("spend.csv", strings.NewReader("01/02/2024,1"))
	require.NoError(t, err)
	assert.Equal(t, "01/02/2024,1", text)
}

func TestReadUpload_BadWorkbook(t *testing.T) {
	_, err := ReadUpload("spend.xlsx", strings.NewReader("not a zip"))
	assert.Error(t, err)
}

func TestQuoteCell(t *testing.T) {
	assert.Equal(t, "plain", quoteCell("plain"))
	assert.Equal(t, `"a""b"`, quoteCell(`a"b`))
	assert.Equal(t, "\"a\tb\"", quoteCell("a\tb"))
}
