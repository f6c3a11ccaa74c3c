package bulk

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validation failure reasons, surfaced verbatim to the operator.
const (
	ErrDateFormat     = "Date must be MM/DD/YYYY"
	ErrMonthRange     = "Month must be 01-12"
	ErrDayRange       = "Invalid day for month"
	ErrSpendRequired  = "Spend is required"
	ErrSpendNotNumber = "Spend must be numeric"
)

// DateLayout is the canonical MM/DD/YYYY form.
const DateLayout = "01/02/2006"

var (
	datePattern   = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	amountPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	amountStrip   = regexp.MustCompile(`[$,\s]`)
	hundred       = decimal.NewFromInt(100)
)

// ParseRow validates one (date, spend) pair. The date is checked first and
// the first failing check wins.
func ParseRow(rowNumber int, rawDate, rawSpend string) ParsedRow {
	row := ParsedRow{
		RowNumber: rowNumber,
		RawDate:   strings.TrimSpace(rawDate),
		RawSpend:  strings.TrimSpace(rawSpend),
	}

	day, reason := checkDate(row.RawDate)
	if reason != "" {
		row.Error = reason
		return row
	}
	date := day.Format(DateLayout)
	row.Date = &date

	cents, reason := checkAmount(row.RawSpend)
	if reason != "" {
		row.Error = reason
		return row
	}
	row.AmountCents = &cents
	return row
}

// NormalizeDate validates an MM/DD/YYYY string and returns it zero-padded.
func NormalizeDate(s string) (string, bool) {
	day, reason := checkDate(strings.TrimSpace(s))
	if reason != "" {
		return "", false
	}
	return day.Format(DateLayout), true
}

// ParseDate returns the UTC calendar day named by a valid MM/DD/YYYY string.
func ParseDate(s string) (time.Time, bool) {
	day, reason := checkDate(strings.TrimSpace(s))
	return day, reason == ""
}

// ParseAmountCents converts a typed amount like "$1,234.50" into cents,
// rounding half away from zero. The second return is the failure reason.
func ParseAmountCents(s string) (int64, string) {
	return checkAmount(s)
}

func checkDate(s string) (time.Time, string) {
	if !datePattern.MatchString(s) {
		return time.Time{}, ErrDateFormat
	}
	month, _ := strconv.Atoi(s[0:2])
	day, _ := strconv.Atoi(s[3:5])
	year, _ := strconv.Atoi(s[6:10])

	if month < 1 || month > 12 {
		return time.Time{}, ErrMonthRange
	}
	if day < 1 || day > DaysIn(year, time.Month(month)) {
		return time.Time{}, ErrDayRange
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), ""
}

// DaysIn returns the number of days in month of year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func checkAmount(s string) (int64, string) {
	cleaned := amountStrip.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, ErrSpendRequired
	}
	if !amountPattern.MatchString(cleaned) {
		return 0, ErrSpendNotNumber
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, ErrSpendNotNumber
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.BigInt().IsInt64() {
		return 0, ErrSpendNotNumber
	}
	return cents.IntPart(), ""
}
