// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatCents renders an amount of minor units in currency.
// e.g., (123450, "USD") -> "$1,234.50", (-5, "USD") -> "-$0.05",
// (100, "EUR") -> "EUR 1.00"
func FormatCents(cents int64, currency string) string {
	sign := ""
	abs := uint64(cents)
	if cents < 0 {
		sign = "-"
		abs = uint64(-(cents + 1)) + 1
	}

	prefix := "$"
	if currency != "" && !strings.EqualFold(currency, "USD") {
		prefix = strings.ToUpper(currency) + " "
	}
	return fmt.Sprintf("%s%s%s.%02d", sign, prefix, printer.Sprintf("%d", abs/100), abs%100)
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatDay renders a stored day the way users type it.
func FormatDay(t time.Time) string {
	return t.Format("01/02/2006")
}

// FormatTime renders a timestamp in local time, minute precision.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
