package bulk

// Summary counts parsed rows by outcome so an operator can fix invalid rows
// before confirming an import.
type Summary struct {
	Total         int `json:"total"`
	Valid         int `json:"valid"`
	InvalidShape  int `json:"invalidShape"`
	InvalidDate   int `json:"invalidDate"`
	InvalidAmount int `json:"invalidAmount"`
}

// Invalid returns the number of rows that failed any check.
func (s Summary) Invalid() int {
	return s.InvalidShape + s.InvalidDate + s.InvalidAmount
}

// Summarize tallies rows by validation category.
func Summarize(rows []ParsedRow) Summary {
	var s Summary
	for _, r := range rows {
		s.Total++
		switch r.Error {
		case "":
			s.Valid++
		case ErrColumnCount:
			s.InvalidShape++
		case ErrDateFormat, ErrMonthRange, ErrDayRange:
			s.InvalidDate++
		default:
			s.InvalidAmount++
		}
	}
	return s
}

// Entry is a validated (date, cents) pair ready for reconciliation.
type Entry struct {
	Date        string `json:"date"`
	AmountCents int64  `json:"amountCents"`
}

// ValidEntries drops invalid rows and returns the rest in input order.
func ValidEntries(rows []ParsedRow) []Entry {
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		if !r.Valid() {
			continue
		}
		out = append(out, Entry{Date: *r.Date, AmountCents: *r.AmountCents})
	}
	return out
}
