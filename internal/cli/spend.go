package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/theirongolddev/spendgrid/internal/bulk"
	"github.com/theirongolddev/spendgrid/internal/model"
	"github.com/theirongolddev/spendgrid/internal/reconcile"
)

var errorStyle = lipgloss.NewStyle().Foreground(ColorRed)

func statusStyle(cell string) lipgloss.Style {
	if cell == "ok" {
		return amountStyle
	}
	return errorStyle
}

// RenderParsedRows renders a preview of parsed rows. limit <= 0 shows all.
func RenderParsedRows(rows []bulk.ParsedRow, currency string, limit int) string {
	t := Table{
		Title:   "Preview",
		Headers: []string{"Row", "Date", "Spend", "Amount", "Status"},
		Right:   []bool{true, false, true, true, false},
		Styles:  map[int]func(string) lipgloss.Style{4: statusStyle},
	}
	for i, r := range rows {
		if limit > 0 && i == limit {
			t.Rows = append(t.Rows, []string{"---"})
			t.Rows = append(t.Rows, []string{"", fmt.Sprintf("%d more", len(rows)-limit), "", "", ""})
			break
		}
		date := r.RawDate
		if r.Date != nil {
			date = *r.Date
		}
		amount := ""
		if r.AmountCents != nil {
			amount = FormatCents(*r.AmountCents, currency)
		}
		status := "ok"
		if !r.Valid() {
			status = r.Error
		}
		t.Rows = append(t.Rows, []string{strconv.Itoa(r.RowNumber), date, r.RawSpend, amount, status})
	}
	return RenderTable(t)
}

// RenderSummary renders valid and invalid row counts by category.
func RenderSummary(s bulk.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s  %s\n", headerStyle.Render("Rows"), countStyle.Render(FormatNumber(int64(s.Total))))
	fmt.Fprintf(&b, "  %s  %s\n", mutedStyle.Render("valid         "), amountStyle.Render(FormatNumber(int64(s.Valid))))
	if s.Invalid() == 0 {
		return b.String()
	}
	line := func(label string, n int) {
		if n > 0 {
			fmt.Fprintf(&b, "  %s  %s\n", mutedStyle.Render(label), warnStyle.Render(FormatNumber(int64(n))))
		}
	}
	line("invalid shape ", s.InvalidShape)
	line("invalid date  ", s.InvalidDate)
	line("invalid amount", s.InvalidAmount)
	return b.String()
}

// RenderResult renders the counts of an applied batch.
func RenderResult(res reconcile.Result) string {
	unchanged := res.TotalCount - res.InsertedCount - res.UpdatedCount
	return RenderTable(Table{
		Title:   "Import",
		Headers: []string{"Inserted", "Updated", "Unchanged", "Total"},
		Right:   []bool{true, true, true, true},
		Rows: [][]string{{
			FormatNumber(int64(res.InsertedCount)),
			FormatNumber(int64(res.UpdatedCount)),
			FormatNumber(int64(unchanged)),
			FormatNumber(int64(res.TotalCount)),
		}},
	})
}

// RenderEntries renders stored spend entries.
func RenderEntries(entries []model.SpendEntry) string {
	t := Table{
		Title:   "Spend",
		Headers: []string{"Date", "Platform", "Amount", "Source", "Updated"},
		Right:   []bool{false, false, true, false, false},
	}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{
			FormatDay(e.Date), e.PlatformID, FormatCents(e.AmountCents, e.Currency),
			string(e.Source), FormatTime(e.UpdatedAt),
		})
	}
	return RenderTable(t)
}

// RenderEditLogs renders audit history, newest first.
func RenderEditLogs(logs []model.EditLog, currency string) string {
	t := Table{
		Title:   "Audit",
		Headers: []string{"When", "User", "Platform", "Before", "After"},
		Right:   []bool{false, false, false, true, true},
	}
	for _, l := range logs {
		t.Rows = append(t.Rows, []string{
			FormatTime(l.CreatedAt), l.UserID, l.PlatformID,
			FormatCents(l.PreviousAmountCents, currency), FormatCents(l.NewAmountCents, currency),
		})
	}
	return RenderTable(t)
}

// RenderPlatforms renders platforms with their scope.
func RenderPlatforms(platforms []model.Platform) string {
	t := Table{
		Title:   "Platforms",
		Headers: []string{"ID", "Key", "Name", "Provider", "Scope"},
		Right:   []bool{},
	}
	for _, p := range platforms {
		scope := "global"
		if p.OrgID != "" {
			scope = p.OrgID
		}
		t.Rows = append(t.Rows, []string{p.ID, p.Key, p.Name, p.Provider, scope})
	}
	return RenderTable(t)
}

// RenderMemberships renders an org's members.
func RenderMemberships(members []model.Membership) string {
	t := Table{
		Title:   "Members",
		Headers: []string{"User", "Role", "Since"},
		Right:   []bool{},
	}
	for _, m := range members {
		t.Rows = append(t.Rows, []string{m.UserID, m.Role.String(), FormatTime(m.CreatedAt)})
	}
	return RenderTable(t)
}
