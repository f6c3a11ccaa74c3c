// Package tui provides interactive Bubble Tea screens for reviewing an
// import before it is applied.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/theirongolddev/spendgrid/internal/bulk"
	"github.com/theirongolddev/spendgrid/internal/cli"
	"github.com/theirongolddev/spendgrid/internal/tui/components"
	"github.com/theirongolddev/spendgrid/internal/tui/theme"
)

// Filter selects which parsed rows the review table shows.
type Filter int

const (
	FilterAll Filter = iota
	FilterValid
	FilterInvalid
)

var filterTabs = []components.Tab{
	{Name: "All", Key: 'a', KeyPos: 0},
	{Name: "Valid", Key: 'v', KeyPos: 0},
	{Name: "Invalid", Key: 'i', KeyPos: 0},
}

const (
	minTableHeight = 5
	// chromeHeight covers the title, metric cards, tab bar and status bar.
	chromeHeight = 10
)

// Review is the Bubble Tea model for the pre-import review screen. The
// user browses parsed rows and either confirms the import of the valid ones
// or backs out.
type Review struct {
	title    string
	rows     []bulk.ParsedRow
	summary  bulk.Summary
	currency string

	filter  Filter
	visible []bulk.ParsedRow
	table   table.Model

	width  int
	height int

	confirmed bool
	done      bool
	notice    string
}

// NewReview builds a review screen over rows. title names the import
// target, e.g. "acme / Google Ads".
func NewReview(title string, rows []bulk.ParsedRow, currency string) Review {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(minTableHeight*2),
	)
	t.SetStyles(tableStyles())

	r := Review{
		title:    title,
		rows:     rows,
		summary:  bulk.Summarize(rows),
		currency: currency,
		table:    t,
	}
	r.applyFilter(FilterAll)
	return r
}

// Confirmed reports whether the user accepted the import.
func (r Review) Confirmed() bool { return r.confirmed }

// Visible returns the rows shown under the current filter.
func (r Review) Visible() []bulk.ParsedRow { return r.visible }

// Filter returns the active filter.
func (r Review) Filter() Filter { return r.filter }

// Init implements tea.Model.
func (r Review) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (r Review) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		r.table.SetColumns(columns(msg.Width))
		r.table.SetWidth(msg.Width)
		r.table.SetHeight(max(msg.Height-chromeHeight, minTableHeight))
		return r, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "esc", "ctrl+c":
			r.done = true
			return r, tea.Quit
		case "enter", "y":
			if r.summary.Valid == 0 {
				r.notice = "nothing to import: no valid rows"
				return r, nil
			}
			r.confirmed = true
			r.done = true
			return r, tea.Quit
		case "tab":
			r.applyFilter((r.filter + 1) % Filter(len(filterTabs)))
			return r, nil
		case "shift+tab":
			r.applyFilter((r.filter + Filter(len(filterTabs)) - 1) % Filter(len(filterTabs)))
			return r, nil
		}
		if len(msg.Runes) == 1 {
			if idx := components.TabIdxByKey(filterTabs, msg.Runes[0]); idx >= 0 {
				r.applyFilter(Filter(idx))
				return r, nil
			}
		}
	}

	var cmd tea.Cmd
	r.table, cmd = r.table.Update(msg)
	return r, cmd
}

func (r *Review) applyFilter(f Filter) {
	r.filter = f
	r.visible = r.visible[:0:0]
	for _, row := range r.rows {
		switch {
		case f == FilterValid && !row.Valid():
			continue
		case f == FilterInvalid && row.Valid():
			continue
		}
		r.visible = append(r.visible, row)
	}

	out := make([]table.Row, len(r.visible))
	for i, row := range r.visible {
		out[i] = tableRow(row, r.currency)
	}
	r.table.SetRows(out)
	r.table.GotoTop()
	r.notice = ""
}

// View implements tea.Model.
func (r Review) View() string {
	if r.done {
		return ""
	}
	t := theme.Active
	width := r.width
	if width == 0 {
		width = 80
	}

	var b strings.Builder
	title := lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Render(" Review import")
	if r.title != "" {
		title += lipgloss.NewStyle().Foreground(t.TextMuted).Render("  " + r.title)
	}
	b.WriteString(title)
	b.WriteString("\n")

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Rows", Value: cli.FormatNumber(int64(r.summary.Total))},
		{Label: "Valid", Value: cli.FormatNumber(int64(r.summary.Valid))},
		{Label: "Invalid", Value: cli.FormatNumber(int64(r.summary.Invalid())), Alert: r.summary.Invalid() > 0},
		{Label: "Total spend", Value: cli.FormatCents(r.validTotal(), r.currency)},
	}, width))
	b.WriteString("\n")

	b.WriteString(components.RenderTabBar(filterTabs, int(r.filter)))
	b.WriteString("\n")
	b.WriteString(r.table.View())
	b.WriteString("\n")

	if r.notice != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(t.Orange).Render(" " + r.notice))
		b.WriteString("\n")
	}

	hints := "[enter]import  [tab]filter  [q]cancel"
	status := fmt.Sprintf("%d/%d shown", len(r.visible), len(r.rows))
	b.WriteString(components.RenderStatusBar(width, hints, status))
	return b.String()
}

func (r Review) validTotal() int64 {
	var sum int64
	for _, e := range bulk.ValidEntries(r.rows) {
		sum += e.AmountCents
	}
	return sum
}

func tableRow(row bulk.ParsedRow, currency string) table.Row {
	date := row.RawDate
	if row.Date != nil {
		date = *row.Date
	}
	amount := row.RawSpend
	if row.AmountCents != nil {
		amount = cli.FormatCents(*row.AmountCents, currency)
	}
	status := "ok"
	if !row.Valid() {
		status = row.Error
	}
	return table.Row{strconv.Itoa(row.RowNumber), date, amount, status}
}

// columns sizes the table to width; the status column takes the slack.
func columns(width int) []table.Column {
	const rowW, dateW, amountW = 6, 12, 16
	statusW := max(width-rowW-dateW-amountW-8, 12)
	return []table.Column{
		{Title: "Row", Width: rowW},
		{Title: "Date", Width: dateW},
		{Title: "Amount", Width: amountW},
		{Title: "Status", Width: statusW},
	}
}

func tableStyles() table.Styles {
	t := theme.Active
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		BorderBottom(true).
		Foreground(t.TextMuted).
		Bold(true)
	s.Cell = s.Cell.Foreground(t.TextPrimary)
	s.Selected = s.Selected.
		Foreground(t.Accent).
		Background(t.AccentDim).
		Bold(true)
	return s
}

// RunReview shows the review screen full-screen and reports whether the
// user confirmed.
func RunReview(title string, rows []bulk.ParsedRow, currency string) (bool, error) {
	final, err := tea.NewProgram(NewReview(title, rows, currency), tea.WithAltScreen()).Run()
	if err != nil {
		return false, fmt.Errorf("review screen: %w", err)
	}
	r, ok := final.(Review)
	return ok && r.Confirmed(), nil
}
