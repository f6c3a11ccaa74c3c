package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theirongolddev/spendgrid/internal/bulk"
)

const sample = "Date,Spend\n01/01/2024,$10.00\n01/02/2024,abc\n13/01/2024,5\n01/04/2024,2.50"

func press(t *testing.T, r Review, msg tea.KeyMsg) (Review, tea.Cmd) {
	t.Helper()
	m, cmd := r.Update(msg)
	next, ok := m.(Review)
	require.True(t, ok)
	return next, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestReview_Filters(t *testing.T) {
	r := NewReview("acme / Google Ads", bulk.Parse(sample), "USD")
	assert.Len(t, r.Visible(), 4)
	assert.Equal(t, FilterAll, r.Filter())

	r, _ = press(t, r, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, FilterValid, r.Filter())
	require.Len(t, r.Visible(), 2)
	assert.Equal(t, 2, r.Visible()[0].RowNumber)

	r, _ = press(t, r, runes("i"))
	assert.Equal(t, FilterInvalid, r.Filter())
	require.Len(t, r.Visible(), 2)
	for _, row := range r.Visible() {
		assert.False(t, row.Valid())
	}

	r, _ = press(t, r, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, FilterValid, r.Filter())

	r, _ = press(t, r, runes("a"))
	assert.Len(t, r.Visible(), 4)
}

func TestReview_Confirm(t *testing.T) {
	r := NewReview("", bulk.Parse(sample), "USD")

	r, cmd := press(t, r, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, r.Confirmed())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestReview_Cancel(t *testing.T) {
	r := NewReview("", bulk.Parse(sample), "USD")

	r, cmd := press(t, r, runes("q"))
	assert.False(t, r.Confirmed())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, r.View())
}

func TestReview_NothingValidBlocksConfirm(t *testing.T) {
	r := NewReview("", bulk.Parse("01/01/2024,abc"), "USD")

	r, cmd := press(t, r, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, r.Confirmed())
	assert.Nil(t, cmd)
	assert.Contains(t, r.View(), "no valid rows")
}

func TestReview_View(t *testing.T) {
	r := NewReview("acme / Google Ads", bulk.Parse(sample), "USD")
	m, _ := r.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	r = m.(Review)

	view := r.View()
	for _, want := range []string{"Review import", "acme / Google Ads", "Invalid", "$12.50", "Spend must be numeric", "4/4 shown"} {
		assert.True(t, strings.Contains(view, want), "view missing %q:\n%s", want, view)
	}
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateCurrency("USD"))
	assert.Error(t, ValidateCurrency("usd"))
	assert.Error(t, ValidateCurrency("DOLLAR"))

	assert.NoError(t, ValidateAddr("127.0.0.1:8787"))
	assert.NoError(t, ValidateAddr(":8080"))
	assert.Error(t, ValidateAddr("localhost"))

	assert.NoError(t, ValidatePostgresURL("postgres://u@h/db"))
	assert.Error(t, ValidatePostgresURL("mysql://u@h/db"))
}
