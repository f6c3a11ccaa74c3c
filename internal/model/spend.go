// Package model defines the persisted spend-tracking entities.
package model

import "time"

// DefaultCurrency is stamped on entries that don't carry their own currency.
const DefaultCurrency = "USD"

// DayLayout is the storage form of a calendar day.
const DayLayout = "2006-01-02"

// Source records how a SpendEntry was produced.
type Source string

const (
	SourceManual     Source = "MANUAL"
	SourceBulkPaste  Source = "BULK_PASTE"
	SourceBulkImport Source = "BULK_IMPORT"
)

// SpendEntry is one recorded (org, platform, date) -> amount row.
// At most one exists per (OrgID, PlatformID, Date).
type SpendEntry struct {
	ID              string    `json:"id"`
	OrgID           string    `json:"orgId"`
	PlatformID      string    `json:"platformId"`
	Date            time.Time `json:"date"`
	AmountCents     int64     `json:"amountCents"`
	Currency        string    `json:"currency"`
	Source          Source    `json:"source"`
	Notes           string    `json:"notes,omitempty"`
	CreatedByUserID string    `json:"createdByUserId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DayKey returns the entry's natural-key date component.
func (e SpendEntry) DayKey() string {
	return DayKey(e.Date)
}

// EditLog is the append-only audit record of an amount change.
type EditLog struct {
	ID                  string    `json:"id"`
	OrgID               string    `json:"orgId"`
	PlatformID          string    `json:"platformId"`
	UserID              string    `json:"userId"`
	PreviousAmountCents int64     `json:"previousAmountCents"`
	NewAmountCents      int64     `json:"newAmountCents"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Platform is an advertising channel spend is attributed to. An empty
// OrgID marks a global platform visible to every organization.
type Platform struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"orgId,omitempty"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// VisibleTo reports whether the platform can hold spend for orgID.
func (p Platform) VisibleTo(orgID string) bool {
	return p.OrgID == "" || p.OrgID == orgID
}

// Membership relates a user to an organization with a role.
type Membership struct {
	OrgID     string    `json:"orgId"`
	UserID    string    `json:"userId"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayKey renders t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}
