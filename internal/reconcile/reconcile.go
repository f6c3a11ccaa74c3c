// Package reconcile applies spend rows against stored entries with
// insert, update and no-op decisions inside one transaction.
package reconcile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/spendgrid/internal/bulk"
	"github.com/theirongolddev/spendgrid/internal/model"
)

// ConfirmOverwrite is the literal a caller sends to accept replacing an
// existing amount.
const ConfirmOverwrite = "overwrite"

// Decision is the outcome of comparing an incoming amount with the stored
// entry for the same day.
type Decision int

const (
	// Insert means no entry exists for the day.
	Insert Decision = iota
	// NoChange means the stored amount already equals the incoming one.
	NoChange
	// Change means the stored amount differs.
	Change
)

func (d Decision) String() string {
	switch d {
	case Insert:
		return "insert"
	case NoChange:
		return "no-change"
	case Change:
		return "change"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Resolve decides what to do with amountCents given the existing entry,
// which is nil when the day has no entry yet.
func Resolve(existing *model.SpendEntry, amountCents int64) Decision {
	switch {
	case existing == nil:
		return Insert
	case existing.AmountCents == amountCents:
		return NoChange
	default:
		return Change
	}
}

var (
	// ErrInvalidRequest wraps missing or malformed request fields.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPlatformNotFound means the platform isn't visible to the org.
	ErrPlatformNotFound = errors.New("platform not found")
	// ErrEntryNotFound means no entry exists for the (org, platform, day).
	ErrEntryNotFound = errors.New("spend entry not found")
	// ErrConcurrentImport means another writer created an overlapping
	// entry first. The whole batch was rolled back and can be retried.
	ErrConcurrentImport = errors.New("concurrent import touched the same dates")
)

// ConflictKind distinguishes a matching duplicate from a differing one.
type ConflictKind string

const (
	DuplicateSame      ConflictKind = "DUPLICATE_SAME"
	DuplicateDifferent ConflictKind = "DUPLICATE_DIFFERENT"
)

// ConflictError reports an existing entry for the requested day.
type ConflictError struct {
	Kind                ConflictKind
	EntryID             string
	ExistingAmountCents int64
}

func (e *ConflictError) Error() string {
	if e.Kind == DuplicateSame {
		return "spend entry already holds this amount"
	}
	return fmt.Sprintf("spend entry exists with a different amount (%d cents)", e.ExistingAmountCents)
}

func conflictFor(existing *model.SpendEntry, amountCents int64) *ConflictError {
	kind := DuplicateDifferent
	if Resolve(existing, amountCents) == NoChange {
		kind = DuplicateSame
	}
	return &ConflictError{Kind: kind, EntryID: existing.ID, ExistingAmountCents: existing.AmountCents}
}

// RowError rejects a batch because of one row. Index is 0-based.
type RowError struct {
	Index  int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Index, e.Reason)
}

// Row reasons reported by RowError.
const (
	ReasonInvalidDate   = "invalid row date"
	ReasonInvalidAmount = "invalid row amount"
)

// ParseDay accepts MM/DD/YYYY or YYYY-MM-DD and returns the UTC day.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, ok := bulk.ParseDate(s); ok {
		return d, nil
	}
	if d, err := time.Parse(model.DayLayout, s); err == nil {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("%w: date %q must be MM/DD/YYYY", ErrInvalidRequest, s)
}
