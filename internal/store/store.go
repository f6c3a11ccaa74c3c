// Package store persists spend entries, audit logs, platforms and memberships.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/spendgrid/internal/model"
)

var (
	// ErrNotFound is returned when a looked-up row doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned when a write violates a uniqueness constraint.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Store is the datastore used by the reconciliation engine and the API.
// Writes to spend entries and edit logs only happen inside WithTx.
type Store interface {
	// WithTx runs fn in one transaction, committing if fn returns nil and
	// rolling back every write otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetMembership(ctx context.Context, orgID, userID string) (*model.Membership, error)
	PutMembership(ctx context.Context, m model.Membership) error
	ListMemberships(ctx context.Context, orgID string) ([]model.Membership, error)

	GetPlatform(ctx context.Context, platformID string) (*model.Platform, error)
	FindPlatformByProvider(ctx context.Context, orgID, provider string) (*model.Platform, error)
	CreatePlatform(ctx context.Context, p *model.Platform) error
	// ListPlatforms returns the org's platforms plus global ones, by name.
	ListPlatforms(ctx context.Context, orgID string) ([]model.Platform, error)

	// ListEntries returns the newest entries first. An empty platformID
	// lists every platform of the org.
	ListEntries(ctx context.Context, orgID, platformID string, limit int) ([]model.SpendEntry, error)
	CountEntries(ctx context.Context, orgID string) (int, error)
	// ListEditLogs returns the newest audit rows first.
	ListEditLogs(ctx context.Context, orgID string, limit int) ([]model.EditLog, error)

	Close() error
}

// Tx is the narrow set of reads and writes reconciliation performs
// atomically.
type Tx interface {
	FindEntries(ctx context.Context, orgID, platformID string, days []time.Time) ([]model.SpendEntry, error)
	InsertEntry(ctx context.Context, e *model.SpendEntry) error
	UpdateEntryAmount(ctx context.Context, id string, amountCents int64, source model.Source, at time.Time) error
	AppendEditLog(ctx context.Context, l *model.EditLog) error
}

// Open returns the store selected by driver: "sqlite" (dsn is a file path)
// or "postgres" (dsn is a connection URL).
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "sqlite":
		return OpenSQLite(dsn)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, dsn)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// DefaultPlatforms are the global platforms every installation starts with.
var DefaultPlatforms = []model.Platform{
	{ID: "google_ads", Key: "google_ads", Name: "Google Ads"},
	{ID: "meta", Key: "meta", Name: "Meta"},
	{ID: "linkedin_ads", Key: "linkedin_ads", Name: "LinkedIn Ads"},
}

// SeedPlatforms creates any missing default platform.
func SeedPlatforms(ctx context.Context, s Store) error {
	for _, p := range DefaultPlatforms {
		if _, err := s.GetPlatform(ctx, p.ID); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("seeding platform %s: %w", p.Key, err)
		}
		p.CreatedAt = time.Now().UTC()
		if err := s.CreatePlatform(ctx, &p); err != nil && !errors.Is(err, ErrDuplicateKey) {
			return fmt.Errorf("seeding platform %s: %w", p.Key, err)
		}
	}
	return nil
}

func uniqueDays(days []time.Time) []string {
	seen := make(map[string]struct{}, len(days))
	out := make([]string, 0, len(days))
	for _, d := range days {
		k := model.DayKey(d)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
