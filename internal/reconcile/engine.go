package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/spendgrid/internal/bulk"
	"github.com/theirongolddev/spendgrid/internal/model"
	"github.com/theirongolddev/spendgrid/internal/store"
)

// Row is one already-parsed (date, amount) pair of a batch. Date is
// MM/DD/YYYY.
type Row struct {
	Date        string `json:"date"`
	AmountCents int64  `json:"amountCents"`
}

// RowsFromEntries converts the valid rows of a parse into batch rows.
func RowsFromEntries(entries []bulk.Entry) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{Date: e.Date, AmountCents: e.AmountCents}
	}
	return rows
}

// Result summarizes an applied batch.
type Result struct {
	InsertedCount int `json:"insertedCount"`
	UpdatedCount  int `json:"updatedCount"`
	TotalCount    int `json:"totalCount"`
}

// Engine reconciles spend writes against a Store.
type Engine struct {
	store    store.Store
	currency string
	now      func() time.Time
}

// NewEngine returns an Engine stamping new entries with currency, or
// model.DefaultCurrency when empty.
func NewEngine(s store.Store, currency string) *Engine {
	if currency == "" {
		currency = model.DefaultCurrency
	}
	return &Engine{store: s, currency: currency, now: time.Now}
}

// Platform returns the platform if orgID can see it. A missing or foreign
// platform is ErrPlatformNotFound; other store failures are wrapped as is.
func (e *Engine) Platform(ctx context.Context, orgID, platformID string) (*model.Platform, error) {
	p, err := e.store.GetPlatform(ctx, platformID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPlatformNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading platform: %w", err)
	}
	if !p.VisibleTo(orgID) {
		return nil, ErrPlatformNotFound
	}
	return p, nil
}

func (e *Engine) checkPlatform(ctx context.Context, orgID, platformID string) error {
	_, err := e.Platform(ctx, orgID, platformID)
	return err
}

func requireIDs(orgID, platformID string) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgId required", ErrInvalidRequest)
	}
	if platformID == "" {
		return fmt.Errorf("%w: platformId required", ErrInvalidRequest)
	}
	return nil
}

// ApplyBatch validates every row, then inserts new days, updates changed
// amounts with an EditLog each, and skips unchanged ones, all in one
// transaction. Rows are applied in order, so the last amount for a repeated
// date wins.
func (e *Engine) ApplyBatch(ctx context.Context, actor, orgID, platformID string, rows []Row) (Result, error) {
	if err := requireIDs(orgID, platformID); err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("%w: rows required", ErrInvalidRequest)
	}

	days := make([]time.Time, len(rows))
	for i, row := range rows {
		d, ok := bulk.ParseDate(row.Date)
		if !ok {
			return Result{}, &RowError{Index: i, Reason: ReasonInvalidDate}
		}
		days[i] = d
	}

	if err := e.checkPlatform(ctx, orgID, platformID); err != nil {
		return Result{}, err
	}

	var res Result
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		res = Result{TotalCount: len(rows)}

		found, err := tx.FindEntries(ctx, orgID, platformID, days)
		if err != nil {
			return fmt.Errorf("loading existing entries: %w", err)
		}
		byDay := make(map[string]*model.SpendEntry, len(found))
		for i := range found {
			byDay[found[i].DayKey()] = &found[i]
		}

		now := e.now().UTC()
		for i, row := range rows {
			key := model.DayKey(days[i])
			existing := byDay[key]

			switch Resolve(existing, row.AmountCents) {
			case Insert:
				entry := &model.SpendEntry{
					OrgID:           orgID,
					PlatformID:      platformID,
					Date:            days[i],
					AmountCents:     row.AmountCents,
					Currency:        e.currency,
					Source:          model.SourceBulkImport,
					CreatedByUserID: actor,
					CreatedAt:       now,
					UpdatedAt:       now,
				}
				if err := tx.InsertEntry(ctx, entry); err != nil {
					return fmt.Errorf("inserting %s: %w", key, err)
				}
				byDay[key] = entry
				res.InsertedCount++

			case NoChange:

			case Change:
				if err := e.change(ctx, tx, actor, existing, row.AmountCents, model.SourceBulkImport, now); err != nil {
					return err
				}
				res.UpdatedCount++
			}
		}
		return nil
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		return Result{}, fmt.Errorf("%w: %v", ErrConcurrentImport, err)
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// change updates existing to amountCents and records the edit. existing is
// updated in place so later rows of the same batch see the new amount.
func (e *Engine) change(ctx context.Context, tx store.Tx, actor string, existing *model.SpendEntry, amountCents int64, source model.Source, now time.Time) error {
	if err := tx.UpdateEntryAmount(ctx, existing.ID, amountCents, source, now); err != nil {
		return fmt.Errorf("updating %s: %w", existing.DayKey(), err)
	}
	edit := &model.EditLog{
		OrgID:               existing.OrgID,
		PlatformID:          existing.PlatformID,
		UserID:              actor,
		PreviousAmountCents: existing.AmountCents,
		NewAmountCents:      amountCents,
		CreatedAt:           now,
	}
	if err := tx.AppendEditLog(ctx, edit); err != nil {
		return fmt.Errorf("writing edit log: %w", err)
	}
	existing.AmountCents = amountCents
	existing.Source = source
	existing.UpdatedAt = now
	return nil
}

// Create records a single MANUAL entry. An existing entry for the day is
// reported as a *ConflictError so the caller can offer an overwrite.
func (e *Engine) Create(ctx context.Context, actor, orgID, platformID string, day time.Time, amountCents int64, notes string) (*model.SpendEntry, error) {
	if err := requireIDs(orgID, platformID); err != nil {
		return nil, err
	}
	if err := e.checkPlatform(ctx, orgID, platformID); err != nil {
		return nil, err
	}
	day = model.Day(day)

	var created *model.SpendEntry
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := findOne(ctx, tx, orgID, platformID, day)
		if err != nil {
			return err
		}
		if existing != nil {
			return conflictFor(existing, amountCents)
		}

		now := e.now().UTC()
		created = &model.SpendEntry{
			OrgID:           orgID,
			PlatformID:      platformID,
			Date:            day,
			AmountCents:     amountCents,
			Currency:        e.currency,
			Source:          model.SourceManual,
			Notes:           notes,
			CreatedByUserID: actor,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return tx.InsertEntry(ctx, created)
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		return nil, e.lostRace(ctx, orgID, platformID, day, amountCents)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// lostRace re-reads the entry a concurrent writer created first and reports
// it through the conflict contract.
func (e *Engine) lostRace(ctx context.Context, orgID, platformID string, day time.Time, amountCents int64) error {
	var conflict error = ErrConcurrentImport
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := findOne(ctx, tx, orgID, platformID, day)
		if err != nil {
			return err
		}
		if existing != nil {
			conflict = conflictFor(existing, amountCents)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return conflict
}

// Overwrite replaces the amount of an existing entry. It requires confirm
// to equal ConfirmOverwrite when the amount differs and returns the entry id.
func (e *Engine) Overwrite(ctx context.Context, actor, orgID, platformID string, day time.Time, amountCents int64, confirm string) (string, error) {
	if err := requireIDs(orgID, platformID); err != nil {
		return "", err
	}
	if err := e.checkPlatform(ctx, orgID, platformID); err != nil {
		return "", err
	}
	day = model.Day(day)

	var id string
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := findOne(ctx, tx, orgID, platformID, day)
		if err != nil {
			return err
		}
		switch Resolve(existing, amountCents) {
		case Insert:
			return ErrEntryNotFound
		case NoChange:
			return conflictFor(existing, amountCents)
		}
		if confirm != ConfirmOverwrite {
			return conflictFor(existing, amountCents)
		}
		// The entry keeps the source it was recorded with.
		if err := e.change(ctx, tx, actor, existing, amountCents, existing.Source, e.now().UTC()); err != nil {
			return err
		}
		id = existing.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func findOne(ctx context.Context, tx store.Tx, orgID, platformID string, day time.Time) (*model.SpendEntry, error) {
	found, err := tx.FindEntries(ctx, orgID, platformID, []time.Time{day})
	if err != nil {
		return nil, fmt.Errorf("loading entry: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}
