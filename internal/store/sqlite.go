package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/theirongolddev/spendgrid/internal/model"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timeLayout keeps stored timestamps fixed-width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// SQLiteStore is the single-node Store backed by a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening spend db: %w", err)
	}
	// One writer at a time; immediate transactions queue behind it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WithTx implements Store.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapSQLiteErr(err)
	}
	return nil
}

func (s *SQLiteStore) GetMembership(ctx context.Context, orgID, userID string) (*model.Membership, error) {
	var m model.Membership
	var created string
	err := s.db.QueryRowContext(ctx,
		"SELECT org_id, user_id, role, created_at FROM memberships WHERE org_id = ? AND user_id = ?",
		orgID, userID,
	).Scan(&m.OrgID, &m.UserID, &m.Role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.CreatedAt = parseTime(created)
	return &m, nil
}

func (s *SQLiteStore) PutMembership(ctx context.Context, m model.Membership) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO memberships (org_id, user_id, role, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (org_id, user_id) DO UPDATE SET role = excluded.role`,
		m.OrgID, m.UserID, int(m.Role), formatTime(m.CreatedAt),
	)
	return err
}

func (s *SQLiteStore) ListMemberships(ctx context.Context, orgID string) ([]model.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT org_id, user_id, role, created_at FROM memberships WHERE org_id = ? ORDER BY user_id",
		orgID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Membership
	for rows.Next() {
		var m model.Membership
		var created string
		if err := rows.Scan(&m.OrgID, &m.UserID, &m.Role, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

const platformColumns = "id, org_id, key, name, provider, created_at"

func scanPlatform(row interface{ Scan(...any) error }) (*model.Platform, error) {
	var p model.Platform
	var created string
	if err := row.Scan(&p.ID, &p.OrgID, &p.Key, &p.Name, &p.Provider, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = parseTime(created)
	return &p, nil
}

func (s *SQLiteStore) GetPlatform(ctx context.Context, platformID string) (*model.Platform, error) {
	return scanPlatform(s.db.QueryRowContext(ctx,
		"SELECT "+platformColumns+" FROM platforms WHERE id = ?", platformID))
}

func (s *SQLiteStore) FindPlatformByProvider(ctx context.Context, orgID, provider string) (*model.Platform, error) {
	return scanPlatform(s.db.QueryRowContext(ctx,
		"SELECT "+platformColumns+" FROM platforms WHERE org_id = ? AND provider = ? LIMIT 1",
		orgID, provider))
}

func (s *SQLiteStore) CreatePlatform(ctx context.Context, p *model.Platform) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO platforms ("+platformColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		p.ID, p.OrgID, p.Key, p.Name, p.Provider, formatTime(p.CreatedAt))
	return mapSQLiteErr(err)
}

func (s *SQLiteStore) ListPlatforms(ctx context.Context, orgID string) ([]model.Platform, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+platformColumns+" FROM platforms WHERE org_id = ? OR org_id = '' ORDER BY name, id",
		orgID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Platform
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

const entryColumns = `id, org_id, platform_id, day, amount_cents, currency, source, notes,
	COALESCE(created_by_user_id, ''), created_at, updated_at`

func scanEntry(row interface{ Scan(...any) error }) (model.SpendEntry, error) {
	var e model.SpendEntry
	var day, created, updated string
	err := row.Scan(&e.ID, &e.OrgID, &e.PlatformID, &day, &e.AmountCents, &e.Currency,
		&e.Source, &e.Notes, &e.CreatedByUserID, &created, &updated)
	if err != nil {
		return e, err
	}
	e.Date, err = time.Parse(model.DayLayout, day)
	if err != nil {
		return e, fmt.Errorf("entry %s: bad day %q: %w", e.ID, day, err)
	}
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	return e, nil
}

func (s *SQLiteStore) ListEntries(ctx context.Context, orgID, platformID string, limit int) ([]model.SpendEntry, error) {
	query := "SELECT " + entryColumns + " FROM spend_entries WHERE org_id = ?"
	args := []any{orgID}
	if platformID != "" {
		query += " AND platform_id = ?"
		args = append(args, platformID)
	}
	query += " ORDER BY day DESC, platform_id LIMIT ?"
	args = append(args, limitOrAll(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.SpendEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountEntries(ctx context.Context, orgID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spend_entries WHERE org_id = ?", orgID).Scan(&n)
	return n, err
}

func (s *SQLiteStore) ListEditLogs(ctx context.Context, orgID string, limit int) ([]model.EditLog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, org_id, platform_id, user_id,
		previous_amount_cents, new_amount_cents, created_at
		FROM edit_logs WHERE org_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		orgID, limitOrAll(limit))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.EditLog
	for rows.Next() {
		var l model.EditLog
		var created string
		if err := rows.Scan(&l.ID, &l.OrgID, &l.PlatformID, &l.UserID,
			&l.PreviousAmountCents, &l.NewAmountCents, &created); err != nil {
			return nil, err
		}
		l.CreatedAt = parseTime(created)
		out = append(out, l)
	}
	return out, rows.Err()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) FindEntries(ctx context.Context, orgID, platformID string, days []time.Time) ([]model.SpendEntry, error) {
	keys := uniqueDays(days)
	if len(keys) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(keys)+2)
	args = append(args, orgID, platformID)
	for _, k := range keys {
		args = append(args, k)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	rows, err := t.tx.QueryContext(ctx, "SELECT "+entryColumns+
		" FROM spend_entries WHERE org_id = ? AND platform_id = ? AND day IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.SpendEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *sqliteTx) InsertEntry(ctx context.Context, e *model.SpendEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := t.tx.ExecContext(ctx, `INSERT INTO spend_entries
		(id, org_id, platform_id, day, amount_cents, currency, source, notes,
		 created_by_user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?)`,
		e.ID, e.OrgID, e.PlatformID, e.DayKey(), e.AmountCents, e.Currency, string(e.Source), e.Notes,
		e.CreatedByUserID, formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	return mapSQLiteErr(err)
}

func (t *sqliteTx) UpdateEntryAmount(ctx context.Context, id string, amountCents int64, source model.Source, at time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE spend_entries SET amount_cents = ?, source = ?, updated_at = ? WHERE id = ?",
		amountCents, string(source), formatTime(at), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *sqliteTx) AppendEditLog(ctx context.Context, l *model.EditLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	_, err := t.tx.ExecContext(ctx, `INSERT INTO edit_logs
		(id, org_id, platform_id, user_id, previous_amount_cents, new_amount_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OrgID, l.PlatformID, l.UserID, l.PreviousAmountCents, l.NewAmountCents, formatTime(l.CreatedAt))
	return err
}

func mapSQLiteErr(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
