package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/theirongolddev/spendgrid/internal/model"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// PostgresStore is the multi-node Store backed by a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to url and applies the schema.
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// WithTx implements Store.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgErr(err)
	}
	return nil
}

func (s *PostgresStore) GetMembership(ctx context.Context, orgID, userID string) (*model.Membership, error) {
	var m model.Membership
	var role int16
	err := s.pool.QueryRow(ctx,
		"SELECT org_id, user_id, role, created_at FROM memberships WHERE org_id = $1 AND user_id = $2",
		orgID, userID,
	).Scan(&m.OrgID, &m.UserID, &role, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Role = model.Role(role)
	return &m, nil
}

func (s *PostgresStore) PutMembership(ctx context.Context, m model.Membership) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO memberships (org_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (org_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		m.OrgID, m.UserID, int16(m.Role), m.CreatedAt.UTC())
	return err
}

func (s *PostgresStore) ListMemberships(ctx context.Context, orgID string) ([]model.Membership, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT org_id, user_id, role, created_at FROM memberships WHERE org_id = $1 ORDER BY user_id", orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Membership
	for rows.Next() {
		var m model.Membership
		var role int16
		if err := rows.Scan(&m.OrgID, &m.UserID, &role, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = model.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanPgPlatform(row pgx.Row) (*model.Platform, error) {
	var p model.Platform
	if err := row.Scan(&p.ID, &p.OrgID, &p.Key, &p.Name, &p.Provider, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) GetPlatform(ctx context.Context, platformID string) (*model.Platform, error) {
	return scanPgPlatform(s.pool.QueryRow(ctx,
		"SELECT "+platformColumns+" FROM platforms WHERE id = $1", platformID))
}

func (s *PostgresStore) FindPlatformByProvider(ctx context.Context, orgID, provider string) (*model.Platform, error) {
	return scanPgPlatform(s.pool.QueryRow(ctx,
		"SELECT "+platformColumns+" FROM platforms WHERE org_id = $1 AND provider = $2 LIMIT 1",
		orgID, provider))
}

func (s *PostgresStore) CreatePlatform(ctx context.Context, p *model.Platform) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		"INSERT INTO platforms ("+platformColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		p.ID, p.OrgID, p.Key, p.Name, p.Provider, p.CreatedAt.UTC())
	return mapPgErr(err)
}

func (s *PostgresStore) ListPlatforms(ctx context.Context, orgID string) ([]model.Platform, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+platformColumns+" FROM platforms WHERE org_id = $1 OR org_id = '' ORDER BY name, id", orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Platform
	for rows.Next() {
		p, err := scanPgPlatform(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPgEntry(row pgx.Row) (model.SpendEntry, error) {
	var e model.SpendEntry
	var source string
	err := row.Scan(&e.ID, &e.OrgID, &e.PlatformID, &e.Date, &e.AmountCents, &e.Currency,
		&source, &e.Notes, &e.CreatedByUserID, &e.CreatedAt, &e.UpdatedAt)
	e.Source = model.Source(source)
	e.Date = model.Day(e.Date)
	return e, err
}

func collectPgEntries(rows pgx.Rows) ([]model.SpendEntry, error) {
	defer rows.Close()
	var out []model.SpendEntry
	for rows.Next() {
		e, err := scanPgEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListEntries(ctx context.Context, orgID, platformID string, limit int) ([]model.SpendEntry, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx, "SELECT "+entryColumns+` FROM spend_entries
		WHERE org_id = $1 AND ($2 = '' OR platform_id = $2)
		ORDER BY day DESC, platform_id LIMIT $3`,
		orgID, platformID, lim)
	if err != nil {
		return nil, err
	}
	return collectPgEntries(rows)
}

func (s *PostgresStore) CountEntries(ctx context.Context, orgID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM spend_entries WHERE org_id = $1", orgID).Scan(&n)
	return n, err
}

func (s *PostgresStore) ListEditLogs(ctx context.Context, orgID string, limit int) ([]model.EditLog, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx, `SELECT id, org_id, platform_id, user_id,
		previous_amount_cents, new_amount_cents, created_at
		FROM edit_logs WHERE org_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		orgID, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EditLog
	for rows.Next() {
		var l model.EditLog
		if err := rows.Scan(&l.ID, &l.OrgID, &l.PlatformID, &l.UserID,
			&l.PreviousAmountCents, &l.NewAmountCents, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) FindEntries(ctx context.Context, orgID, platformID string, days []time.Time) ([]model.SpendEntry, error) {
	keys := uniqueDays(days)
	if len(keys) == 0 {
		return nil, nil
	}
	rows, err := t.tx.Query(ctx, "SELECT "+entryColumns+` FROM spend_entries
		WHERE org_id = $1 AND platform_id = $2 AND day = ANY($3::date[])`,
		orgID, platformID, keys)
	if err != nil {
		return nil, err
	}
	return collectPgEntries(rows)
}

func (t *pgTx) InsertEntry(ctx context.Context, e *model.SpendEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO spend_entries
		(id, org_id, platform_id, day, amount_cents, currency, source, notes,
		 created_by_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)`,
		e.ID, e.OrgID, e.PlatformID, e.DayKey(), e.AmountCents, e.Currency, string(e.Source), e.Notes,
		e.CreatedByUserID, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	return mapPgErr(err)
}

func (t *pgTx) UpdateEntryAmount(ctx context.Context, id string, amountCents int64, source model.Source, at time.Time) error {
	tag, err := t.tx.Exec(ctx,
		"UPDATE spend_entries SET amount_cents = $1, source = $2, updated_at = $3 WHERE id = $4",
		amountCents, string(source), at.UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) AppendEditLog(ctx context.Context, l *model.EditLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO edit_logs
		(id, org_id, platform_id, user_id, previous_amount_cents, new_amount_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.OrgID, l.PlatformID, l.UserID, l.PreviousAmountCents, l.NewAmountCents, l.CreatedAt.UTC())
	return err
}

func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pgErr.ConstraintName)
	}
	return err
}
