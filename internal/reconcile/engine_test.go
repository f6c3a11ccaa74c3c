package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theirongolddev/spendgrid/internal/bulk"
	"github.com/theirongolddev/spendgrid/internal/model"
	"github.com/theirongolddev/spendgrid/internal/store"
)

const (
	org      = "org-1"
	platform = "google_ads"
	actor    = "alice"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T, s store.Store) *Engine {
	t.Helper()
	require.NoError(t, store.SeedPlatforms(context.Background(), s))
	e := NewEngine(s, "")
	e.now = func() time.Time { return fixedNow }
	return e
}

func engines(t *testing.T) map[string]func(t *testing.T) (*Engine, store.Store) {
	return map[string]func(t *testing.T) (*Engine, store.Store){
		"memory": func(t *testing.T) (*Engine, store.Store) {
			s := store.NewMemoryStore()
			return newTestEngine(t, s), s
		},
		"sqlite": func(t *testing.T) (*Engine, store.Store) {
			s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "spend.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return newTestEngine(t, s), s
		},
	}
}

func entriesByDay(t *testing.T, s store.Store) map[string]model.SpendEntry {
	t.Helper()
	list, err := s.ListEntries(context.Background(), org, platform, 0)
	require.NoError(t, err)
	out := make(map[string]model.SpendEntry, len(list))
	for _, e := range list {
		out[e.DayKey()] = e
	}
	return out
}

func editLogs(t *testing.T, s store.Store) []model.EditLog {
	t.Helper()
	logs, err := s.ListEditLogs(context.Background(), org, 0)
	require.NoError(t, err)
	return logs
}

func TestApplyBatch(t *testing.T) {
	for name, open := range engines(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("fresh dates all insert", func(t *testing.T) {
				e, s := open(t)
				rows := []Row{{"01/01/2024", 100}, {"01/02/2024", 200}, {"01/03/2024", 300}}
				res, err := e.ApplyBatch(ctx, actor, org, platform, rows)
				require.NoError(t, err)
				assert.Equal(t, Result{InsertedCount: 3, UpdatedCount: 0, TotalCount: 3}, res)

				got := entriesByDay(t, s)
				require.Len(t, got, 3)
				first := got["2024-01-01"]
				assert.Equal(t, int64(100), first.AmountCents)
				assert.Equal(t, model.SourceBulkImport, first.Source)
				assert.Equal(t, actor, first.CreatedByUserID)
				assert.Equal(t, model.DefaultCurrency, first.Currency)
				assert.Empty(t, editLogs(t, s))
			})

			t.Run("resubmitting is a no-op", func(t *testing.T) {
				e, s := open(t)
				rows := []Row{{"01/01/2024", 100}, {"01/02/2024", 200}}
				_, err := e.ApplyBatch(ctx, actor, org, platform, rows)
				require.NoError(t, err)

				res, err := e.ApplyBatch(ctx, actor, org, platform, rows)
				require.NoError(t, err)
				assert.Equal(t, Result{InsertedCount: 0, UpdatedCount: 0, TotalCount: 2}, res)
				assert.Empty(t, editLogs(t, s))
			})

			t.Run("one changed amount", func(t *testing.T) {
				e, s := open(t)
				_, err := e.ApplyBatch(ctx, actor, org, platform, []Row{{"01/01/2024", 100}, {"01/02/2024", 200}})
				require.NoError(t, err)

				res, err := e.ApplyBatch(ctx, "bob", org, platform, []Row{{"01/01/2024", 100}, {"01/02/2024", 250}})
				require.NoError(t, err)
				assert.Equal(t, Result{InsertedCount: 0, UpdatedCount: 1, TotalCount: 2}, res)

				logs := editLogs(t, s)
				require.Len(t, logs, 1)
				assert.Equal(t, int64(200), logs[0].PreviousAmountCents)
				assert.Equal(t, int64(250), logs[0].NewAmountCents)
				assert.Equal(t, "bob", logs[0].UserID)
				assert.Equal(t, platform, logs[0].PlatformID)
				assert.Equal(t, int64(250), entriesByDay(t, s)["2024-01-02"].AmountCents)
			})

			t.Run("repeated date last value wins", func(t *testing.T) {
				e, s := open(t)
				rows := []Row{{"01/05/2024", 100}, {"01/05/2024", 100}, {"01/05/2024", 300}}
				res, err := e.ApplyBatch(ctx, actor, org, platform, rows)
				require.NoError(t, err)
				assert.Equal(t, Result{InsertedCount: 1, UpdatedCount: 1, TotalCount: 3}, res)
				assert.Equal(t, int64(300), entriesByDay(t, s)["2024-01-05"].AmountCents)

				logs := editLogs(t, s)
				require.Len(t, logs, 1, "the unchanged repeat is not logged")
				assert.Equal(t, int64(100), logs[0].PreviousAmountCents)
				assert.Equal(t, int64(300), logs[0].NewAmountCents)
			})

			t.Run("invalid row rejects whole batch", func(t *testing.T) {
				e, s := open(t)
				_, err := e.ApplyBatch(ctx, actor, org, platform, []Row{{"01/01/2024", 100}, {"02/30/2024", 5}})
				var rowErr *RowError
				require.ErrorAs(t, err, &rowErr)
				assert.Equal(t, 1, rowErr.Index)
				assert.Equal(t, ReasonInvalidDate, rowErr.Reason)
				assert.Empty(t, entriesByDay(t, s))
			})

			t.Run("unknown platform", func(t *testing.T) {
				e, _ := open(t)
				_, err := e.ApplyBatch(ctx, actor, org, "nope", []Row{{"01/01/2024", 1}})
				assert.ErrorIs(t, err, ErrPlatformNotFound)
			})
		})
	}
}

func TestApplyBatch_PlatformOfOtherOrg(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	e := newTestEngine(t, s)
	other := &model.Platform{OrgID: "org-2", Key: "snap", Name: "Snap"}
	require.NoError(t, s.CreatePlatform(ctx, other))

	_, err := e.ApplyBatch(ctx, actor, org, other.ID, []Row{{"01/01/2024", 1}})
	assert.ErrorIs(t, err, ErrPlatformNotFound)

	_, err = e.ApplyBatch(ctx, actor, "org-2", other.ID, []Row{{"01/01/2024", 1}})
	assert.NoError(t, err)
}

func TestApplyBatch_RequestValidation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, store.NewMemoryStore())

	_, err := e.ApplyBatch(ctx, actor, "", platform, []Row{{"01/01/2024", 1}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = e.ApplyBatch(ctx, actor, org, "", []Row{{"01/01/2024", 1}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = e.ApplyBatch(ctx, actor, org, platform, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = e.ApplyBatch(ctx, actor, org, platform, []Row{{"2024-01-01", 1}})
	var rowErr *RowError
	assert.ErrorAs(t, err, &rowErr)
}

// failingStore fails the nth write made inside a transaction.
type failingStore struct {
	store.Store
	failAt int
}

type failingTx struct {
	store.Tx
	writes *int
	failAt int
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	writes := 0
	return f.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(&failingTx{Tx: tx, writes: &writes, failAt: f.failAt})
	})
}

func (t *failingTx) write() error {
	*t.writes++
	if *t.writes == t.failAt {
		return errDiskFull
	}
	return nil
}

func (t *failingTx) InsertEntry(ctx context.Context, e *model.SpendEntry) error {
	if err := t.write(); err != nil {
		return err
	}
	return t.Tx.InsertEntry(ctx, e)
}

func (t *failingTx) UpdateEntryAmount(ctx context.Context, id string, cents int64, src model.Source, at time.Time) error {
	if err := t.write(); err != nil {
		return err
	}
	return t.Tx.UpdateEntryAmount(ctx, id, cents, src, at)
}

func (t *failingTx) AppendEditLog(ctx context.Context, l *model.EditLog) error {
	if err := t.write(); err != nil {
		return err
	}
	return t.Tx.AppendEditLog(ctx, l)
}

func TestApplyBatch_RollsBackOnFailure(t *testing.T) {
	for name, open := range engines(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base, s := open(t)
			_, err := base.ApplyBatch(ctx, actor, org, platform, []Row{{"01/01/2024", 100}})
			require.NoError(t, err)

			// Writes: update 01/01, its edit log, insert 01/02 (fails).
			e := NewEngine(&failingStore{Store: s, failAt: 3}, "")
			_, err = e.ApplyBatch(ctx, actor, org, platform, []Row{{"01/01/2024", 150}, {"01/02/2024", 200}})
			require.ErrorIs(t, err, errDiskFull)

			got := entriesByDay(t, s)
			require.Len(t, got, 1)
			assert.Equal(t, int64(100), got["2024-01-01"].AmountCents)
			assert.Empty(t, editLogs(t, s))
		})
	}
}

func TestApplyBatch_FromParsedText(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	e := newTestEngine(t, s)

	rows := bulk.Parse("Date\tSpend\n01/02/2024\t$1,234.50\nbad\trow\n01/03/2024\t10")
	res, err := e.ApplyBatch(ctx, actor, org, platform, RowsFromEntries(bulk.ValidEntries(rows)))
	require.NoError(t, err)
	assert.Equal(t, 2, res.InsertedCount)
	assert.Equal(t, int64(123450), entriesByDay(t, s)["2024-01-02"].AmountCents)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	e := newTestEngine(t, s)
	day := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)

	created, err := e.Create(ctx, actor, org, platform, day, 500, "launch week")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.SourceManual, created.Source)
	assert.Equal(t, "2024-01-02", created.DayKey())
	assert.Equal(t, "launch week", created.Notes)
	assert.Equal(t, fixedNow, created.CreatedAt)

	_, err = e.Create(ctx, actor, org, platform, day, 500, "")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, DuplicateSame, conflict.Kind)
	assert.Equal(t, int64(500), conflict.ExistingAmountCents)
	assert.Equal(t, created.ID, conflict.EntryID)

	_, err = e.Create(ctx, actor, org, platform, day, 700, "")
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, DuplicateDifferent, conflict.Kind)
	assert.Equal(t, int64(500), conflict.ExistingAmountCents)
}

// staleStore hides existing entries from the first lookup, as if a
// competing writer committed between the read and the insert.
type staleStore struct {
	store.Store
	stale bool
}

type staleTx struct {
	store.Tx
	s *staleStore
}

func (r *staleStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return r.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(&staleTx{Tx: tx, s: r})
	})
}

func (t *staleTx) FindEntries(ctx context.Context, orgID, platformID string, days []time.Time) ([]model.SpendEntry, error) {
	if t.s.stale {
		t.s.stale = false
		return nil, nil
	}
	return t.Tx.FindEntries(ctx, orgID, platformID, days)
}

func TestCreate_LostRaceReportsConflict(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	_, err := newTestEngine(t, s).Create(ctx, "bob", org, platform, day, 999, "")
	require.NoError(t, err)

	e := NewEngine(&staleStore{Store: s, stale: true}, "")
	_, err = e.Create(ctx, actor, org, platform, day, 100, "")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, DuplicateDifferent, conflict.Kind)
	assert.Equal(t, int64(999), conflict.ExistingAmountCents)

	n, err := s.CountEntries(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestApplyBatch_LostRaceIsConcurrentImport(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	base := newTestEngine(t, s)
	_, err := base.ApplyBatch(ctx, "bob", org, platform, []Row{{"01/02/2024", 999}})
	require.NoError(t, err)

	e := NewEngine(&staleStore{Store: s, stale: true}, "")
	_, err = e.ApplyBatch(ctx, actor, org, platform, []Row{{"01/01/2024", 1}, {"01/02/2024", 2}})
	require.ErrorIs(t, err, ErrConcurrentImport)

	got := entriesByDay(t, s)
	assert.Len(t, got, 1, "the batch rolled back")
	assert.Equal(t, int64(999), got["2024-01-02"].AmountCents)
}

func TestOverwrite(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	e := newTestEngine(t, s)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := e.Overwrite(ctx, actor, org, platform, day, 100, ConfirmOverwrite)
	require.ErrorIs(t, err, ErrEntryNotFound)

	created, err := e.Create(ctx, actor, org, platform, day, 100, "")
	require.NoError(t, err)

	_, err = e.Overwrite(ctx, actor, org, platform, day, 100, ConfirmOverwrite)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, DuplicateSame, conflict.Kind)

	_, err = e.Overwrite(ctx, actor, org, platform, day, 250, "")
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, DuplicateDifferent, conflict.Kind)
	assert.Equal(t, int64(100), conflict.ExistingAmountCents)
	assert.Empty(t, editLogs(t, s), "unconfirmed overwrite writes nothing")

	id, err := e.Overwrite(ctx, "bob", org, platform, day, 250, ConfirmOverwrite)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)

	entry := entriesByDay(t, s)["2024-01-02"]
	assert.Equal(t, int64(250), entry.AmountCents)
	assert.Equal(t, model.SourceManual, entry.Source, "overwrite keeps the recorded source")

	logs := editLogs(t, s)
	require.Len(t, logs, 1)
	assert.Equal(t, model.EditLog{
		ID: logs[0].ID, OrgID: org, PlatformID: platform, UserID: "bob",
		PreviousAmountCents: 100, NewAmountCents: 250, CreatedAt: fixedNow,
	}, logs[0])
}

func TestResolve(t *testing.T) {
	assert.Equal(t, Insert, Resolve(nil, 5))
	assert.Equal(t, NoChange, Resolve(&model.SpendEntry{AmountCents: 5}, 5))
	assert.Equal(t, Change, Resolve(&model.SpendEntry{AmountCents: 5}, 6))
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("01/02/2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDay("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDay("02/30/2024")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

// brokenPlatforms fails every platform lookup.
type brokenPlatforms struct {
	store.Store
}

func (brokenPlatforms) GetPlatform(context.Context, string) (*model.Platform, error) {
	return nil, errDiskFull
}

func TestPlatform(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, store.NewMemoryStore())

	p, err := e.Platform(ctx, org, platform)
	require.NoError(t, err)
	assert.Equal(t, platform, p.ID)

	_, err = e.Platform(ctx, org, "myspace_ads")
	assert.ErrorIs(t, err, ErrPlatformNotFound)

	broken := NewEngine(brokenPlatforms{Store: store.NewMemoryStore()}, "")
	_, err = broken.Platform(ctx, org, platform)
	assert.ErrorIs(t, err, errDiskFull)
	assert.NotErrorIs(t, err, ErrPlatformNotFound)

	_, err = broken.ApplyBatch(ctx, actor, org, platform, []Row{{"01/01/2024", 100}})
	assert.ErrorIs(t, err, errDiskFull)
	assert.NotErrorIs(t, err, ErrPlatformNotFound)
}
