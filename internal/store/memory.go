package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/theirongolddev/spendgrid/internal/model"
)

// MemoryStore implements Store interface with in-memory storage
type MemoryStore struct {
	mu sync.RWMutex

	entries     map[string]model.SpendEntry
	entryKeys   map[string]string // org|platform|day -> entry id
	editLogs    []model.EditLog
	platforms   map[string]model.Platform
	memberships map[string]model.Membership
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:     make(map[string]model.SpendEntry),
		entryKeys:   make(map[string]string),
		platforms:   make(map[string]model.Platform),
		memberships: make(map[string]model.Membership),
	}
}

func entryKey(orgID, platformID string, day time.Time) string {
	return orgID + "|" + platformID + "|" + model.DayKey(day)
}

func memberKey(orgID, userID string) string {
	return orgID + "|" + userID
}

// WithTx holds the write lock for the whole of fn and restores the entry
// and edit-log state if fn fails.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := maps.Clone(s.entries)
	keys := maps.Clone(s.entryKeys)
	logCount := len(s.editLogs)

	if err := fn(&memoryTx{s: s}); err != nil {
		s.entries = entries
		s.entryKeys = keys
		s.editLogs = s.editLogs[:logCount]
		return err
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetMembership(_ context.Context, orgID, userID string) (*model.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[memberKey(orgID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) PutMembership(_ context.Context, m model.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memberKey(m.OrgID, m.UserID)
	if prev, ok := s.memberships[k]; ok {
		m.CreatedAt = prev.CreatedAt
	} else if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.memberships[k] = m
	return nil
}

func (s *MemoryStore) ListMemberships(_ context.Context, orgID string) ([]model.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Membership
	for _, m := range s.memberships {
		if m.OrgID == orgID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *MemoryStore) GetPlatform(_ context.Context, platformID string) (*model.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.platforms[platformID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) FindPlatformByProvider(_ context.Context, orgID, provider string) (*model.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.platforms {
		if p.OrgID == orgID && p.Provider == provider {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreatePlatform(_ context.Context, p *model.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if _, ok := s.platforms[p.ID]; ok {
		return fmt.Errorf("%w: platform %s", ErrDuplicateKey, p.ID)
	}
	for _, other := range s.platforms {
		if other.OrgID == p.OrgID && other.Key == p.Key {
			return fmt.Errorf("%w: platform key %s", ErrDuplicateKey, p.Key)
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.platforms[p.ID] = *p
	return nil
}

func (s *MemoryStore) ListPlatforms(_ context.Context, orgID string) ([]model.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Platform
	for _, p := range s.platforms {
		if p.VisibleTo(orgID) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ListEntries(_ context.Context, orgID, platformID string, limit int) ([]model.SpendEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.SpendEntry
	for _, e := range s.entries {
		if e.OrgID == orgID && (platformID == "" || e.PlatformID == platformID) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].PlatformID < out[j].PlatformID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountEntries(_ context.Context, orgID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e.OrgID == orgID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListEditLogs(_ context.Context, orgID string, limit int) ([]model.EditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.EditLog
	for _, l := range slices.Backward(s.editLogs) {
		if l.OrgID != orgID {
			continue
		}
		out = append(out, l)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// memoryTx runs under the store's write lock.
type memoryTx struct {
	s *MemoryStore
}

func (t *memoryTx) FindEntries(_ context.Context, orgID, platformID string, days []time.Time) ([]model.SpendEntry, error) {
	var out []model.SpendEntry
	for _, day := range uniqueDays(days) {
		if id, ok := t.s.entryKeys[orgID+"|"+platformID+"|"+day]; ok {
			out = append(out, t.s.entries[id])
		}
	}
	return out, nil
}

func (t *memoryTx) InsertEntry(_ context.Context, e *model.SpendEntry) error {
	k := entryKey(e.OrgID, e.PlatformID, e.Date)
	if _, ok := t.s.entryKeys[k]; ok {
		return fmt.Errorf("%w: spend entry %s", ErrDuplicateKey, k)
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	t.s.entries[e.ID] = *e
	t.s.entryKeys[k] = e.ID
	return nil
}

func (t *memoryTx) UpdateEntryAmount(_ context.Context, id string, amountCents int64, source model.Source, at time.Time) error {
	e, ok := t.s.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.AmountCents = amountCents
	e.Source = source
	e.UpdatedAt = at
	t.s.entries[id] = e
	return nil
}

func (t *memoryTx) AppendEditLog(_ context.Context, l *model.EditLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	t.s.editLogs = append(t.s.editLogs, *l)
	return nil
}
