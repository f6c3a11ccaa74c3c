// Package platform manages the advertising platforms spend is recorded
// against.
package platform

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/theirongolddev/spendgrid/internal/model"
	"github.com/theirongolddev/spendgrid/internal/store"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrInvalidName rejects names outside letters, digits, space, _ - ( ).
	ErrInvalidName = errors.New("invalid name format")
	// ErrAlreadyExists means the org already has a platform with this key.
	ErrAlreadyExists = errors.New("ALREADY_EXISTS")
	// ErrProviderExists means the org already linked a platform to this provider.
	ErrProviderExists = errors.New("PROVIDER_EXISTS")
)

var (
	namePattern = regexp.MustCompile(`^[a-zA-Z0-9 _\-()]+$`)
	nonAlnum    = regexp.MustCompile(`[^a-z0-9]+`)
	lower       = cases.Lower(language.Und)
)

// Key normalizes a display name into a stable identifier:
// "Google Ads (Search)" -> "google_ads_search".
func Key(name string) string {
	k := lower.String(strings.TrimSpace(name))
	k = strings.ReplaceAll(k, "&", "and")
	k = nonAlnum.ReplaceAllString(k, "_")
	return strings.Trim(k, "_")
}

// ValidName reports whether name, once trimmed, is an acceptable platform name.
func ValidName(name string) bool {
	return namePattern.MatchString(strings.TrimSpace(name))
}

// Registry creates and lists platforms.
type Registry struct {
	store store.Store
}

func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s}
}

// Create adds an org-owned platform. provider is optional.
func (r *Registry) Create(ctx context.Context, orgID, name, provider string) (*model.Platform, error) {
	name = strings.TrimSpace(name)
	provider = strings.TrimSpace(provider)
	if orgID == "" || name == "" {
		return nil, fmt.Errorf("%w: name and orgId required", ErrInvalidName)
	}
	if !ValidName(name) {
		return nil, ErrInvalidName
	}
	key := Key(name)
	if key == "" {
		return nil, ErrInvalidName
	}

	if provider != "" {
		_, err := r.store.FindPlatformByProvider(ctx, orgID, provider)
		if err == nil {
			return nil, ErrProviderExists
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("checking provider: %w", err)
		}
	}

	p := &model.Platform{OrgID: orgID, Key: key, Name: name, Provider: provider}
	if err := r.store.CreatePlatform(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("creating platform: %w", err)
	}
	return p, nil
}

// List returns the org's platforms and the global ones, sorted by name.
func (r *Registry) List(ctx context.Context, orgID string) ([]model.Platform, error) {
	return r.store.ListPlatforms(ctx, orgID)
}
