package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theirongolddev/spendgrid/internal/store"
)

func TestKey(t *testing.T) {
	tests := map[string]string{
		"Google Ads":          "google_ads",
		"  Meta  ":            "meta",
		"Bing & Yahoo":        "bing_and_yahoo",
		"Google Ads (Search)": "google_ads_search",
		"__TikTok--Ads__":     "tiktok_ads",
		"LinkedIn   Ads":      "linkedin_ads",
	}
	for in, want := range tests {
		assert.Equal(t, want, Key(in), in)
	}
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("Google Ads (Search)"))
	assert.True(t, ValidName(" snap_chat-2 "))
	assert.False(t, ValidName("Bing & Yahoo"))
	assert.False(t, ValidName("ads.example"))
	assert.False(t, ValidName("   "))
}

func TestRegistry_Create(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, store.SeedPlatforms(ctx, s))
	reg := NewRegistry(s)

	p, err := reg.Create(ctx, "org-1", "  TikTok Ads ", "tiktok")
	require.NoError(t, err)
	assert.Equal(t, "tiktok_ads", p.Key)
	assert.Equal(t, "TikTok Ads", p.Name)
	assert.Equal(t, "org-1", p.OrgID)

	_, err = reg.Create(ctx, "org-1", "TikTok  Ads", "")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = reg.Create(ctx, "org-1", "TikTok Two", "tiktok")
	assert.ErrorIs(t, err, ErrProviderExists)

	_, err = reg.Create(ctx, "org-2", "TikTok Ads", "tiktok")
	assert.NoError(t, err, "keys and providers are scoped per org")

	_, err = reg.Create(ctx, "org-1", "Bad/Name", "")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = reg.Create(ctx, "org-1", "", "")
	assert.ErrorIs(t, err, ErrInvalidName)

	list, err := reg.List(ctx, "org-1")
	require.NoError(t, err)
	var names []string
	for _, p := range list {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Google Ads", "LinkedIn Ads", "Meta", "TikTok Ads"}, names)
}
