package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submitto/submitto/internal/interfaces"
	"github.com/submitto/submitto/internal/models"
)

func TestSiteStorage_SaveAndGet(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.Sites()
	ctx := context.Background()

	site := &models.Site{
		ID:        "blog",
		Name:      "Blog",
		BaseURL:   "https://blog.example.com",
		Providers: []models.Provider{models.ProviderGoogle, models.ProviderNaver},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, storage.SaveSite(ctx, site))

	loaded, err := storage.GetSite(ctx, "blog")
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.com", loaded.BaseURL)
	assert.True(t, loaded.ProviderEnabled(models.ProviderNaver))
	assert.False(t, loaded.ProviderEnabled(models.ProviderBing))
}

func TestSiteStorage_GetMissing(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.Sites().GetSite(context.Background(), "nope")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestSiteStorage_SaveRequiresID(t *testing.T) {
	manager := newTestManager(t)

	err := manager.Sites().SaveSite(context.Background(), &models.Site{BaseURL: "https://x.example.com"})
	assert.Error(t, err)
}

func TestSiteStorage_List(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.Sites()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, storage.SaveSite(ctx, &models.Site{
			ID:      id,
			BaseURL: "https://" + id + ".example.com",
		}))
	}

	sites, err := storage.ListSites(ctx)
	require.NoError(t, err)
	assert.Len(t, sites, 3)
}

func TestSitemapStorage_ListEnabled(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.Sitemaps()
	ctx := context.Background()

	require.NoError(t, storage.SaveConfig(ctx, &models.SitemapConfig{
		ID: "blog|sitemap.xml", SiteID: "blog", SitemapType: "sitemap.xml", IsEnabled: true,
	}))
	require.NoError(t, storage.SaveConfig(ctx, &models.SitemapConfig{
		ID: "blog|rss", SiteID: "blog", SitemapType: "rss", IsEnabled: false,
	}))

	configs, err := storage.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "blog|sitemap.xml", configs[0].ID)
}

func TestSitemapStorage_MarkParsed(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.Sitemaps()
	ctx := context.Background()

	require.NoError(t, storage.SaveConfig(ctx, &models.SitemapConfig{
		ID: "blog|sitemap.xml", SiteID: "blog", SitemapType: "sitemap.xml", IsEnabled: true,
	}))

	parsedAt := time.Now()
	require.NoError(t, storage.MarkParsed(ctx, "blog|sitemap.xml", parsedAt))

	configs, err := storage.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.NotNil(t, configs[0].LastParsed)
	assert.WithinDuration(t, parsedAt, *configs[0].LastParsed, time.Second)

	assert.ErrorIs(t, storage.MarkParsed(ctx, "missing", parsedAt), interfaces.ErrNotFound)
}
