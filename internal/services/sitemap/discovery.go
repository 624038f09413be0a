package sitemap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/interfaces"
	"github.com/submitto/submitto/internal/services/jobs"
)

const maxSitemapBody = 16 << 20 // sitemap protocol caps files at 50MB uncompressed; we stop well short

// Service polls enabled sitemap configurations, diffs discovered URLs
// against known submissions and creates jobs for the new ones.
type Service struct {
	configs  interfaces.SitemapStorage
	sites    interfaces.SiteStorage
	jobStore interfaces.JobStorage
	jobs     *jobs.Service

	settings *common.SitemapConfig
	client   *http.Client
	logger   arbor.ILogger
}

// NewService creates the sitemap discovery service.
func NewService(
	configs interfaces.SitemapStorage,
	sites interfaces.SiteStorage,
	jobStore interfaces.JobStorage,
	jobService *jobs.Service,
	settings *common.SitemapConfig,
	logger arbor.ILogger,
) *Service {
	timeout := time.Duration(settings.FetchTimeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		configs:  configs,
		sites:    sites,
		jobStore: jobStore,
		jobs:     jobService,
		settings: settings,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Run executes one discovery pass over every enabled sitemap configuration.
// A failing configuration is logged and skipped; it never blocks the others.
func (s *Service) Run(ctx context.Context) error {
	configs, err := s.configs.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sitemap configs: %w", err)
	}

	for _, config := range configs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.runOne(ctx, config.ID, config.SiteID, config.SitemapType); err != nil {
			s.logger.Warn().
				Err(err).
				Str("config_id", config.ID).
				Str("site_id", config.SiteID).
				Msg("Sitemap discovery pass failed for config")
		}
		// The poll timestamp advances even on failure so one broken
		// sitemap cannot pin the queue to its retry.
		if err := s.configs.MarkParsed(ctx, config.ID, time.Now()); err != nil {
			s.logger.Warn().Err(err).Str("config_id", config.ID).Msg("Failed to mark sitemap parsed")
		}
	}
	return nil
}

func (s *Service) runOne(ctx context.Context, configID, siteID, sitemapType string) error {
	site, err := s.sites.GetSite(ctx, siteID)
	if err != nil {
		return fmt.Errorf("failed to load site %q: %w", siteID, err)
	}

	rootURL, err := common.SitemapURL(site.BaseURL, sitemapType)
	if err != nil {
		return err
	}

	visited := make(map[string]bool)
	var discovered []Entry
	if err := s.collect(ctx, rootURL, 0, visited, &discovered); err != nil {
		return err
	}

	created, skipped := 0, 0
	for _, entry := range discovered {
		if s.settings.MaxURLsPerPass > 0 && created >= s.settings.MaxURLsPerPass {
			s.logger.Info().
				Str("site_id", siteID).
				Int("limit", s.settings.MaxURLsPerPass).
				Msg("Per-pass URL limit reached, deferring remainder to next pass")
			break
		}

		normalized, err := common.NormalizeURL(entry.Loc)
		if err != nil {
			s.logger.Debug().Err(err).Str("loc", entry.Loc).Msg("Skipping malformed sitemap URL")
			continue
		}

		known, err := s.jobStore.HasSiteURL(ctx, siteID, normalized)
		if err != nil {
			return fmt.Errorf("failed to check known URLs: %w", err)
		}
		if known {
			skipped++
			continue
		}

		isNew := false
		for _, provider := range site.Providers {
			job, didCreate, err := s.jobs.Create(ctx, siteID, provider, normalized)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("site_id", siteID).
					Str("provider", string(provider)).
					Str("url", normalized).
					Msg("Failed to create job for discovered URL")
				continue
			}
			if !didCreate {
				continue
			}
			isNew = true
			message := "discovered in sitemap " + rootURL
			if entry.LastMod != "" {
				message += ", lastmod " + entry.LastMod
			}
			s.jobs.AppendLog(ctx, job.ID, "info", message)
		}
		if isNew {
			created++
		}
	}

	s.logger.Info().
		Str("config_id", configID).
		Str("site_id", siteID).
		Int("discovered", len(discovered)).
		Int("new", created).
		Int("known", skipped).
		Msg("Sitemap discovery pass complete")
	return nil
}

// collect fetches one sitemap and recurses into child indexes. The visited
// set and depth bound make self-referential or circular indexes terminate.
func (s *Service) collect(ctx context.Context, loc string, depth int, visited map[string]bool, out *[]Entry) error {
	if visited[loc] {
		return nil
	}
	visited[loc] = true

	maxDepth := s.settings.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	data, err := s.fetch(ctx, loc)
	if err != nil {
		if depth == 0 {
			return err
		}
		// A broken child sitemap loses its URLs but not the whole pass.
		s.logger.Warn().Err(err).Str("loc", loc).Msg("Failed to fetch child sitemap")
		return nil
	}

	doc, err := Parse(data)
	if err != nil {
		if depth == 0 {
			return err
		}
		s.logger.Warn().Err(err).Str("loc", loc).Msg("Failed to parse child sitemap")
		return nil
	}

	for _, entry := range doc.URLs {
		if common.LooksLikeSitemap(entry.Loc) {
			doc.Children = append(doc.Children, entry.Loc)
			continue
		}
		*out = append(*out, entry)
	}

	if depth+1 > maxDepth {
		if len(doc.Children) > 0 {
			s.logger.Warn().
				Str("loc", loc).
				Int("children", len(doc.Children)).
				Int("max_depth", maxDepth).
				Msg("Sitemap nesting exceeds depth bound, children skipped")
		}
		return nil
	}

	for _, child := range doc.Children {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.collect(ctx, child, depth+1, visited, out); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) fetch(ctx context.Context, loc string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", loc, err)
	}
	if s.settings.UserAgent != "" {
		req.Header.Set("User-Agent", s.settings.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", loc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s returned status %d", loc, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSitemapBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", loc, err)
	}
	return data, nil
}
