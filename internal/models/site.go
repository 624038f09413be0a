package models

import "time"

// Site is the per-site configuration consumed from the external settings
// store: which providers are enabled and where the site lives.
type Site struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	BaseURL   string     `json:"base_url"`
	Providers []Provider `json:"providers"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ProviderEnabled reports whether submissions to provider are enabled for
// this site.
func (s *Site) ProviderEnabled(p Provider) bool {
	for _, enabled := range s.Providers {
		if enabled == p {
			return true
		}
	}
	return false
}

// SitemapConfig describes one sitemap to poll for a site.
type SitemapConfig struct {
	ID          string     `json:"id"`
	SiteID      string     `json:"site_id"`
	SitemapType string     `json:"sitemap_type"` // e.g. "sitemap.xml", "rss"
	IsEnabled   bool       `json:"is_enabled"`
	LastParsed  *time.Time `json:"last_parsed,omitempty"`
}
