// Package common provides shared utilities across the application.
package common

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a content URL for dedup keys:
// scheme and host are lowercased, the default port is dropped, a trailing
// slash is stripped, and an empty path becomes "/". Query and fragment are
// preserved as submitted.
//
//	http://EXAMPLE.com/a/  -> http://example.com/a
//	http://example.com     -> http://example.com/
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url is empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q in %q", parsed.Scheme, raw)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	// Drop default ports.
	if (parsed.Scheme == "http" && strings.HasSuffix(parsed.Host, ":80")) ||
		(parsed.Scheme == "https" && strings.HasSuffix(parsed.Host, ":443")) {
		parsed.Host = parsed.Host[:strings.LastIndex(parsed.Host, ":")]
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	} else if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	parsed.RawPath = ""
	parsed.Path = path

	return parsed.String(), nil
}

// SitemapURL builds the canonical sitemap location for a site base URL and a
// sitemap type ("sitemap.xml" unless configured otherwise).
func SitemapURL(baseURL, sitemapType string) (string, error) {
	normalized, err := NormalizeURL(baseURL)
	if err != nil {
		return "", err
	}
	if sitemapType == "" {
		sitemapType = "sitemap.xml"
	}
	return strings.TrimSuffix(normalized, "/") + "/" + strings.TrimPrefix(sitemapType, "/"), nil
}

// LooksLikeSitemap reports whether a discovered <loc> value should be
// treated as a nested sitemap index rather than a content URL.
func LooksLikeSitemap(loc string) bool {
	lower := strings.ToLower(loc)
	if strings.HasSuffix(strings.SplitN(lower, "?", 2)[0], ".xml") {
		return true
	}
	return strings.Contains(lower, "sitemap")
}
