package common

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases scheme and host",
			input:    "HTTP://EXAMPLE.com/Path",
			expected: "http://example.com/Path",
		},
		{
			name:     "strips trailing slash",
			input:    "https://example.com/a/b/",
			expected: "https://example.com/a/b",
		},
		{
			name:     "empty path becomes root",
			input:    "https://example.com",
			expected: "https://example.com/",
		},
		{
			name:     "root path stays root",
			input:    "https://example.com/",
			expected: "https://example.com/",
		},
		{
			name:     "drops default http port",
			input:    "http://example.com:80/page",
			expected: "http://example.com/page",
		},
		{
			name:     "drops default https port",
			input:    "https://example.com:443/page",
			expected: "https://example.com/page",
		},
		{
			name:     "keeps non-default port",
			input:    "https://example.com:8443/page",
			expected: "https://example.com:8443/page",
		},
		{
			name:     "preserves query",
			input:    "https://example.com/search?q=GO&page=2",
			expected: "https://example.com/search?q=GO&page=2",
		},
		{
			name:     "trims surrounding whitespace",
			input:    "  https://example.com/page  ",
			expected: "https://example.com/page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if err != nil {
				t.Fatalf("NormalizeURL(%q) returned error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeURLRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace only", input: "   "},
		{name: "ftp scheme", input: "ftp://example.com/file"},
		{name: "no host", input: "https:///path"},
		{name: "relative path", input: "/just/a/path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NormalizeURL(tt.input); err == nil {
				t.Errorf("NormalizeURL(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestNormalizeURLIsStable(t *testing.T) {
	// Normalizing twice must give the same result, otherwise dedup keys drift.
	inputs := []string{
		"HTTP://EXAMPLE.com/A/",
		"https://example.com",
		"https://example.com:443/x?q=1",
	}
	for _, input := range inputs {
		once, err := NormalizeURL(input)
		if err != nil {
			t.Fatalf("first pass failed for %q: %v", input, err)
		}
		twice, err := NormalizeURL(once)
		if err != nil {
			t.Fatalf("second pass failed for %q: %v", once, err)
		}
		if once != twice {
			t.Errorf("normalization not idempotent: %q -> %q -> %q", input, once, twice)
		}
	}
}

func TestSitemapURL(t *testing.T) {
	tests := []struct {
		name        string
		baseURL     string
		sitemapType string
		expected    string
	}{
		{
			name:        "default type",
			baseURL:     "https://example.com",
			sitemapType: "",
			expected:    "https://example.com/sitemap.xml",
		},
		{
			name:        "custom type",
			baseURL:     "https://example.com/",
			sitemapType: "sitemap-news.xml",
			expected:    "https://example.com/sitemap-news.xml",
		},
		{
			name:        "leading slash in type",
			baseURL:     "https://example.com",
			sitemapType: "/sitemap.xml",
			expected:    "https://example.com/sitemap.xml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SitemapURL(tt.baseURL, tt.sitemapType)
			if err != nil {
				t.Fatalf("SitemapURL returned error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("SitemapURL(%q, %q) = %q, want %q", tt.baseURL, tt.sitemapType, got, tt.expected)
			}
		})
	}
}

func TestLooksLikeSitemap(t *testing.T) {
	tests := []struct {
		loc      string
		expected bool
	}{
		{"https://example.com/sitemap.xml", true},
		{"https://example.com/sitemap-posts.XML", true},
		{"https://example.com/sitemap.xml?page=2", true},
		{"https://example.com/sitemaps/part1", true},
		{"https://example.com/blog/post-1", false},
		{"https://example.com/feed.rss", false},
	}

	for _, tt := range tests {
		if got := LooksLikeSitemap(tt.loc); got != tt.expected {
			t.Errorf("LooksLikeSitemap(%q) = %v, want %v", tt.loc, got, tt.expected)
		}
	}
}
