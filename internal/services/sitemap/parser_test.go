package sitemap

import "testing"

func TestParseURLSet(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/post-1</loc><lastmod>2026-08-01</lastmod></url>
  <url><loc>https://example.com/post-2</loc></url>
  <url><loc></loc></url>
</urlset>`)

	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(doc.URLs) != 2 {
		t.Fatalf("got %d URLs, want 2", len(doc.URLs))
	}
	if doc.URLs[0].Loc != "https://example.com/post-1" {
		t.Errorf("first loc = %q", doc.URLs[0].Loc)
	}
	if doc.URLs[0].LastMod != "2026-08-01" {
		t.Errorf("lastmod = %q", doc.URLs[0].LastMod)
	}
	if len(doc.Children) != 0 {
		t.Errorf("urlset produced %d children", len(doc.Children))
	}
}

func TestParseSitemapIndex(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-posts.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-pages.xml</loc></sitemap>
</sitemapindex>`)

	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(doc.Children) != 2 {
		t.Fatalf("got %d children, want 2", len(doc.Children))
	}
	if len(doc.URLs) != 0 {
		t.Errorf("sitemapindex produced %d URLs", len(doc.URLs))
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not xml", data: "this is not xml"},
		{name: "wrong root", data: "<rss version=\"2.0\"></rss>"},
		{name: "empty", data: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.data)
			}
		})
	}
}
