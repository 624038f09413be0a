// Package sitemap discovers new content URLs by polling site sitemaps,
// resolving nested sitemap indexes with bounded recursion.
package sitemap

import (
	"encoding/xml"
	"fmt"
)

// Entry is one content URL discovered in a urlset.
type Entry struct {
	Loc     string
	LastMod string
}

// Document is the parsed form of one sitemap file: either content URLs or
// references to child sitemaps, occasionally both from sloppy generators.
type Document struct {
	URLs     []Entry
	Children []string
}

type locElement struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type urlSetXML struct {
	URLs []locElement `xml:"url"`
}

type sitemapIndexXML struct {
	Sitemaps []locElement `xml:"sitemap"`
}

// Parse decodes sitemap XML, accepting both the urlset and sitemapindex
// root elements.
func Parse(data []byte) (*Document, error) {
	var probe struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("invalid sitemap xml: %w", err)
	}

	switch probe.XMLName.Local {
	case "urlset":
		var parsed urlSetXML
		if err := xml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("invalid urlset: %w", err)
		}
		doc := &Document{}
		for _, u := range parsed.URLs {
			if u.Loc == "" {
				continue
			}
			doc.URLs = append(doc.URLs, Entry{Loc: u.Loc, LastMod: u.LastMod})
		}
		return doc, nil

	case "sitemapindex":
		var parsed sitemapIndexXML
		if err := xml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("invalid sitemapindex: %w", err)
		}
		doc := &Document{}
		for _, child := range parsed.Sitemaps {
			if child.Loc == "" {
				continue
			}
			doc.Children = append(doc.Children, child.Loc)
		}
		return doc, nil

	default:
		return nil, fmt.Errorf("unexpected root element %q", probe.XMLName.Local)
	}
}
