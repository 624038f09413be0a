package models

import (
	"fmt"
	"strings"
)

// Provider identifies an external search-indexing destination.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderBing   Provider = "bing"
	ProviderNaver  Provider = "naver"
	ProviderDaum   Provider = "daum"
)

// AllProviders lists every supported provider in dispatch order.
var AllProviders = []Provider{ProviderGoogle, ProviderBing, ProviderNaver, ProviderDaum}

// ParseProvider normalizes a provider string to a known Provider value.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderGoogle:
		return ProviderGoogle, nil
	case ProviderBing:
		return ProviderBing, nil
	case ProviderNaver:
		return ProviderNaver, nil
	case ProviderDaum:
		return ProviderDaum, nil
	default:
		return "", fmt.Errorf("unknown provider: %q", s)
	}
}

// IsBrowserBased reports whether submission for this provider drives a web
// console instead of a programmatic API.
func (p Provider) IsBrowserBased() bool {
	return p == ProviderNaver || p == ProviderDaum
}

func (p Provider) String() string {
	return string(p)
}
