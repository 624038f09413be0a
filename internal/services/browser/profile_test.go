package browser

import (
	"testing"

	"github.com/submitto/submitto/internal/models"
)

func TestProfileForBrowserProviders(t *testing.T) {
	for _, provider := range []models.Provider{models.ProviderNaver, models.ProviderDaum} {
		profile, ok := ProfileFor(provider)
		if !ok {
			t.Fatalf("no profile for %s", provider)
		}
		if profile.ConsoleURL == "" || profile.LoginURL == "" {
			t.Errorf("%s profile missing URLs", provider)
		}
		if len(profile.LoginDomains) == 0 {
			t.Errorf("%s profile has no login domains", provider)
		}
	}

	if _, ok := ProfileFor(models.ProviderGoogle); ok {
		t.Error("google has a browser profile but is API-based")
	}
}

func TestIsLoginWall(t *testing.T) {
	naver, _ := ProfileFor(models.ProviderNaver)
	daum, _ := ProfileFor(models.ProviderDaum)

	tests := []struct {
		name     string
		profile  *Profile
		url      string
		expected bool
	}{
		{
			name:     "naver login page",
			profile:  naver,
			url:      "https://nid.naver.com/nidlogin.login?mode=form",
			expected: true,
		},
		{
			name:     "naver login subdomain",
			profile:  naver,
			url:      "https://sub.nid.naver.com/challenge",
			expected: true,
		},
		{
			name:     "naver console is not a wall",
			profile:  naver,
			url:      "https://searchadvisor.naver.com/console/board",
			expected: false,
		},
		{
			name:     "kakao accounts page",
			profile:  daum,
			url:      "https://accounts.kakao.com/login/?continue=x",
			expected: true,
		},
		{
			name:     "legacy daum login",
			profile:  daum,
			url:      "https://logins.daum.net/accounts/signinform.do",
			expected: true,
		},
		{
			name:     "daum register console",
			profile:  daum,
			url:      "https://register.search.daum.net/index.daum",
			expected: false,
		},
		{
			name:     "lookalike domain is not a wall",
			profile:  naver,
			url:      "https://nid.naver.com.evil.example/phish",
			expected: false,
		},
		{
			name:     "garbage url",
			profile:  naver,
			url:      "::not a url::",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.IsLoginWall(tt.url); got != tt.expected {
				t.Errorf("IsLoginWall(%q) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}
