package browser

import (
	"net/url"
	"strings"

	"github.com/submitto/submitto/internal/models"
)

// Profile describes how to recognize and drive a provider's login flow.
// Selector identities are brittle contracts against the live third-party
// console and must be revalidated when the provider changes its UI.
type Profile struct {
	Provider     models.Provider
	ConsoleURL   string   // landing page used to probe session validity
	LoginURL     string   // credential login form
	LoginDomains []string // hosts that identify a login wall

	Locale   string
	Timezone string

	IDSelector           string
	PasswordSelector     string
	SubmitSelector       string
	CaptchaImageSelector string
	CaptchaInputSelector string
	ErrorSelector        string
}

var profiles = map[models.Provider]*Profile{
	models.ProviderNaver: {
		Provider:             models.ProviderNaver,
		ConsoleURL:           "https://searchadvisor.naver.com/console/board",
		LoginURL:             "https://nid.naver.com/nidlogin.login?mode=form",
		LoginDomains:         []string{"nid.naver.com"},
		Locale:               "ko-KR",
		Timezone:             "Asia/Seoul",
		IDSelector:           "#id",
		PasswordSelector:     "#pw",
		SubmitSelector:       "#log\\.login",
		CaptchaImageSelector: "#captcha",
		CaptchaInputSelector: "#chptcha",
		ErrorSelector:        ".error_message",
	},
	models.ProviderDaum: {
		Provider:             models.ProviderDaum,
		ConsoleURL:           "https://register.search.daum.net/index.daum",
		LoginURL:             "https://accounts.kakao.com/login/?continue=https%3A%2F%2Fregister.search.daum.net%2Findex.daum",
		LoginDomains:         []string{"accounts.kakao.com", "logins.daum.net"},
		Locale:               "ko-KR",
		Timezone:             "Asia/Seoul",
		IDSelector:           "input[name=loginId]",
		PasswordSelector:     "input[name=password]",
		SubmitSelector:       "button[type=submit]",
		CaptchaImageSelector: "img.captcha_img",
		CaptchaInputSelector: "input[name=captcha]",
		ErrorSelector:        ".error_desc",
	},
}

// ProfileFor returns the login profile for a browser-based provider.
func ProfileFor(provider models.Provider) (*Profile, bool) {
	p, ok := profiles[provider]
	return p, ok
}

// IsLoginWall reports whether the given page URL sits on one of the
// profile's known login domains.
func (p *Profile) IsLoginWall(pageURL string) bool {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Host)
	for _, domain := range p.LoginDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
