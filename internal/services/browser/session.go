package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/interfaces"
	"github.com/submitto/submitto/internal/models"
)

// Session is one live chromedp browser bound to a provider account. All
// actions run against the session's own browser context; the caller context
// is honored for cancellation before each action starts.
type Session struct {
	provider  models.Provider
	accountID string
	cookieKey string

	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	cookies interfaces.CookieStorage
	logger  arbor.ILogger

	closeOnce sync.Once
}

var _ interfaces.BrowserSession = (*Session)(nil)

func (s *Session) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return &models.BrowserError{Provider: s.provider, Op: op, Err: err}
	}
	if err := chromedp.Run(s.browserCtx, actions...); err != nil {
		return &models.BrowserError{Provider: s.provider, Op: op, Err: err}
	}
	return nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, "navigate",
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := s.run(ctx, "location", chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return &models.BrowserError{Provider: s.provider, Op: "wait_visible", Err: err}
	}
	tctx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return &models.BrowserError{
			Provider: s.provider,
			Op:       "wait_visible",
			Err:      fmt.Errorf("selector %q: %w", selector, err),
		}
	}
	return nil
}

func (s *Session) SetValue(ctx context.Context, selector, value string) error {
	return s.run(ctx, "set_value", chromedp.SetValue(selector, value, chromedp.ByQuery))
}

func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, "click", chromedp.Click(selector, chromedp.ByQuery))
}

func (s *Session) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	if err := s.run(ctx, "outer_html", chromedp.OuterHTML(selector, &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	expr := fmt.Sprintf("document.querySelector(%q) !== null", selector)
	if err := s.run(ctx, "exists", chromedp.Evaluate(expr, &found)); err != nil {
		return false, err
	}
	return found, nil
}

func (s *Session) Screenshot(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, "screenshot", chromedp.Screenshot(selector, &buf, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	return buf, nil
}

// restoreCookies injects a persisted cookie set into the browser before
// navigation. Individual cookie failures are logged and skipped so one stale
// entry cannot block the rest of the session.
func (s *Session) restoreCookies(ctx context.Context, record *models.CookieRecord) error {
	var stored []models.Cookie
	if err := json.Unmarshal(record.Cookies, &stored); err != nil {
		return &models.BrowserError{Provider: s.provider, Op: "restore_cookies", Err: err}
	}
	if len(stored) == 0 {
		return nil
	}

	params := make([]*network.CookieParam, 0, len(stored))
	for _, c := range stored {
		var expires *cdp.TimeSinceEpoch
		if c.Expires > 0 {
			expiresTime := time.Unix(int64(c.Expires), 0)
			if expiresTime.After(time.Now()) {
				ts := cdp.TimeSinceEpoch(expiresTime)
				expires = &ts
			}
		}

		// Chrome rejects the leading-dot domain form devtools exports use.
		domain := strings.TrimPrefix(c.Domain, ".")
		path := c.Path
		if path == "" {
			path = "/"
		}

		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   domain,
			Path:     path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			Expires:  expires,
		}
		switch strings.ToLower(c.SameSite) {
		case "strict":
			param.SameSite = network.CookieSameSiteStrict
		case "lax":
			param.SameSite = network.CookieSameSiteLax
		case "none":
			param.SameSite = network.CookieSameSiteNone
		}
		params = append(params, param)
	}

	return s.run(ctx, "restore_cookies",
		network.Enable(),
		chromedp.ActionFunc(func(cctx context.Context) error {
			restored := 0
			for _, param := range params {
				if err := network.SetCookie(param.Name, param.Value).
					WithDomain(param.Domain).
					WithPath(param.Path).
					WithSecure(param.Secure).
					WithHTTPOnly(param.HTTPOnly).
					WithSameSite(param.SameSite).
					WithExpires(param.Expires).
					Do(cctx); err != nil {
					s.logger.Warn().
						Err(err).
						Str("cookie", param.Name).
						Str("domain", param.Domain).
						Msg("Failed to restore cookie")
					continue
				}
				restored++
			}
			s.logger.Debug().
				Str("provider", string(s.provider)).
				Int("restored", restored).
				Int("total", len(params)).
				Msg("Session cookies restored")
			return nil
		}),
	)
}

// PersistCookies snapshots the browser's cookie jar into the cookie store so
// the next session can skip the login flow.
func (s *Session) PersistCookies(ctx context.Context) error {
	var live []*network.Cookie
	err := s.run(ctx, "persist_cookies",
		chromedp.ActionFunc(func(cctx context.Context) error {
			cookies, err := network.GetCookies().Do(cctx)
			if err != nil {
				return err
			}
			live = cookies
			return nil
		}),
	)
	if err != nil {
		return err
	}

	stored := make([]models.Cookie, 0, len(live))
	for _, c := range live {
		stored = append(stored, models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		})
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return &models.BrowserError{Provider: s.provider, Op: "persist_cookies", Err: err}
	}

	record := &models.CookieRecord{
		Key:       s.cookieKey,
		Cookies:   payload,
		UpdatedAt: time.Now(),
	}
	if err := s.cookies.SaveCookies(ctx, record); err != nil {
		return &models.BrowserError{Provider: s.provider, Op: "persist_cookies", Err: err}
	}

	s.logger.Debug().
		Str("provider", string(s.provider)).
		Int("cookies", len(stored)).
		Msg("Session cookies persisted")
	return nil
}

// Close tears down the browser and its allocator. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.browserCancel()
		s.allocCancel()
		s.logger.Debug().Str("provider", string(s.provider)).Msg("Browser session closed")
	})
}
