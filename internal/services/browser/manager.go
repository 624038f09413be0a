// Package browser manages authenticated chromedp sessions against provider
// consoles: cookie restore, credential login with captcha solving, and a
// manual login fallback for flows automation cannot pass.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/interfaces"
	"github.com/submitto/submitto/internal/models"
)

const manualLoginPollInterval = 2 * time.Second

// Manager launches browser sessions for provider accounts.
type Manager struct {
	config    *common.BrowserConfig
	providers *common.ProvidersConfig
	accounts  interfaces.AccountStorage
	cookies   interfaces.CookieStorage
	solver    interfaces.CaptchaSolver
	logger    arbor.ILogger

	// settle is how long a submitted login form gets to navigate before the
	// wall is probed again.
	settle time.Duration
}

var _ interfaces.SessionManager = (*Manager)(nil)

// NewManager creates a session manager. The captcha solver may be nil, in
// which case captcha-gated logins surface LoginRequiredError instead.
func NewManager(
	config *common.BrowserConfig,
	providers *common.ProvidersConfig,
	accounts interfaces.AccountStorage,
	cookies interfaces.CookieStorage,
	solver interfaces.CaptchaSolver,
	logger arbor.ILogger,
) *Manager {
	return &Manager{
		config:    config,
		providers: providers,
		accounts:  accounts,
		cookies:   cookies,
		solver:    solver,
		logger:    logger,
		settle:    3 * time.Second,
	}
}

// OpenSession returns a session already past the provider's login wall.
// The order of attempts is: persisted cookies, credential login (with
// captcha solving), then LoginRequiredError for a human to resolve.
func (m *Manager) OpenSession(ctx context.Context, provider models.Provider) (interfaces.BrowserSession, error) {
	profile, console, account, err := m.resolve(ctx, provider)
	if err != nil {
		return nil, err
	}

	headless := m.config.Headless
	if console.Headless != nil {
		headless = *console.Headless
	}

	session, err := m.launch(profile, account, headless)
	if err != nil {
		return nil, err
	}

	record, err := m.cookies.GetCookies(ctx, session.cookieKey)
	switch {
	case err == nil:
		if err := session.restoreCookies(ctx, record); err != nil {
			m.logger.Warn().Err(err).Str("provider", string(provider)).Msg("Cookie restore failed, falling back to login")
		}
	case errors.Is(err, interfaces.ErrNotFound):
		// first session for this account
	default:
		session.Close()
		return nil, fmt.Errorf("failed to load cookies for %s: %w", provider, err)
	}

	if err := session.Navigate(ctx, profile.ConsoleURL); err != nil {
		session.Close()
		return nil, err
	}

	current, err := session.CurrentURL(ctx)
	if err != nil {
		session.Close()
		return nil, err
	}

	if profile.IsLoginWall(current) {
		if account.Secret == "" {
			session.Close()
			return nil, &models.LoginRequiredError{Provider: provider, AccountID: account.ID}
		}
		if err := m.login(ctx, session, profile, account); err != nil {
			session.Close()
			return nil, err
		}
		if err := session.Navigate(ctx, profile.ConsoleURL); err != nil {
			session.Close()
			return nil, err
		}
		current, err = session.CurrentURL(ctx)
		if err != nil {
			session.Close()
			return nil, err
		}
		if profile.IsLoginWall(current) {
			session.Close()
			return nil, &models.LoginRequiredError{Provider: provider, AccountID: account.ID}
		}
	}

	if err := session.PersistCookies(ctx); err != nil {
		m.logger.Warn().Err(err).Str("provider", string(provider)).Msg("Failed to persist session cookies")
	}
	if err := m.accounts.MarkLoggedIn(ctx, account.ID, time.Now()); err != nil {
		m.logger.Warn().Err(err).Str("account_id", account.ID).Msg("Failed to record login time")
	}

	m.logger.Info().Str("provider", string(provider)).Msg("Browser session authenticated")
	return session, nil
}

// ManualLogin opens a visible browser on the provider's login page and waits
// for a human to complete the flow, then persists the resulting cookies.
func (m *Manager) ManualLogin(ctx context.Context, provider models.Provider) error {
	profile, _, account, err := m.resolve(ctx, provider)
	if err != nil {
		return err
	}

	session, err := m.launch(profile, account, false)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Navigate(ctx, profile.LoginURL); err != nil {
		return err
	}

	wait := time.Duration(m.config.ManualLoginWait)
	m.logger.Info().
		Str("provider", string(provider)).
		Dur("wait", wait).
		Msg("Waiting for manual login to complete")

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return &models.BrowserError{Provider: provider, Op: "manual_login", Err: ctx.Err()}
		case <-time.After(manualLoginPollInterval):
		}

		current, err := session.CurrentURL(ctx)
		if err != nil {
			return err
		}
		if !profile.IsLoginWall(current) {
			if err := session.PersistCookies(ctx); err != nil {
				return err
			}
			if err := m.accounts.MarkLoggedIn(ctx, account.ID, time.Now()); err != nil {
				m.logger.Warn().Err(err).Str("account_id", account.ID).Msg("Failed to record login time")
			}
			m.logger.Info().Str("provider", string(provider)).Msg("Manual login completed")
			return nil
		}
	}

	return &models.AuthError{Provider: provider, Reason: "manual login window expired"}
}

// resolve validates the provider is browser-automatable and enabled, and
// loads its active account.
func (m *Manager) resolve(ctx context.Context, provider models.Provider) (*Profile, *common.ConsoleConfig, *models.ProviderAccount, error) {
	profile, ok := ProfileFor(provider)
	if !ok {
		return nil, nil, nil, &models.ConfigError{Provider: provider, Reason: "no browser automation profile"}
	}

	console := m.providers.ConsoleFor(string(provider))
	if console == nil || !console.Enabled {
		return nil, nil, nil, &models.ConfigError{Provider: provider, Reason: "provider is not enabled"}
	}

	account, err := m.accounts.GetActiveAccount(ctx, provider)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil, nil, &models.ConfigError{Provider: provider, Reason: "no active account configured"}
		}
		return nil, nil, nil, fmt.Errorf("failed to load account for %s: %w", provider, err)
	}

	return profile, console, account, nil
}

// launch starts a fresh browser and verifies it responds before handing the
// session out. The locale and timezone match the provider's home market so
// the console serves its expected UI.
func (m *Manager) launch(profile *Profile, account *models.ProviderAccount, headless bool) (*Session, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", profile.Locale),
		chromedp.WindowSize(1366, 900),
	)
	if m.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.config.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	startupCtx, startupCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer startupCancel()

	err := chromedp.Run(startupCtx,
		network.Enable(),
		emulation.SetTimezoneOverride(profile.Timezone),
		chromedp.Navigate("about:blank"),
	)
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, &models.BrowserError{Provider: profile.Provider, Op: "launch", Err: err}
	}

	return &Session{
		provider:      profile.Provider,
		accountID:     account.ID,
		cookieKey:     models.CookieKey(profile.Provider, account.ID),
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		cookies:       m.cookies,
		logger:        m.logger,
	}, nil
}

// login drives the credential form, solving a captcha when one appears.
// Attempts are bounded; a captcha that keeps failing surfaces CaptchaError
// rather than hammering the provider.
func (m *Manager) login(ctx context.Context, session interfaces.BrowserSession, profile *Profile, account *models.ProviderAccount) error {
	attempts := m.config.LoginAttempts
	if attempts <= 0 {
		attempts = 2
	}

	captchaSeen := false
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		m.logger.Debug().
			Str("provider", string(profile.Provider)).
			Int("attempt", attempt).
			Msg("Attempting credential login")

		if err := m.loginOnce(ctx, session, profile, account, &captchaSeen); err != nil {
			lastErr = err
			var browserErr *models.BrowserError
			var loginErr *models.LoginRequiredError
			if errors.As(err, &browserErr) || errors.As(err, &loginErr) {
				return err
			}
			continue
		}

		current, err := session.CurrentURL(ctx)
		if err != nil {
			return err
		}
		if !profile.IsLoginWall(current) {
			m.logger.Info().
				Str("provider", string(profile.Provider)).
				Int("attempt", attempt).
				Msg("Credential login succeeded")
			return nil
		}

		if msg := m.loginErrorText(ctx, session, profile); msg != "" {
			m.logger.Warn().
				Str("provider", string(profile.Provider)).
				Str("message", msg).
				Msg("Login form rejected the attempt")
		}
	}

	if captchaSeen {
		solverName := "none"
		if m.solver != nil {
			solverName = m.solver.Name()
		}
		return &models.CaptchaError{
			Backend:  solverName,
			Attempts: attempts,
			Err:      fmt.Errorf("login still rejected after %d captcha attempts", attempts),
		}
	}
	if lastErr != nil {
		return &models.AuthError{Provider: profile.Provider, Reason: "login failed", Err: lastErr}
	}
	return &models.AuthError{Provider: profile.Provider, Reason: "credentials rejected"}
}

func (m *Manager) loginOnce(ctx context.Context, session interfaces.BrowserSession, profile *Profile, account *models.ProviderAccount, captchaSeen *bool) error {
	if err := session.Navigate(ctx, profile.LoginURL); err != nil {
		return err
	}
	if err := session.WaitVisible(ctx, profile.IDSelector, time.Duration(m.config.LoginTimeout)); err != nil {
		return err
	}
	if err := session.SetValue(ctx, profile.IDSelector, account.LoginID); err != nil {
		return err
	}
	if err := session.SetValue(ctx, profile.PasswordSelector, account.Secret); err != nil {
		return err
	}

	hasCaptcha, err := session.Exists(ctx, profile.CaptchaImageSelector)
	if err != nil {
		return err
	}
	if hasCaptcha {
		*captchaSeen = true
		if m.solver == nil {
			return &models.LoginRequiredError{Provider: profile.Provider, AccountID: account.ID}
		}

		image, err := session.Screenshot(ctx, profile.CaptchaImageSelector)
		if err != nil {
			return err
		}
		answer, err := m.solver.Solve(ctx, image, "")
		if err != nil {
			return err
		}
		if err := session.SetValue(ctx, profile.CaptchaInputSelector, answer); err != nil {
			return err
		}
		m.logger.Debug().
			Str("provider", string(profile.Provider)).
			Str("backend", m.solver.Name()).
			Msg("Captcha answer filled")
	}

	if err := session.Click(ctx, profile.SubmitSelector); err != nil {
		return err
	}

	// Give the form submission time to navigate before the caller probes
	// the login wall again.
	select {
	case <-ctx.Done():
		return &models.BrowserError{Provider: profile.Provider, Op: "login", Err: ctx.Err()}
	case <-time.After(m.settle):
	}
	return nil
}

func (m *Manager) loginErrorText(ctx context.Context, session interfaces.BrowserSession, profile *Profile) string {
	if profile.ErrorSelector == "" {
		return ""
	}
	present, err := session.Exists(ctx, profile.ErrorSelector)
	if err != nil || !present {
		return ""
	}
	html, err := session.OuterHTML(ctx, profile.ErrorSelector)
	if err != nil {
		return ""
	}
	return html
}
