package interfaces

import (
	"context"
	"time"

	"github.com/submitto/submitto/internal/models"
)

// BrowserSession is one live automation session against a provider console.
// Close must be safe to call on every exit path.
type BrowserSession interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	SetValue(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	OuterHTML(ctx context.Context, selector string) (string, error)
	Exists(ctx context.Context, selector string) (bool, error)
	Screenshot(ctx context.Context, selector string) ([]byte, error)

	// PersistCookies writes the session's current cookie set back to the
	// cookie store for the session's account.
	PersistCookies(ctx context.Context) error
	Close()
}

// SessionManager launches authenticated browser sessions for a provider
// account, restoring persisted cookies or driving the login flow.
type SessionManager interface {
	// OpenSession returns a session already past the provider's login
	// wall, or LoginRequiredError when no automatic path exists.
	OpenSession(ctx context.Context, provider models.Provider) (BrowserSession, error)

	// ManualLogin opens a visible session and waits for a human to
	// complete the login, then persists cookies.
	ManualLogin(ctx context.Context, provider models.Provider) error
}

// CaptchaSolver resolves a captcha challenge image to its answer text.
type CaptchaSolver interface {
	Solve(ctx context.Context, image []byte, question string) (string, error)
	Name() string
}
