// -----------------------------------------------------------------------
// Error taxonomy for submission outcomes
// -----------------------------------------------------------------------

package models

import "fmt"

// ConfigError reports a disabled provider or missing credential fields.
type ConfigError struct {
	Provider Provider
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: configuration error: %s", e.Provider, e.Reason)
}

// AuthError reports invalid or expired tokens/credentials after any
// transparent refresh has already been attempted.
type AuthError struct {
	Provider Provider
	Reason   string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: authentication failed: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// LoginRequiredError means there is no usable browser session and no
// automatic login path: a human has to log in. Surfaced distinctly from
// AuthError for every browser-based provider.
type LoginRequiredError struct {
	Provider  Provider
	AccountID string
}

func (e *LoginRequiredError) Error() string {
	return fmt.Sprintf("%s: login required for account %s", e.Provider, e.AccountID)
}

// SubmissionKind classifies a provider-side rejection.
type SubmissionKind string

const (
	SubmissionDuplicate   SubmissionKind = "duplicate"
	SubmissionRateLimited SubmissionKind = "rate_limited"
	SubmissionForbidden   SubmissionKind = "forbidden"
	// SubmissionOwnership is a forbidden response caused specifically by
	// missing site ownership verification, distinct from other 403s.
	SubmissionOwnership  SubmissionKind = "ownership"
	SubmissionInvalidURL SubmissionKind = "invalid_url"
	SubmissionUnknown    SubmissionKind = "unknown"
)

// SubmissionError reports a provider-side rejection of a submission.
type SubmissionError struct {
	Provider   Provider
	Kind       SubmissionKind
	Message    string
	StatusCode int
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s: submission rejected (%s): %s", e.Provider, e.Kind, e.Message)
}

// BrowserError reports a session launch or navigation failure unrelated to
// login state.
type BrowserError struct {
	Provider Provider
	Op       string
	Err      error
}

func (e *BrowserError) Error() string {
	return fmt.Sprintf("%s: browser %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *BrowserError) Unwrap() error { return e.Err }

// CaptchaError reports a solving backend failure or exhausted login retries.
type CaptchaError struct {
	Backend  string
	Attempts int
	Err      error
}

func (e *CaptchaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("captcha solving failed (backend=%s, attempts=%d): %v", e.Backend, e.Attempts, e.Err)
	}
	return fmt.Sprintf("captcha solving failed (backend=%s, attempts=%d)", e.Backend, e.Attempts)
}

func (e *CaptchaError) Unwrap() error { return e.Err }
