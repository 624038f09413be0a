package submit

import (
	"context"
	neturl "net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/interfaces"
	"github.com/submitto/submitto/internal/models"
)

const consolePollInterval = time.Second

// consoleFlow describes how to drive one provider's URL request form. The
// selectors and markers are contracts against the live console UI.
type consoleFlow struct {
	provider models.Provider

	// submitPageURL builds the form page URL for a site.
	submitPageURL func(site *models.Site) string

	inputSelector  string
	submitSelector string
	resultSelector string // container polled for the submission verdict

	successMarkers   []string
	duplicateMarkers []string
}

// consoleSubmitter submits URLs by driving a provider console through an
// authenticated browser session.
type consoleSubmitter struct {
	flow     consoleFlow
	sessions interfaces.SessionManager
	timeout  time.Duration
	logger   arbor.ILogger
}

func newConsoleSubmitter(flow consoleFlow, sessions interfaces.SessionManager, timeout time.Duration, logger arbor.ILogger) *consoleSubmitter {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &consoleSubmitter{
		flow:     flow,
		sessions: sessions,
		timeout:  timeout,
		logger:   logger,
	}
}

func (s *consoleSubmitter) Provider() models.Provider { return s.flow.provider }

// Submit opens a session, drives the form for one URL and closes the session.
func (s *consoleSubmitter) Submit(ctx context.Context, site *models.Site, url string) (*Outcome, error) {
	session, err := s.sessions.OpenSession(ctx, s.flow.provider)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	return s.submitOne(ctx, session, site, url)
}

// SubmitBatch reuses a single session across the batch. URL-level verdicts
// never stop the batch; a dead session does.
func (s *consoleSubmitter) SubmitBatch(ctx context.Context, site *models.Site, urls []string) (*BatchResult, error) {
	session, err := s.sessions.OpenSession(ctx, s.flow.provider)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	result := &BatchResult{}
	for _, url := range urls {
		outcome, err := s.submitOne(ctx, session, site, url)
		if err != nil {
			return result, err
		}
		result.add(outcome)
	}
	return result, nil
}

func (s *consoleSubmitter) submitOne(ctx context.Context, session interfaces.BrowserSession, site *models.Site, url string) (*Outcome, error) {
	pageURL := s.flow.submitPageURL(site)
	if err := session.Navigate(ctx, pageURL); err != nil {
		return nil, err
	}
	if err := session.WaitVisible(ctx, s.flow.inputSelector, s.timeout); err != nil {
		return nil, err
	}
	if err := session.SetValue(ctx, s.flow.inputSelector, url); err != nil {
		return nil, err
	}
	if err := session.Click(ctx, s.flow.submitSelector); err != nil {
		return nil, err
	}

	outcome, err := s.pollVerdict(ctx, session, url)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("provider", string(s.flow.provider)).
		Str("url", url).
		Str("status", string(outcome.Status)).
		Msg("Console submission finished")
	return outcome, nil
}

// pollVerdict watches the result container until a success or duplicate
// marker appears. A silent console is a failed submission, not an error.
func (s *consoleSubmitter) pollVerdict(ctx context.Context, session interfaces.BrowserSession, url string) (*Outcome, error) {
	deadline := time.Now().Add(s.timeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, &models.BrowserError{Provider: s.flow.provider, Op: "poll_verdict", Err: ctx.Err()}
		case <-time.After(consolePollInterval):
		}

		present, err := session.Exists(ctx, s.flow.resultSelector)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}

		html, err := session.OuterHTML(ctx, s.flow.resultSelector)
		if err != nil {
			return nil, err
		}
		text, err := consoleText(html)
		if err != nil {
			continue
		}

		if marker := matchMarker(text, s.flow.duplicateMarkers); marker != "" {
			return &Outcome{
				Provider: s.flow.provider,
				URL:      url,
				Status:   OutcomeSkipped,
				Message:  "already requested: " + marker,
			}, nil
		}
		// A success marker alone is not enough: in a reused session the
		// container may still show the previous URL's verdict. Success
		// counts only when the result names the URL that was just sent.
		if marker := matchMarker(text, s.flow.successMarkers); marker != "" && resultMentionsURL(text, url) {
			return &Outcome{
				Provider: s.flow.provider,
				URL:      url,
				Status:   OutcomeSuccess,
				Message:  marker,
			}, nil
		}
	}

	return &Outcome{
		Provider: s.flow.provider,
		URL:      url,
		Status:   OutcomeFail,
		Message:  "console showed no submission result before timeout",
	}, nil
}

// consoleText flattens a result fragment to its visible text.
func consoleText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// resultMentionsURL reports whether the verdict text references the
// submitted URL, either verbatim or by its path (consoles often render the
// path only).
func resultMentionsURL(text, rawURL string) bool {
	if strings.Contains(text, rawURL) {
		return true
	}
	parsed, err := neturl.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Path != "" && parsed.Path != "/" && strings.Contains(text, parsed.Path)
}

func matchMarker(text string, markers []string) string {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return marker
		}
	}
	return ""
}
