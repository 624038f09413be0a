package submit

import (
	"net/url"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/interfaces"
	"github.com/submitto/submitto/internal/models"
)

// NewNaverSubmitter creates the Naver Search Advisor crawl-request strategy.
// Selectors and verdict markers track the Korean console UI.
func NewNaverSubmitter(sessions interfaces.SessionManager, timeout time.Duration, logger arbor.ILogger) Submitter {
	flow := consoleFlow{
		provider: models.ProviderNaver,
		submitPageURL: func(site *models.Site) string {
			return "https://searchadvisor.naver.com/console/site/request/crawl?site=" +
				url.QueryEscape(site.BaseURL)
		},
		inputSelector:  "div.request-input input[type=text]",
		submitSelector: "div.request-input button[type=submit]",
		resultSelector: "div.request-result",
		successMarkers: []string{
			"수집요청 완료", // crawl request accepted
			"요청이 완료",
		},
		duplicateMarkers: []string{
			"이미 수집요청", // already requested
			"동일한 URL",
		},
	}
	return newConsoleSubmitter(flow, sessions, timeout, logger)
}
