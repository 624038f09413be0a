package submit

import (
	"time"

	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/interfaces"
	"github.com/submitto/submitto/internal/models"
)

// NewDaumSubmitter creates the Daum search registration strategy. The form
// is site-independent; the URL itself carries the site.
func NewDaumSubmitter(sessions interfaces.SessionManager, timeout time.Duration, logger arbor.ILogger) Submitter {
	flow := consoleFlow{
		provider: models.ProviderDaum,
		submitPageURL: func(site *models.Site) string {
			return "https://register.search.daum.net/index.daum"
		},
		inputSelector:  "input#url",
		submitSelector: "button.btn_register",
		resultSelector: "div.register_result",
		successMarkers: []string{
			"등록이 완료", // registration completed
			"신청이 완료",
		},
		duplicateMarkers: []string{
			"이미 등록된", // already registered
			"이미 신청된",
		},
	}
	return newConsoleSubmitter(flow, sessions, timeout, logger)
}
