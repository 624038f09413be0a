package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/models"
)

// BingSubmitter pushes URLs through the Bing Webmaster SubmitUrlbatch API.
// Bing signals most failures inside a 200 response body, so the logical
// error payload is inspected in addition to the HTTP status.
type BingSubmitter struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   arbor.ILogger
}

type bingSubmitRequest struct {
	SiteURL string   `json:"siteUrl"`
	URLList []string `json:"urlList"`
}

type bingErrorResponse struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// NewBingSubmitter creates the Bing URL submission strategy.
func NewBingSubmitter(config *common.BingConfig, logger arbor.ILogger) (*BingSubmitter, error) {
	if config.APIKey == "" {
		return nil, &models.ConfigError{Provider: models.ProviderBing, Reason: "api_key is not set"}
	}
	return &BingSubmitter{
		endpoint: config.Endpoint,
		apiKey:   config.APIKey,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}, nil
}

func (s *BingSubmitter) Provider() models.Provider { return models.ProviderBing }

// Submit sends a one-element URL batch for the site.
func (s *BingSubmitter) Submit(ctx context.Context, site *models.Site, submitURL string) (*Outcome, error) {
	payload := bingSubmitRequest{
		SiteURL: site.BaseURL,
		URLList: []string{submitURL},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := s.endpoint + "?apikey=" + url.QueryEscape(s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bing api request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to logical error inspection
	case http.StatusUnauthorized:
		return nil, &models.AuthError{
			Provider: models.ProviderBing,
			Reason:   "api key rejected",
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, respBody),
		}
	case http.StatusForbidden:
		return nil, &models.SubmissionError{
			Provider:   models.ProviderBing,
			Kind:       models.SubmissionForbidden,
			Message:    "api key not authorized for this site",
			StatusCode: resp.StatusCode,
		}
	case http.StatusTooManyRequests:
		return nil, &models.SubmissionError{
			Provider:   models.ProviderBing,
			Kind:       models.SubmissionRateLimited,
			Message:    "submission quota exhausted",
			StatusCode: resp.StatusCode,
		}
	default:
		return nil, &models.SubmissionError{
			Provider:   models.ProviderBing,
			Kind:       models.SubmissionUnknown,
			Message:    string(respBody),
			StatusCode: resp.StatusCode,
		}
	}

	var logical bingErrorResponse
	if err := json.Unmarshal(respBody, &logical); err == nil && logical.ErrorCode != 0 {
		return nil, s.classifyLogical(&logical)
	}

	s.logger.Debug().Str("url", submitURL).Msg("Bing accepted URL submission")
	return &Outcome{
		Provider: models.ProviderBing,
		URL:      submitURL,
		Status:   OutcomeSuccess,
		Message:  "url batch accepted",
	}, nil
}

// classifyLogical maps Bing's in-body error payload to the taxonomy.
func (s *BingSubmitter) classifyLogical(logical *bingErrorResponse) error {
	message := strings.ToLower(logical.Message)
	kind := models.SubmissionUnknown
	switch {
	case strings.Contains(message, "quota"):
		kind = models.SubmissionRateLimited
	case strings.Contains(message, "not part of the site"), strings.Contains(message, "invalid url"):
		kind = models.SubmissionInvalidURL
	case strings.Contains(message, "not authorized"), strings.Contains(message, "ownership"):
		kind = models.SubmissionForbidden
	}
	return &models.SubmissionError{
		Provider:   models.ProviderBing,
		Kind:       kind,
		Message:    fmt.Sprintf("error %d: %s", logical.ErrorCode, logical.Message),
		StatusCode: http.StatusOK,
	}
}
