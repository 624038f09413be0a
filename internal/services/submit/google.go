package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/models"
)

const googleIndexingScope = "https://www.googleapis.com/auth/indexing"

// GoogleSubmitter publishes URL_UPDATED notifications to the Google Indexing
// API using a service-account JWT bearer token.
type GoogleSubmitter struct {
	endpoint  string
	batchSize int
	source    oauth2.TokenSource
	limiter   *rate.Limiter
	client    *http.Client
	logger    arbor.ILogger
}

type googleNotification struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGoogleSubmitter creates the Google Indexing API strategy from a
// service-account key file.
func NewGoogleSubmitter(config *common.GoogleConfig, logger arbor.ILogger) (*GoogleSubmitter, error) {
	if config.ServiceAccountFile == "" {
		return nil, &models.ConfigError{Provider: models.ProviderGoogle, Reason: "service_account_file is not set"}
	}

	keyData, err := os.ReadFile(config.ServiceAccountFile)
	if err != nil {
		return nil, &models.ConfigError{
			Provider: models.ProviderGoogle,
			Reason:   fmt.Sprintf("cannot read service account file: %v", err),
		}
	}

	jwtConfig, err := google.JWTConfigFromJSON(keyData, googleIndexingScope)
	if err != nil {
		return nil, &models.ConfigError{
			Provider: models.ProviderGoogle,
			Reason:   fmt.Sprintf("invalid service account key: %v", err),
		}
	}

	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 3
	}
	batchDelay := time.Duration(config.BatchDelay)
	if batchDelay <= 0 {
		batchDelay = time.Second
	}

	return &GoogleSubmitter{
		endpoint:  config.Endpoint,
		batchSize: batchSize,
		source:    oauth2.ReuseTokenSource(nil, jwtConfig.TokenSource(context.Background())),
		limiter:   rate.NewLimiter(rate.Every(batchDelay), batchSize),
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}, nil
}

func (s *GoogleSubmitter) Provider() models.Provider { return models.ProviderGoogle }

// Submit publishes one URL_UPDATED notification.
func (s *GoogleSubmitter) Submit(ctx context.Context, site *models.Site, url string) (*Outcome, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("google submission pacing interrupted: %w", err)
	}

	token, err := s.source.Token()
	if err != nil {
		return nil, &models.AuthError{Provider: models.ProviderGoogle, Reason: "token acquisition failed", Err: err}
	}

	body, err := json.Marshal(googleNotification{URL: url, Type: "URL_UPDATED"})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexing api request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode == http.StatusOK {
		s.logger.Debug().Str("url", url).Msg("Google accepted URL notification")
		return &Outcome{
			Provider: models.ProviderGoogle,
			URL:      url,
			Status:   OutcomeSuccess,
			Message:  "URL_UPDATED notification accepted",
		}, nil
	}

	return nil, s.classify(resp.StatusCode, respBody)
}

// classify maps an Indexing API error response to the submission taxonomy.
func (s *GoogleSubmitter) classify(statusCode int, body []byte) error {
	var parsed googleErrorResponse
	message := string(body)
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return &models.AuthError{
			Provider: models.ProviderGoogle,
			Reason:   "service account token rejected",
			Err:      fmt.Errorf("%s", message),
		}
	case http.StatusForbidden:
		// Ownership problems are permanent until Search Console access is
		// fixed; keep the provider's wording so the job log explains itself.
		kind := models.SubmissionForbidden
		lower := strings.ToLower(message)
		if strings.Contains(lower, "ownership") || strings.Contains(lower, "verif") || strings.Contains(lower, "does not own") {
			kind = models.SubmissionOwnership
			message = "service account lacks Search Console ownership: " + message
		}
		return &models.SubmissionError{
			Provider:   models.ProviderGoogle,
			Kind:       kind,
			Message:    message,
			StatusCode: statusCode,
		}
	case http.StatusTooManyRequests:
		return &models.SubmissionError{
			Provider:   models.ProviderGoogle,
			Kind:       models.SubmissionRateLimited,
			Message:    "indexing api quota exhausted",
			StatusCode: statusCode,
		}
	case http.StatusBadRequest:
		return &models.SubmissionError{
			Provider:   models.ProviderGoogle,
			Kind:       models.SubmissionInvalidURL,
			Message:    message,
			StatusCode: statusCode,
		}
	default:
		return &models.SubmissionError{
			Provider:   models.ProviderGoogle,
			Kind:       models.SubmissionUnknown,
			Message:    message,
			StatusCode: statusCode,
		}
	}
}

// SubmitBatch publishes notifications with bounded concurrency and paced
// request starts. URL failures are recorded per-URL and never stop the batch.
func (s *GoogleSubmitter) SubmitBatch(ctx context.Context, site *models.Site, urls []string) (*BatchResult, error) {
	result := &BatchResult{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, s.batchSize)
	for _, url := range urls {
		select {
		case <-ctx.Done():
			wg.Wait()
			return result, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, err := s.Submit(ctx, site, url)
			if err != nil {
				converted, ok := outcomeFromError(models.ProviderGoogle, url, err)
				if !ok {
					converted = &Outcome{
						Provider: models.ProviderGoogle,
						URL:      url,
						Status:   OutcomeFail,
						Message:  err.Error(),
					}
				}
				outcome = converted
			}

			mu.Lock()
			result.add(outcome)
			mu.Unlock()
		}(url)
	}

	wg.Wait()
	s.logger.Info().
		Int("urls", len(urls)).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("Google batch submission finished")
	return result, nil
}
