package submit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/models"
)

func newGoogleForTest(endpoint string) *GoogleSubmitter {
	return &GoogleSubmitter{
		endpoint:  endpoint,
		batchSize: 3,
		source:    oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}),
		limiter:   rate.NewLimiter(rate.Inf, 1),
		client:    &http.Client{Timeout: 5 * time.Second},
		logger:    common.GetLogger(),
	}
}

func testSite() *models.Site {
	return &models.Site{
		ID:        "site-1",
		BaseURL:   "https://example.com",
		Providers: []models.Provider{models.ProviderGoogle, models.ProviderBing},
	}
}

func TestGoogleSubmitSuccess(t *testing.T) {
	var gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"urlNotificationMetadata":{"url":"https://example.com/a"}}`))
	}))
	defer server.Close()

	s := newGoogleForTest(server.URL)
	outcome, err := s.Submit(context.Background(), testSite(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if outcome.Status != OutcomeSuccess {
		t.Errorf("status = %s, want success", outcome.Status)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if !strings.Contains(gotBody, `"type":"URL_UPDATED"`) {
		t.Errorf("request body missing notification type: %s", gotBody)
	}
}

func TestGoogleSubmitErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantAuth   bool
		wantKind   models.SubmissionKind
	}{
		{
			name:       "unauthorized becomes auth error",
			statusCode: http.StatusUnauthorized,
			body:       `{"error":{"code":401,"message":"invalid token"}}`,
			wantAuth:   true,
		},
		{
			name:       "forbidden ownership",
			statusCode: http.StatusForbidden,
			body:       `{"error":{"code":403,"message":"caller does not own this site"}}`,
			wantKind:   models.SubmissionOwnership,
		},
		{
			name:       "forbidden verification",
			statusCode: http.StatusForbidden,
			body:       `{"error":{"code":403,"message":"site ownership verification failed"}}`,
			wantKind:   models.SubmissionOwnership,
		},
		{
			name:       "forbidden without ownership wording",
			statusCode: http.StatusForbidden,
			body:       `{"error":{"code":403,"message":"permission denied for unknown project"}}`,
			wantKind:   models.SubmissionForbidden,
		},
		{
			name:       "rate limited",
			statusCode: http.StatusTooManyRequests,
			body:       `{"error":{"code":429,"message":"quota exceeded"}}`,
			wantKind:   models.SubmissionRateLimited,
		},
		{
			name:       "bad request is invalid url",
			statusCode: http.StatusBadRequest,
			body:       `{"error":{"code":400,"message":"url malformed"}}`,
			wantKind:   models.SubmissionInvalidURL,
		},
		{
			name:       "server error is unknown",
			statusCode: http.StatusInternalServerError,
			body:       `{"error":{"code":500,"message":"backend error"}}`,
			wantKind:   models.SubmissionUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s := newGoogleForTest(server.URL)
			_, err := s.Submit(context.Background(), testSite(), "https://example.com/a")
			if err == nil {
				t.Fatal("Submit succeeded, want error")
			}

			if tt.wantAuth {
				var authErr *models.AuthError
				if !asError(err, &authErr) {
					t.Fatalf("error %T, want AuthError", err)
				}
				return
			}

			var subErr *models.SubmissionError
			if !asError(err, &subErr) {
				t.Fatalf("error %T, want SubmissionError", err)
			}
			if subErr.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", subErr.Kind, tt.wantKind)
			}
			if subErr.StatusCode != tt.statusCode {
				t.Errorf("status code = %d, want %d", subErr.StatusCode, tt.statusCode)
			}
		})
	}
}

func TestGoogleSubmitBatchNeverAborts(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&calls, 1)
		if n == 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded"}}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	s := newGoogleForTest(server.URL)
	urls := []string{
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/3",
		"https://example.com/4",
		"https://example.com/5",
	}

	result, err := s.SubmitBatch(context.Background(), testSite(), urls)
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}
	if len(result.Outcomes) != 5 {
		t.Fatalf("got %d outcomes, want 5", len(result.Outcomes))
	}
	if result.Succeeded != 4 {
		t.Errorf("succeeded = %d, want 4", result.Succeeded)
	}
	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}
}
