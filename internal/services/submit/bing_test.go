package submit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/models"
)

func newBingForTest(endpoint string) *BingSubmitter {
	return &BingSubmitter{
		endpoint: endpoint,
		apiKey:   "test-key",
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   common.GetLogger(),
	}
}

func TestBingSubmitSuccess(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("apikey")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"d":null}`))
	}))
	defer server.Close()

	s := newBingForTest(server.URL)
	outcome, err := s.Submit(context.Background(), testSite(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if outcome.Status != OutcomeSuccess {
		t.Errorf("status = %s, want success", outcome.Status)
	}
	if gotKey != "test-key" {
		t.Errorf("apikey = %q", gotKey)
	}
}

func TestBingLogicalErrorInsideOKResponse(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind models.SubmissionKind
	}{
		{
			name:     "quota exhausted",
			body:     `{"ErrorCode":2,"Message":"Daily quota exceeded for this site"}`,
			wantKind: models.SubmissionRateLimited,
		},
		{
			name:     "url outside site",
			body:     `{"ErrorCode":3,"Message":"Submitted URL is not part of the site"}`,
			wantKind: models.SubmissionInvalidURL,
		},
		{
			name:     "not authorized",
			body:     `{"ErrorCode":4,"Message":"User is not authorized for this site ownership"}`,
			wantKind: models.SubmissionForbidden,
		},
		{
			name:     "unclassified",
			body:     `{"ErrorCode":99,"Message":"Something else went wrong"}`,
			wantKind: models.SubmissionUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s := newBingForTest(server.URL)
			_, err := s.Submit(context.Background(), testSite(), "https://example.com/a")
			if err == nil {
				t.Fatal("Submit succeeded despite logical error")
			}

			var subErr *models.SubmissionError
			if !asError(err, &subErr) {
				t.Fatalf("error %T, want SubmissionError", err)
			}
			if subErr.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", subErr.Kind, tt.wantKind)
			}
		})
	}
}

func TestBingRejectedKeyBecomesAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"Message":"Invalid API key"}`))
	}))
	defer server.Close()

	s := newBingForTest(server.URL)
	_, err := s.Submit(context.Background(), testSite(), "https://example.com/a")

	var authErr *models.AuthError
	if !asError(err, &authErr) {
		t.Fatalf("error %T (%v), want AuthError", err, err)
	}
	if authErr.Provider != models.ProviderBing {
		t.Errorf("provider = %s, want bing", authErr.Provider)
	}
}

func TestBingForbiddenIsSubmissionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"Message":"Access denied"}`))
	}))
	defer server.Close()

	s := newBingForTest(server.URL)
	_, err := s.Submit(context.Background(), testSite(), "https://example.com/a")

	var subErr *models.SubmissionError
	if !asError(err, &subErr) {
		t.Fatalf("error %T (%v), want SubmissionError", err, err)
	}
	if subErr.Kind != models.SubmissionForbidden {
		t.Errorf("kind = %s, want forbidden", subErr.Kind)
	}
	if subErr.StatusCode != http.StatusForbidden {
		t.Errorf("status code = %d, want 403", subErr.StatusCode)
	}
}

func TestNewBingSubmitterRequiresKey(t *testing.T) {
	_, err := NewBingSubmitter(&common.BingConfig{Endpoint: "https://example.com"}, common.GetLogger())
	var configErr *models.ConfigError
	if !asError(err, &configErr) {
		t.Fatalf("error %T, want ConfigError", err)
	}
}
