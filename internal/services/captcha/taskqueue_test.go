package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/models"
)

func newQueueServer(t *testing.T, readyAfter int64, answer string) *httptest.Server {
	t.Helper()
	var polls int64
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/createTask":
			var req createTaskRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("bad createTask body: %v", err)
			}
			if req.Task.Type != "ImageToTextTask" {
				t.Errorf("task type = %q", req.Task.Type)
			}
			json.NewEncoder(w).Encode(createTaskResponse{TaskID: 42})
		case "/getTaskResult":
			resp := taskResultResponse{Status: "processing"}
			if atomic.AddInt64(&polls, 1) >= readyAfter {
				resp.Status = "ready"
				resp.Solution.Text = answer
			}
			json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newQueueSolver(t *testing.T, endpoint string, attempts int) *TaskQueueSolver {
	t.Helper()
	solver, err := NewTaskQueueSolver(&common.CaptchaConfig{
		Endpoint:     endpoint,
		APIKey:       "key",
		PollInterval: common.Duration(10 * time.Millisecond),
		PollAttempts: attempts,
	}, common.GetLogger())
	if err != nil {
		t.Fatalf("NewTaskQueueSolver failed: %v", err)
	}
	return solver
}

func TestTaskQueueSolveAfterPolling(t *testing.T) {
	server := newQueueServer(t, 3, "x7k2p")
	defer server.Close()

	solver := newQueueSolver(t, server.URL, 10)
	answer, err := solver.Solve(context.Background(), []byte("png"), "read the characters")
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if answer != "x7k2p" {
		t.Errorf("answer = %q, want x7k2p", answer)
	}
}

func TestTaskQueuePollBoundIsEnforced(t *testing.T) {
	server := newQueueServer(t, 1000, "never")
	defer server.Close()

	solver := newQueueSolver(t, server.URL, 3)
	_, err := solver.Solve(context.Background(), []byte("png"), "")
	if err == nil {
		t.Fatal("Solve succeeded, want poll bound error")
	}

	var captchaErr *models.CaptchaError
	if !errorsAs(err, &captchaErr) {
		t.Fatalf("error %T, want CaptchaError", err)
	}
	if captchaErr.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", captchaErr.Attempts)
	}
	if captchaErr.Backend != "taskqueue" {
		t.Errorf("backend = %q", captchaErr.Backend)
	}
}

func TestTaskQueueCreateRejectionSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(createTaskResponse{ErrorID: 1, ErrorDescription: "invalid client key"})
	}))
	defer server.Close()

	solver := newQueueSolver(t, server.URL, 3)
	_, err := solver.Solve(context.Background(), []byte("png"), "")

	var captchaErr *models.CaptchaError
	if !errorsAs(err, &captchaErr) {
		t.Fatalf("error %T, want CaptchaError", err)
	}
}

func TestTaskQueueSolveHonorsContextCancel(t *testing.T) {
	server := newQueueServer(t, 1000, "never")
	defer server.Close()

	solver := newQueueSolver(t, server.URL, 1000)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := solver.Solve(ctx, []byte("png"), "")
	if err == nil {
		t.Fatal("Solve survived context cancellation")
	}
}

func TestNewSolverBackendSelection(t *testing.T) {
	logger := common.GetLogger()

	solver, err := NewSolver(&common.CaptchaConfig{Backend: "taskqueue", Endpoint: "http://queue.test"}, logger)
	if err != nil {
		t.Fatalf("taskqueue backend failed: %v", err)
	}
	if solver.Name() != "taskqueue" {
		t.Errorf("name = %q", solver.Name())
	}

	if _, err := NewSolver(&common.CaptchaConfig{Backend: "claude", APIKey: "k"}, logger); err != nil {
		t.Errorf("claude backend failed: %v", err)
	}

	if _, err := NewSolver(&common.CaptchaConfig{Backend: "nope"}, logger); err == nil {
		t.Error("unknown backend accepted")
	}

	// missing key fails fast
	if _, err := NewSolver(&common.CaptchaConfig{Backend: "gemini"}, logger); err == nil {
		t.Error("gemini backend accepted without api key")
	}
}
