package captcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/models"
)

// TaskQueueSolver submits the captcha image to an external OCR task queue
// and polls for the solved text. The queue protocol is createTask ->
// getTaskResult polled until status "ready".
type TaskQueueSolver struct {
	endpoint     string
	apiKey       string
	pollInterval time.Duration
	pollAttempts int
	client       *http.Client
	logger       arbor.ILogger
}

type createTaskRequest struct {
	ClientKey string         `json:"clientKey"`
	Task      createTaskBody `json:"task"`
}

type createTaskBody struct {
	Type    string `json:"type"`
	Body    string `json:"body"` // base64 image
	Comment string `json:"comment,omitempty"`
}

type createTaskResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription,omitempty"`
	TaskID           int64  `json:"taskId"`
}

type taskResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    int64  `json:"taskId"`
}

type taskResultResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription,omitempty"`
	Status           string `json:"status"` // "processing" or "ready"
	Solution         struct {
		Text string `json:"text"`
	} `json:"solution"`
}

// NewTaskQueueSolver creates a task-queue backed captcha solver.
func NewTaskQueueSolver(config *common.CaptchaConfig, logger arbor.ILogger) (*TaskQueueSolver, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("captcha taskqueue backend requires an endpoint")
	}
	pollInterval := time.Duration(config.PollInterval)
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	pollAttempts := config.PollAttempts
	if pollAttempts <= 0 {
		pollAttempts = 20
	}
	return &TaskQueueSolver{
		endpoint:     config.Endpoint,
		apiKey:       config.APIKey,
		pollInterval: pollInterval,
		pollAttempts: pollAttempts,
		client:       &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}, nil
}

func (s *TaskQueueSolver) Name() string { return "taskqueue" }

// Solve submits the image and polls until the queue reports the task ready.
// Polling is bounded; a queue that never reaches "ready" surfaces a
// CaptchaError rather than spinning.
func (s *TaskQueueSolver) Solve(ctx context.Context, image []byte, question string) (string, error) {
	taskID, err := s.createTask(ctx, image, question)
	if err != nil {
		return "", &models.CaptchaError{Backend: s.Name(), Err: err}
	}

	s.logger.Debug().Int64("task_id", taskID).Msg("Captcha task created, polling for result")

	for attempt := 1; attempt <= s.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", &models.CaptchaError{Backend: s.Name(), Attempts: attempt, Err: ctx.Err()}
		case <-time.After(s.pollInterval):
		}

		result, err := s.getTaskResult(ctx, taskID)
		if err != nil {
			return "", &models.CaptchaError{Backend: s.Name(), Attempts: attempt, Err: err}
		}
		if result.Status == "ready" {
			s.logger.Debug().Int64("task_id", taskID).Int("attempts", attempt).Msg("Captcha solved")
			return result.Solution.Text, nil
		}
	}

	return "", &models.CaptchaError{
		Backend:  s.Name(),
		Attempts: s.pollAttempts,
		Err:      fmt.Errorf("task %d never reached ready state", taskID),
	}
}

func (s *TaskQueueSolver) createTask(ctx context.Context, image []byte, question string) (int64, error) {
	payload := createTaskRequest{
		ClientKey: s.apiKey,
		Task: createTaskBody{
			Type:    "ImageToTextTask",
			Body:    base64.StdEncoding.EncodeToString(image),
			Comment: question,
		},
	}

	var resp createTaskResponse
	if err := s.post(ctx, s.endpoint+"/createTask", payload, &resp); err != nil {
		return 0, err
	}
	if resp.ErrorID != 0 {
		return 0, fmt.Errorf("createTask rejected: %s", resp.ErrorDescription)
	}
	return resp.TaskID, nil
}

func (s *TaskQueueSolver) getTaskResult(ctx context.Context, taskID int64) (*taskResultResponse, error) {
	payload := taskResultRequest{ClientKey: s.apiKey, TaskID: taskID}

	var resp taskResultResponse
	if err := s.post(ctx, s.endpoint+"/getTaskResult", payload, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorID != 0 {
		return nil, fmt.Errorf("getTaskResult rejected: %s", resp.ErrorDescription)
	}
	return &resp, nil
}

func (s *TaskQueueSolver) post(ctx context.Context, url string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
