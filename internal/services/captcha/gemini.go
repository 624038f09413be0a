package captcha

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/models"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiSolver answers captcha challenges with a multimodal Gemini
// completion: image plus free-text prompt in, free-text answer out.
type GeminiSolver struct {
	client *genai.Client
	model  string
	logger arbor.ILogger
}

// NewGeminiSolver creates a Gemini-backed captcha solver.
func NewGeminiSolver(config *common.CaptchaConfig, logger arbor.ILogger) (*GeminiSolver, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("captcha gemini backend requires an api key")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiSolver{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (s *GeminiSolver) Name() string { return "gemini" }

func (s *GeminiSolver) Solve(ctx context.Context, image []byte, question string) (string, error) {
	prompt := solvePrompt(question)

	content := &genai.Content{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, "image/png"),
		},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, []*genai.Content{content}, nil)
	if err != nil {
		return "", &models.CaptchaError{Backend: s.Name(), Err: err}
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", &models.CaptchaError{Backend: s.Name(), Err: fmt.Errorf("empty completion")}
	}

	s.logger.Debug().Str("model", s.model).Msg("Captcha answered by Gemini")
	return answer, nil
}

// solvePrompt frames the challenge so the model returns only the answer text.
func solvePrompt(question string) string {
	if question == "" {
		question = "Read the characters shown in this captcha image."
	}
	return question + " Reply with the answer text only, no explanation."
}
