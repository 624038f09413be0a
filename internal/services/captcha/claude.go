package captcha

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/models"
)

const defaultClaudeModel = "claude-3-5-haiku-latest"

// ClaudeSolver answers captcha challenges with a multimodal Claude message.
type ClaudeSolver struct {
	client *anthropic.Client
	model  string
	logger arbor.ILogger
}

// NewClaudeSolver creates a Claude-backed captcha solver.
func NewClaudeSolver(config *common.CaptchaConfig, logger arbor.ILogger) (*ClaudeSolver, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("captcha claude backend requires an api key")
	}

	client := anthropic.NewClient(option.WithAPIKey(config.APIKey))

	model := config.Model
	if model == "" {
		model = defaultClaudeModel
	}

	return &ClaudeSolver{
		client: &client,
		model:  model,
		logger: logger,
	}, nil
}

func (s *ClaudeSolver) Name() string { return "claude" }

func (s *ClaudeSolver) Solve(ctx context.Context, image []byte, question string) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(image)

	message, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: 64,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64("image/png", encoded),
				anthropic.NewTextBlock(solvePrompt(question)),
			),
		},
	})
	if err != nil {
		return "", &models.CaptchaError{Backend: s.Name(), Err: err}
	}

	var answer string
	for _, block := range message.Content {
		if block.Type == "text" {
			answer = block.Text
			break
		}
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", &models.CaptchaError{Backend: s.Name(), Err: fmt.Errorf("empty completion")}
	}

	s.logger.Debug().Str("model", s.model).Msg("Captcha answered by Claude")
	return answer, nil
}
