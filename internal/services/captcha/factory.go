// Package captcha resolves login captcha challenges through interchangeable
// backends: an external OCR task queue or a multimodal LLM.
package captcha

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/interfaces"
)

// NewSolver creates the configured captcha solving backend.
func NewSolver(config *common.CaptchaConfig, logger arbor.ILogger) (interfaces.CaptchaSolver, error) {
	switch config.Backend {
	case "taskqueue", "":
		return NewTaskQueueSolver(config, logger)
	case "gemini":
		return NewGeminiSolver(config, logger)
	case "claude":
		return NewClaudeSolver(config, logger)
	default:
		return nil, fmt.Errorf("unknown captcha backend: %q", config.Backend)
	}
}
