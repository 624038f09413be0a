package submit

import (
	"sort"

	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/models"
)

// Registry maps providers to their submission strategies. It is built once
// at startup from configuration and read-only afterwards.
type Registry struct {
	submitters map[models.Provider]Submitter
	logger     arbor.ILogger
}

// NewRegistry creates an empty strategy registry.
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		submitters: make(map[models.Provider]Submitter),
		logger:     logger,
	}
}

// Register adds a strategy for its provider, replacing any previous one.
func (r *Registry) Register(s Submitter) {
	r.submitters[s.Provider()] = s
	r.logger.Info().Str("provider", string(s.Provider())).Msg("Submission strategy registered")
}

// For returns the strategy for provider, or ConfigError when none is
// registered (provider disabled or unknown).
func (r *Registry) For(provider models.Provider) (Submitter, error) {
	s, ok := r.submitters[provider]
	if !ok {
		return nil, &models.ConfigError{Provider: provider, Reason: "no submission strategy registered"}
	}
	return s, nil
}

// Providers lists the registered providers in stable order.
func (r *Registry) Providers() []models.Provider {
	providers := make([]models.Provider, 0, len(r.submitters))
	for p := range r.submitters {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}
