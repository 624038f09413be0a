// Package submit implements the per-provider URL submission strategies and
// the registry the scheduler dispatches through.
package submit

import (
	"context"
	"errors"

	"github.com/submitto/submitto/internal/models"
)

// OutcomeStatus is the per-URL result of one submission attempt.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeSkipped OutcomeStatus = "skipped" // provider already has the URL
	OutcomeFail    OutcomeStatus = "fail"
)

// Outcome is the result of submitting one URL to one provider.
type Outcome struct {
	Provider models.Provider
	URL      string
	Status   OutcomeStatus
	Message  string
}

// Submitter submits a single URL for a site to one provider. Submission
// rejections come back as an Outcome when they are per-URL verdicts
// (duplicate, invalid) and as an error when the whole channel is unusable
// (auth, configuration, browser).
type Submitter interface {
	Provider() models.Provider
	Submit(ctx context.Context, site *models.Site, url string) (*Outcome, error)
}

// Batcher is an optional Submitter capability for providers with a cheaper
// multi-URL path (shared session, paced concurrency).
type Batcher interface {
	SubmitBatch(ctx context.Context, site *models.Site, urls []string) (*BatchResult, error)
}

// BatchResult aggregates outcomes across a batch. A single URL failure never
// aborts the rest of the batch.
type BatchResult struct {
	Outcomes  []*Outcome
	Succeeded int
	Skipped   int
	Failed    int
}

func (r *BatchResult) add(o *Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case OutcomeSuccess:
		r.Succeeded++
	case OutcomeSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// RunBatch submits every URL, using the submitter's batch path when it has
// one and falling back to sequential submission otherwise.
func RunBatch(ctx context.Context, s Submitter, site *models.Site, urls []string) (*BatchResult, error) {
	if b, ok := s.(Batcher); ok {
		return b.SubmitBatch(ctx, site, urls)
	}

	result := &BatchResult{}
	for _, url := range urls {
		outcome, err := s.Submit(ctx, site, url)
		if err != nil {
			converted, ok := outcomeFromError(s.Provider(), url, err)
			if !ok {
				return result, err
			}
			result.add(converted)
			continue
		}
		result.add(outcome)
	}
	return result, nil
}

// outcomeFromError folds a per-URL rejection into an Outcome. Channel-level
// failures (auth, config, browser, captcha) stay errors so the caller stops
// instead of burning the rest of the batch.
func outcomeFromError(provider models.Provider, url string, err error) (*Outcome, bool) {
	var subErr *models.SubmissionError
	if !errors.As(err, &subErr) {
		return nil, false
	}

	status := OutcomeFail
	if subErr.Kind == models.SubmissionDuplicate {
		status = OutcomeSkipped
	}
	return &Outcome{
		Provider: provider,
		URL:      url,
		Status:   status,
		Message:  subErr.Message,
	}, true
}
