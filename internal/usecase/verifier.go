// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/trustgraph/internal/domain"
	"github.com/naka-gawa/trustgraph/internal/probe"
)

// maxConcurrentVerifications bounds VerifyAll.
const maxConcurrentVerifications = 4

// ContributionVerifier is what callers of the verification workflow depend on.
type ContributionVerifier interface {
	Verify(ctx context.Context, username, repo string) domain.VerificationResult
}

// Verifier is the use case for verifying a claimed GitHub contribution.
// It tries its probers in order and stops at the first one that succeeds.
type Verifier struct {
	probers  []probe.Prober
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewVerifier creates a new Verifier. Probers are tried in the given order.
func NewVerifier(logger zerolog.Logger, probers ...probe.Prober) *Verifier {
	return &Verifier{
		probers:  probers,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Verify never fails: every failure is folded into the returned result.
// Failures of all but the last prober are logged and trigger the next one;
// the last prober's failure is what the result reports.
func (v *Verifier) Verify(ctx context.Context, username, repo string) domain.VerificationResult {
	req := domain.VerificationRequest{Username: username, Repo: repo}
	if err := v.validate.Struct(req); err != nil {
		return domain.Failed(domain.ErrorKindInput, domain.MissingInputMessage)
	}

	log := v.logger.With().Str("username", username).Str("repo", repo).Logger()

	var lastErr error
	for i, p := range v.probers {
		outcome, err := p.Probe(ctx, req)
		if err == nil {
			log.Info().
				Str("method", string(p.Method())).
				Bool("verified", outcome.Verified).
				Int("commit_count", outcome.CommitCount).
				Msg("verification complete")
			return domain.Succeeded(req, p.Method(), outcome)
		}
		lastErr = err
		if i < len(v.probers)-1 {
			log.Warn().
				Str("method", string(p.Method())).
				Str("kind", string(kindOf(err))).
				Err(err).
				Msg("probe failed, falling back")
		}
	}

	if lastErr == nil {
		return domain.Failed(domain.ErrorKindSandbox, "no verification method configured")
	}
	log.Warn().Str("kind", string(kindOf(lastErr))).Err(lastErr).Msg("verification failed")

	var pe *probe.Error
	if errors.As(lastErr, &pe) {
		return domain.Failed(pe.ResultKind(), pe.Error())
	}
	return domain.Failed(domain.ErrorKindNetwork, lastErr.Error())
}

// VerifyAll verifies username against each repository concurrently.
// Results are in the order of repos.
func (v *Verifier) VerifyAll(ctx context.Context, username string, repos []string) []domain.VerificationResult {
	results := make([]domain.VerificationResult, len(repos))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentVerifications)
	for i, repo := range repos {
		eg.Go(func() error {
			results[i] = v.Verify(egCtx, username, repo)
			return nil
		})
	}
	// Verify never returns an error, so neither does Wait.
	_ = eg.Wait()
	return results
}

func kindOf(err error) probe.Kind {
	var pe *probe.Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return "unknown"
}
