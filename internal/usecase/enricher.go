package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/trustgraph/internal/cvparser"
	"github.com/naka-gawa/trustgraph/internal/domain"
	"github.com/naka-gawa/trustgraph/internal/gateway"
)

// CVLoader loads the CV of a profile.
type CVLoader interface {
	LoadCV(id string) (domain.CV, error)
}

// Enricher combines a profile's CV with extracted skills, a contribution
// verification, and its GitHub account summary.
type Enricher struct {
	cvs      CVLoader
	skills   gateway.SkillExtractor
	verifier ContributionVerifier
	users    gateway.UserFetcher
	logger   zerolog.Logger
}

// NewEnricher creates a new Enricher.
func NewEnricher(cvs CVLoader, skills gateway.SkillExtractor, verifier ContributionVerifier, users gateway.UserFetcher, logger zerolog.Logger) *Enricher {
	return &Enricher{
		cvs:      cvs,
		skills:   skills,
		verifier: verifier,
		users:    users,
		logger:   logger,
	}
}

// Enrich builds the enrichment of profileID. repo ("owner/name") is optional;
// without it no verification is attempted. Only a missing or unreadable CV is
// an error; every other failure is reported as a warning in the result.
func (e *Enricher) Enrich(ctx context.Context, profileID, repo string) (*domain.Enrichment, error) {
	cv, err := e.cvs.LoadCV(profileID)
	if err != nil {
		return nil, err
	}
	login := cvparser.GitHubLogin(cv.GitHub)

	var (
		skills       []string
		verification *domain.VerificationResult
		user         *domain.GitHubUser
		verifyWarn   string
		userWarn     string
	)

	// The goroutines never return errors; the group is only used to fan out.
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		skills = e.skills.ExtractSkills(egCtx, cv.Text)
		return nil
	})

	switch {
	case repo == "":
	case login == "":
		verifyWarn = "CV lists no GitHub account, contribution not verified"
	default:
		eg.Go(func() error {
			result := e.verifier.Verify(egCtx, login, repo)
			verification = &result
			return nil
		})
	}

	if login != "" && e.users != nil {
		eg.Go(func() error {
			u, err := e.users.FetchUser(egCtx, login)
			switch {
			case errors.Is(err, gateway.ErrNoToken):
				e.logger.Debug().Str("login", login).Msg("skipping GitHub user lookup without a token")
			case err != nil:
				userWarn = fmt.Sprintf("GitHub user lookup failed: %v", err)
			default:
				user = u
			}
			return nil
		})
	}

	_ = eg.Wait()

	enrichment := &domain.Enrichment{
		CV:              cv,
		ExtractedSkills: skills,
		Verification:    verification,
		GitHubUser:      user,
	}
	for _, w := range []string{verifyWarn, userWarn} {
		if w != "" {
			enrichment.Warnings = append(enrichment.Warnings, w)
		}
	}
	if enrichment.ExtractedSkills == nil {
		enrichment.ExtractedSkills = []string{}
	}
	return enrichment, nil
}
