// Package gateway provides gateways to the external services trustgraph talks to:
// the GitHub REST and GraphQL APIs and the language model used for skill extraction.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"github.com/rs/zerolog"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/trustgraph/internal/config"
	"github.com/naka-gawa/trustgraph/internal/domain"
)

// ErrNoToken is returned by calls that need an authenticated client when no token is configured.
var ErrNoToken = errors.New("github token is not configured")

// APIError reports a non-success HTTP status from the GitHub API.
type APIError struct {
	StatusCode  int
	RateLimited bool
	Err         error
}

func (e *APIError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("GitHub API rate limited: %d", e.StatusCode)
	}
	return fmt.Sprintf("GitHub API error: %d", e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }

// CommitSearcher counts the commits an author has in a repository.
type CommitSearcher interface {
	CountCommits(ctx context.Context, username, repo string) (int, error)
}

// UserFetcher looks up public information about a GitHub account.
type UserFetcher interface {
	FetchUser(ctx context.Context, login string) (*domain.GitHubUser, error)
}

// GitHubGateway is the concrete implementation of CommitSearcher and UserFetcher.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	authenticated bool
	logger        zerolog.Logger
}

// userQuery fetches the account summary shown during profile enrichment.
type userQuery struct {
	User struct {
		Login        githubv4.String
		Name         githubv4.String
		Company      githubv4.String
		Repositories struct {
			TotalCount githubv4.Int
		} `graphql:"repositories(privacy: PUBLIC)"`
		ContributionsCollection struct {
			TotalCommitContributions githubv4.Int
		}
	} `graphql:"user(login: $login)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// The token is optional: commit search works unauthenticated, the GraphQL user
// lookup does not. Commit search goes out once per call and reports rate limits
// as they come; only the GraphQL client waits out secondary rate limits.
func NewGitHubGateway(cfg config.GitHubConfig, logger zerolog.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(cfg.MaxRateLimitSleep, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	restClient := github.NewClient(&http.Client{Transport: withToken(http.DefaultTransport, cfg.Token)})
	baseURL, err := url.Parse(withTrailingSlash(cfg.APIURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse GitHub API URL: %w", err)
	}
	restClient.BaseURL = baseURL

	graphqlHTTP := &http.Client{Transport: withToken(rateLimitWaiter, cfg.Token)}

	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: githubv4.NewEnterpriseClient(cfg.GraphQLURL, graphqlHTTP),
		authenticated: cfg.Token != "",
		logger:        logger,
	}, nil
}

// withToken adds bearer authentication to base when a token is set.
func withToken(base http.RoundTripper, token string) http.RoundTripper {
	if token == "" {
		return base
	}
	return &oauth2.Transport{
		Base:   base,
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
	}
}

// CountCommits runs a commit search scoped to author and repository and returns
// the reported total_count. go-github sends the cloak-preview media type for
// commit search.
func (g *GitHubGateway) CountCommits(ctx context.Context, username, repo string) (int, error) {
	query := fmt.Sprintf("author:%s repo:%s", username, repo)
	g.logger.Debug().Str("query", query).Msg("searching commits")

	// Only total_count is needed, so keep the page small.
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 1}}
	result, resp, err := g.restClient.Search.Commits(ctx, query, opts)
	if err != nil {
		if apiErr := asAPIError(resp, err); apiErr != nil {
			return 0, apiErr
		}
		return 0, err
	}
	return result.GetTotal(), nil
}

// FetchUser fetches login, name, company, public repository count, and the
// commit contributions of the last year through the GraphQL API.
func (g *GitHubGateway) FetchUser(ctx context.Context, login string) (*domain.GitHubUser, error) {
	if !g.authenticated {
		return nil, ErrNoToken
	}
	var q userQuery
	variables := map[string]interface{}{"login": githubv4.String(login)}
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL user query: %w", err)
	}
	return &domain.GitHubUser{
		Login:           string(q.User.Login),
		Name:            string(q.User.Name),
		Company:         string(q.User.Company),
		PublicRepos:     int(q.User.Repositories.TotalCount),
		CommitsLastYear: int(q.User.ContributionsCollection.TotalCommitContributions),
	}, nil
}

// asAPIError returns nil when err is a transport failure rather than an HTTP status.
func asAPIError(resp *github.Response, err error) *APIError {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	rateLimited := errors.As(err, &rateErr) || errors.As(err, &abuseErr)

	if resp == nil || resp.Response == nil {
		if rateLimited {
			return &APIError{StatusCode: http.StatusForbidden, RateLimited: true, Err: err}
		}
		return nil
	}
	status := resp.StatusCode
	if status >= 200 && status < 300 {
		return nil
	}
	if status == http.StatusForbidden || status == http.StatusTooManyRequests {
		rateLimited = true
	}
	return &APIError{StatusCode: status, RateLimited: rateLimited, Err: err}
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
