package probe

import (
	"context"
	"errors"
	"time"

	"github.com/naka-gawa/trustgraph/internal/domain"
	"github.com/naka-gawa/trustgraph/internal/gateway"
)

// DirectProbe asks the commit search API in-process.
type DirectProbe struct {
	searcher gateway.CommitSearcher
	timeout  time.Duration
}

// NewDirectProbe creates a DirectProbe bounding each search by timeout.
func NewDirectProbe(searcher gateway.CommitSearcher, timeout time.Duration) *DirectProbe {
	return &DirectProbe{searcher: searcher, timeout: timeout}
}

func (p *DirectProbe) Method() domain.Method { return domain.MethodDirect }

func (p *DirectProbe) Probe(ctx context.Context, req domain.VerificationRequest) (domain.ProbeOutcome, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	count, err := p.searcher.CountCommits(ctx, req.Username, req.Repo)
	if err != nil {
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			if apiErr.RateLimited {
				return domain.ProbeOutcome{}, &Error{Kind: KindRateLimited, Err: apiErr}
			}
			return domain.ProbeOutcome{}, &Error{Kind: KindRemoteAPI, Err: apiErr}
		}
		return domain.ProbeOutcome{}, &Error{Kind: KindNetwork, Err: err}
	}
	return domain.ProbeOutcome{Verified: count > 0, CommitCount: count}, nil
}
