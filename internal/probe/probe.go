// Package probe implements the strategies used to verify a GitHub contribution:
// a sandboxed child process and a direct call to the commit search API.
package probe

import (
	"context"

	"github.com/naka-gawa/trustgraph/internal/domain"
)

// Prober is one verification strategy.
type Prober interface {
	// Method tags results produced by this prober.
	Method() domain.Method
	// Probe returns the outcome for req, or an *Error describing why it could not.
	Probe(ctx context.Context, req domain.VerificationRequest) (domain.ProbeOutcome, error)
}

// Kind classifies a probe failure.
type Kind string

const (
	KindSpawn       Kind = "spawn"
	KindTimeout     Kind = "timeout"
	KindExit        Kind = "exit"
	KindParse       Kind = "parse"
	KindRemoteAPI   Kind = "remote_api"
	KindRateLimited Kind = "rate_limited"
	KindNetwork     Kind = "network"
)

// Error is returned by probers. Its message is what callers surface to users.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// ResultKind maps the failure onto the kinds exposed in verification results.
func (e *Error) ResultKind() domain.ErrorKind {
	switch e.Kind {
	case KindRemoteAPI:
		return domain.ErrorKindRemoteAPI
	case KindRateLimited:
		return domain.ErrorKindRateLimited
	case KindNetwork:
		return domain.ErrorKindNetwork
	default:
		return domain.ErrorKindSandbox
	}
}
