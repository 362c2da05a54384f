// Package domain contains the core data structures and domain logic for the application.
package domain

// Method identifies which probe produced a verification result.
type Method string

const (
	MethodSandboxed Method = "sandboxed"
	MethodDirect    Method = "direct"
)

// ErrorKind classifies a failed verification.
type ErrorKind string

const (
	ErrorKindInput       ErrorKind = "input"
	ErrorKindRemoteAPI   ErrorKind = "remote_api"
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindNetwork     ErrorKind = "network"
	ErrorKindSandbox     ErrorKind = "sandbox"
)

// MissingInputMessage is reported when a request lacks a username or repository.
const MissingInputMessage = "Missing username or repo"

// VerificationRequest asks whether Username has commits in Repo ("owner/name").
type VerificationRequest struct {
	Username string `json:"username" validate:"required"`
	Repo     string `json:"repo" validate:"required"`
}

// ProbeOutcome is what a successful probe reports before it is tagged with a method.
type ProbeOutcome struct {
	Verified    bool
	CommitCount int
}

// VerificationResult is the single result shape returned for every verification,
// successful or not. CommitCount is nil on failure, Error is empty on success.
type VerificationResult struct {
	Verified    bool      `json:"verified"`
	CommitCount *int      `json:"commit_count,omitempty"`
	Username    string    `json:"username,omitempty"`
	Repo        string    `json:"repo,omitempty"`
	Method      Method    `json:"method,omitempty"`
	Error       string    `json:"error,omitempty"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
}

// Succeeded builds the result for an outcome produced by the given method.
func Succeeded(req VerificationRequest, method Method, outcome ProbeOutcome) VerificationResult {
	count := outcome.CommitCount
	return VerificationResult{
		Verified:    outcome.Verified,
		CommitCount: &count,
		Username:    req.Username,
		Repo:        req.Repo,
		Method:      method,
	}
}

// Failed builds a failure result. It never carries a method or commit count.
func Failed(kind ErrorKind, msg string) VerificationResult {
	return VerificationResult{
		Verified:  false,
		Error:     msg,
		ErrorKind: kind,
	}
}

// Failed reports whether the result describes a failure rather than a count.
func (r VerificationResult) Failed() bool {
	return r.Error != ""
}
