package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/trustgraph/internal/config"
	"github.com/naka-gawa/trustgraph/internal/domain"
)

// TestHelperProcess is not a real test. It stands in for the probe program
// when the sandboxed probe re-executes the test binary.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}

	switch os.Getenv("HELPER_MODE") {
	case "verified":
		fmt.Println("VERIFIED: True")
		fmt.Println("COMMITS: 7")
		os.Exit(0)
	case "json":
		fmt.Println(`{"verified":true,"commit_count":2}`)
		os.Exit(0)
	case "args":
		if len(args) == 2 && args[0] == "octocat" && args[1] == "octo/hello" {
			fmt.Println("VERIFIED: True")
			fmt.Println("COMMITS: 1")
			os.Exit(0)
		}
		fmt.Printf("ERROR: unexpected args %q\n", args)
		os.Exit(1)
	case "isolated":
		wd, _ := os.Getwd()
		if os.Getenv("TRUSTGRAPH_TEST_LEAK") == "" &&
			os.Getenv(RunIDEnv) != "" &&
			strings.HasPrefix(filepath.Base(wd), "trustgraph-probe-") &&
			os.Getenv("TRUSTGRAPH_GITHUB__API_URL") == "http://github.test/" {
			fmt.Println("VERIFIED: True")
			fmt.Println("COMMITS: 1")
			os.Exit(0)
		}
		fmt.Println("ERROR: environment leaked into sandbox")
		os.Exit(1)
	case "no-commits":
		fmt.Println("VERIFIED: False")
		fmt.Println("COMMITS: 0")
		os.Exit(1)
	case "stderr-noise":
		fmt.Fprintln(os.Stderr, "ERROR: connection reset, retried")
		fmt.Println("VERIFIED: True")
		fmt.Println("COMMITS: 3")
		os.Exit(0)
	case "garbage":
		fmt.Println("hello from a confused probe")
		os.Exit(0)
	case "sleep":
		time.Sleep(30 * time.Second)
		os.Exit(0)
	}
	os.Exit(2)
}

func newHelperProbe(t *testing.T, mode string, timeout time.Duration) *SandboxedProbe {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("HELPER_MODE", mode)

	exe, err := os.Executable()
	require.NoError(t, err)

	p, err := NewSandboxedProbe(config.SandboxConfig{
		Enabled: true,
		Command: exe,
		Args:    []string{"-test.run=TestHelperProcess", "--"},
		Timeout: timeout,
		Env:     []string{"GO_WANT_HELPER_PROCESS", "HELPER_MODE"},
	}, config.GitHubConfig{APIURL: "http://github.test/", Timeout: time.Second}, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func TestSandboxedProbe_Probe(t *testing.T) {
	testCases := []struct {
		name         string
		mode         string
		timeout      time.Duration
		expected     domain.ProbeOutcome
		expectedKind Kind
	}{
		{
			name:     "verified output",
			mode:     "verified",
			timeout:  10 * time.Second,
			expected: domain.ProbeOutcome{Verified: true, CommitCount: 7},
		},
		{
			name:     "json output",
			mode:     "json",
			timeout:  10 * time.Second,
			expected: domain.ProbeOutcome{Verified: true, CommitCount: 2},
		},
		{
			name:     "positional arguments are username then repo",
			mode:     "args",
			timeout:  10 * time.Second,
			expected: domain.ProbeOutcome{Verified: true, CommitCount: 1},
		},
		{
			name:     "child runs in a scratch directory with a reduced environment",
			mode:     "isolated",
			timeout:  10 * time.Second,
			expected: domain.ProbeOutcome{Verified: true, CommitCount: 1},
		},
		{
			name:     "stderr is not parsed",
			mode:     "stderr-noise",
			timeout:  10 * time.Second,
			expected: domain.ProbeOutcome{Verified: true, CommitCount: 3},
		},
		{
			name:         "non-zero exit is a failure even with a verdict",
			mode:         "no-commits",
			timeout:      10 * time.Second,
			expectedKind: KindExit,
		},
		{
			name:         "unrecognized output",
			mode:         "garbage",
			timeout:      10 * time.Second,
			expectedKind: KindParse,
		},
		{
			name:         "timeout",
			mode:         "sleep",
			timeout:      300 * time.Millisecond,
			expectedKind: KindTimeout,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TRUSTGRAPH_TEST_LEAK", "secret")
			p := newHelperProbe(t, tc.mode, tc.timeout)
			assert.Equal(t, domain.MethodSandboxed, p.Method())

			outcome, err := p.Probe(context.Background(), domain.VerificationRequest{Username: "octocat", Repo: "octo/hello"})
			if tc.expectedKind != "" {
				var pe *Error
				require.True(t, errors.As(err, &pe), "expected *Error, got %v", err)
				assert.Equal(t, tc.expectedKind, pe.Kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, outcome)
		})
	}
}

func TestSandboxedProbe_SpawnFailure(t *testing.T) {
	p, err := NewSandboxedProbe(config.SandboxConfig{
		Enabled: true,
		Command: filepath.Join(t.TempDir(), "does-not-exist"),
		Timeout: time.Second,
	}, config.GitHubConfig{APIURL: "http://github.test/", Timeout: time.Second}, zerolog.Nop())
	require.NoError(t, err)

	_, err = p.Probe(context.Background(), domain.VerificationRequest{Username: "octocat", Repo: "octo/hello"})
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindSpawn, pe.Kind)
}

func TestSandboxedProbe_CallerCancellation(t *testing.T) {
	p := newHelperProbe(t, "sleep", 30*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := p.Probe(ctx, domain.VerificationRequest{Username: "octocat", Repo: "octo/hello"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestNewSandboxedProbe_ForwardsGitHubSettings(t *testing.T) {
	t.Setenv("PASS_ME", "yes")
	p, err := NewSandboxedProbe(config.SandboxConfig{
		Enabled: true,
		Command: "verify-github",
		Timeout: time.Second,
		Env:     []string{"PASS_ME", "NOT_SET_ANYWHERE"},
	}, config.GitHubConfig{APIURL: "https://ghe.example/", Token: "tok", Timeout: 10 * time.Second}, zerolog.Nop())
	require.NoError(t, err)

	env := p.environ("/tmp/x", "run-1")
	assert.Contains(t, env, "HOME=/tmp/x")
	assert.Contains(t, env, RunIDEnv+"=run-1")
	assert.Contains(t, env, "TRUSTGRAPH_GITHUB__API_URL=https://ghe.example/")
	assert.Contains(t, env, "TRUSTGRAPH_GITHUB__TOKEN=tok")
	assert.Contains(t, env, "TRUSTGRAPH_GITHUB__TIMEOUT=10s")
	assert.Contains(t, env, "PASS_ME=yes")
	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, "NOT_SET_ANYWHERE="))
	}
	assert.Equal(t, "verify-github", p.command)
}
