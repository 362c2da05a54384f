package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/naka-gawa/trustgraph/internal/config"
	"github.com/naka-gawa/trustgraph/internal/domain"
)

// RunIDEnv carries the sandbox run id into the child process.
const RunIDEnv = "TRUSTGRAPH_PROBE_RUN_ID"

// waitDelay bounds how long Wait blocks on output pipes held open by grandchildren.
const waitDelay = time.Second

// SandboxedProbe runs the probe program in a child process with a scratch
// working directory and a reduced environment.
type SandboxedProbe struct {
	command string
	args    []string
	timeout time.Duration
	env     []string
	logger  zerolog.Logger
}

// NewSandboxedProbe creates a SandboxedProbe. The GitHub settings are forwarded
// to the child so that it queries the same endpoint as the parent.
func NewSandboxedProbe(cfg config.SandboxConfig, gh config.GitHubConfig, logger zerolog.Logger) (*SandboxedProbe, error) {
	command := cfg.Command
	if strings.ContainsRune(command, filepath.Separator) {
		abs, err := filepath.Abs(command)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve sandbox command: %w", err)
		}
		command = abs
	}

	env := []string{
		config.EnvPrefix + "GITHUB__API_URL=" + gh.APIURL,
		config.EnvPrefix + "GITHUB__TIMEOUT=" + gh.Timeout.String(),
	}
	if gh.Token != "" {
		env = append(env, config.EnvPrefix+"GITHUB__TOKEN="+gh.Token)
	}
	for _, name := range cfg.Env {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}

	return &SandboxedProbe{
		command: command,
		args:    cfg.Args,
		timeout: cfg.Timeout,
		env:     env,
		logger:  logger,
	}, nil
}

func (p *SandboxedProbe) Method() domain.Method { return domain.MethodSandboxed }

func (p *SandboxedProbe) Probe(ctx context.Context, req domain.VerificationRequest) (domain.ProbeOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	runID := uuid.NewString()
	dir, err := os.MkdirTemp("", "trustgraph-probe-"+runID+"-")
	if err != nil {
		return domain.ProbeOutcome{}, &Error{Kind: KindSpawn, Err: fmt.Errorf("failed to create sandbox directory: %w", err)}
	}
	defer os.RemoveAll(dir)

	args := make([]string, 0, len(p.args)+2)
	args = append(args, p.args...)
	args = append(args, req.Username, req.Repo)

	cmd := exec.CommandContext(ctx, p.command, args...)
	cmd.Dir = dir
	cmd.Env = p.environ(dir, runID)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.Debug().Str("run_id", runID).Str("command", p.command).Strs("args", args).Msg("starting sandboxed probe")
	start := time.Now()
	runErr := cmd.Run()
	p.logger.Debug().Str("run_id", runID).Dur("elapsed", time.Since(start)).Msg("sandboxed probe finished")

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return domain.ProbeOutcome{}, &Error{Kind: KindTimeout, Err: fmt.Errorf("sandboxed probe timed out after %s", p.timeout)}
			}
			return domain.ProbeOutcome{}, &Error{Kind: KindTimeout, Err: fmt.Errorf("sandboxed probe aborted: %w", ctxErr)}
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return domain.ProbeOutcome{}, &Error{
				Kind: KindExit,
				Err:  fmt.Errorf("sandboxed probe exited with code %d: %s", exitErr.ExitCode(), exitReason(stdout.String(), stderr.String())),
			}
		}
		return domain.ProbeOutcome{}, &Error{Kind: KindSpawn, Err: fmt.Errorf("failed to start sandboxed probe: %w", runErr)}
	}

	if stderr.Len() > 0 {
		p.logger.Debug().Str("run_id", runID).Str("stderr", firstLine(stderr.String())).Msg("sandboxed probe wrote to stderr")
	}

	outcome, err := ParseOutput(stdout.String())
	if err != nil {
		return domain.ProbeOutcome{}, &Error{Kind: KindParse, Err: err}
	}
	return outcome, nil
}

// environ is the whole environment of the child: nothing is inherited except PATH.
func (p *SandboxedProbe) environ(dir, runID string) []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + dir,
		"TMPDIR=" + dir,
		RunIDEnv + "=" + runID,
	}
	return append(env, p.env...)
}

// exitReason prefers the report on stdout and falls back to stderr.
func exitReason(stdout, stderr string) string {
	if line := firstLine(stdout); line != "" {
		return line
	}
	return firstLine(stderr)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
