package probe

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/trustgraph/internal/config"
	"github.com/naka-gawa/trustgraph/internal/domain"
	"github.com/naka-gawa/trustgraph/internal/gateway"
	"github.com/naka-gawa/trustgraph/internal/logger"
)

// Main runs the probe program with args (without the program name) and returns
// its exit code: 0 when commits were found, 1 otherwise.
func Main(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}
	code := 1

	cmd := &cobra.Command{
		Use:   "verify-github <username> <repo>",
		Short: "Checks whether a user has commits in a GitHub repository.",
		Long: `verify-github searches the GitHub commit index for commits authored by
<username> in <repo> (owner/name). It prints "VERIFIED: True|False" and
"COMMITS: <n>", or "ERROR: <message>", and exits 0 only when commits were found.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			format, _ := cmd.Flags().GetString("format")
			verbose, _ := cmd.Flags().GetBool("verbose")
			code = runStandalone(cmd.Context(), args[0], args[1], format, verbose, stdout, stderr)
		},
	}
	cmd.Flags().String("format", FormatText, "Output format (text|json)")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging on stderr")
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return code
}

func runStandalone(ctx context.Context, username, repo, format string, verbose bool, stdout, stderr io.Writer) int {
	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Options{Level: level, Service: "verify-github", Writer: stderr})

	fail := func(err error) int {
		if werr := WriteReport(stdout, format, domain.ProbeOutcome{}, err); werr != nil {
			log.Error().Err(werr).Msg("failed to write report")
		}
		return 1
	}

	cfg, err := config.Load("")
	if err != nil {
		return fail(err)
	}
	gh, err := gateway.NewGitHubGateway(cfg.GitHub, log)
	if err != nil {
		return fail(err)
	}

	req := domain.VerificationRequest{Username: username, Repo: repo}
	outcome, err := NewDirectProbe(gh, cfg.GitHub.Timeout).Probe(ctx, req)
	if err != nil {
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			return fail(fmt.Errorf("GitHub API returned %d", apiErr.StatusCode))
		}
		return fail(err)
	}
	if err := WriteReport(stdout, format, outcome, nil); err != nil {
		log.Error().Err(err).Msg("failed to write report")
		return 1
	}
	if outcome.CommitCount > 0 {
		return 0
	}
	return 1
}
