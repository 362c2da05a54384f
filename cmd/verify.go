package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/trustgraph/internal/domain"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <username> <repo>...",
	Short: "Verifies a user's commits in one or more repositories",
	Long: `Checks whether a GitHub user authored commits in each given repository
("owner/name") and prints one verification result per repository as JSON.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		results := a.verifier.VerifyAll(ctx, args[0], args[1:])

		if text, _ := cmd.Flags().GetBool("text"); text {
			writeText(cmd.OutOrStdout(), args[1:], results)
			return nil
		}
		jsonData, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results to JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
		return nil
	},
}

// writeText prints one line per repository; results are in repos order.
func writeText(w io.Writer, repos []string, results []domain.VerificationResult) {
	for i, r := range results {
		switch {
		case r.Failed():
			fmt.Fprintf(w, "%s %s: %s (%s)\n", color.RedString("error"), repos[i], r.Error, r.ErrorKind)
		case r.Verified:
			fmt.Fprintf(w, "%s %s: %d commits via %s\n", color.GreenString("verified"), repos[i], *r.CommitCount, r.Method)
		default:
			fmt.Fprintf(w, "%s %s: no commits found via %s\n", color.YellowString("unverified"), repos[i], r.Method)
		}
	}
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().Bool("text", false, "Print coloured text instead of JSON")
}
