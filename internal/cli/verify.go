package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/pipeline"
)

var (
	jsonOutput    bool
	verifyTimeout time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <claim>",
	Short: "Verify a single claim against the literature",
	Long: `Verify runs one claim through every stage:
- Domain rules (physically implausible claims stop here)
- Fabricated term detection (terms no database knows stop here)
- Evidence and contradiction search in CrossRef, Europe PMC and arXiv
- Relevance reranking and confidence scoring

Use "-" to read the claim from stdin.

Example:
  clairvox verify "Optogenetic stimulation of engram cells in mice can induce recall of a memory"
  clairvox verify --json "Caffeine improves reaction time" > result.json
  echo "Sleep consolidates memory" | clairvox verify -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the full result as JSON")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 2*time.Minute, "overall verification timeout")
}

func runVerify(cmd *cobra.Command, args []string) error {
	claim, err := claimFromArgs(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Verifying: %s\n", claim)
	}

	result := a.verifier.Verify(ctx, claim)

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ %d searches issued\n", len(result.SearchActions))
		fmt.Fprintf(os.Stderr, "✓ %d evidence items considered\n", result.EvidenceConsidered)
		fmt.Fprintln(os.Stderr)
	}

	return writeResult(cmd.OutOrStdout(), result)
}

func writeResult(w io.Writer, r *model.ConfidenceResult) error {
	if jsonOutput {
		return pipeline.RenderJSON(w, r)
	}
	return pipeline.RenderSummary(w, r)
}

// claimFromArgs joins the arguments, or reads stdin for "-"
func claimFromArgs(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.TrimSpace(strings.Join(args, " ")), nil
}
