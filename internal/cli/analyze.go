package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Surjit27/Clairvox/internal/extract"
	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/pipeline"
	"github.com/Surjit27/Clairvox/internal/worker"
)

var (
	analyzeURL     string
	analyzeMax     int
	analyzeTimeout time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Split an answer into claims and verify each one",
	Long: `Analyze segments an answer (plain text or HTML) into claim sentences and
verifies every claim. The answer is read from a file, from stdin when no
file is given, or downloaded with --url.

Example:
  clairvox analyze answer.txt
  pbpaste | clairvox analyze --json
  clairvox analyze --url https://example.com/answer.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "download the answer from a URL")
	analyzeCmd.Flags().IntVar(&analyzeMax, "max-claims", 20, "verify at most this many claims")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as a JSON array")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 10*time.Minute, "overall analysis timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	claims, err := answerClaims(ctx, a, cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if len(claims) == 0 {
		return fmt.Errorf("no verifiable claims found in the answer")
	}
	if analyzeMax > 0 && len(claims) > analyzeMax {
		fmt.Fprintf(os.Stderr, "⚠️  Found %d claims, verifying the first %d\n", len(claims), analyzeMax)
		claims = claims[:analyzeMax]
	}

	fmt.Fprintf(os.Stderr, "✓ Extracted %d claims\n", len(claims))

	results := worker.NewBatchVerifier(a.verifier, a.cfg.Worker.Concurrency).VerifyClaims(ctx, claims)
	return writeResults(cmd.OutOrStdout(), results)
}

func answerClaims(ctx context.Context, a *app, stdin io.Reader, args []string) ([]string, error) {
	if analyzeURL != "" {
		if verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Fetching %s\n", analyzeURL)
		}
		fetcher := extract.NewFetcher(a.httpClient, a.cfg.Search.UserAgent, a.cfg.Search.MaxBodyBytes)
		page, err := fetcher.FetchWithRetry(ctx, analyzeURL)
		if err != nil {
			return nil, fmt.Errorf("fetch answer: %w", err)
		}
		return extract.SegmentPage(page), nil
	}

	var data []byte
	var err error
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return nil, fmt.Errorf("read answer: %w", err)
	}
	return extract.Segment(string(data)), nil
}

// writeResults prints every verified claim, or the cancellation error
func writeResults(w io.Writer, results []*worker.ClaimResult) error {
	verified := make([]*model.ConfidenceResult, 0, len(results))
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Claim, r.Error)
			continue
		}
		verified = append(verified, r.Result)
	}

	if jsonOutput {
		return pipeline.RenderJSON(w, verified)
	}
	for i, r := range verified {
		if i > 0 {
			fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
		}
		if err := pipeline.RenderSummary(w, r); err != nil {
			return err
		}
	}
	return nil
}
