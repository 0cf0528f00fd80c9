package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Surjit27/Clairvox/internal/worker"
)

var (
	concurrency  int
	outputFile   string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify many claims from a file in parallel",
	Long: `Batch verifies claims concurrently:
- Read claims from the input file (one per line, # starts a comment)
- Verify claims in parallel with a configurable worker count
- Every worker shares the per-source rate limits and the query cache
- Write one JSON result per line, in input order

Example:
  clairvox batch claims.txt
  clairvox batch claims.txt --concurrency 8 --out results.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: worker.concurrency)")
	batchCmd.Flags().StringVar(&outputFile, "out", "", "write JSON Lines results to a file instead of stdout")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	workers := concurrency
	if workers <= 0 {
		workers = a.cfg.Worker.Concurrency
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Clairvox Batch Verification\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	out := cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	start := time.Now()
	results, err := worker.NewBatchVerifier(a.verifier, workers).VerifyFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	counts, failures, err := writeJSONLines(out, results)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d claims\n", len(results))
	for _, class := range sortedKeys(counts) {
		fmt.Fprintf(os.Stderr, "  %-22s %d\n", class+":", counts[class])
	}
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failures)
	fmt.Fprintf(os.Stderr, "  Elapsed:   %v\n", time.Since(start).Round(time.Millisecond))
	if outputFile != "" {
		fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputFile)
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// writeJSONLines writes one result per line and tallies classifications
func writeJSONLines(w io.Writer, results []*worker.ClaimResult) (map[string]int, int, error) {
	enc := json.NewEncoder(w)
	counts := make(map[string]int)
	failures := 0

	for _, r := range results {
		if r.Error != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Claim, r.Error)
			continue
		}
		if err := enc.Encode(r.Result); err != nil {
			return nil, 0, fmt.Errorf("write result: %w", err)
		}
		counts[string(r.Result.Classification)]++
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ %s (%s, %d/100)\n", r.Claim, r.Result.Classification, r.Result.ConfidenceScore)
		}
	}
	return counts, failures, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
