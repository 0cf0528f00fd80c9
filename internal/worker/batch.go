package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Surjit27/Clairvox/internal/model"
)

// Verifier verifies a single claim
type Verifier interface {
	Verify(ctx context.Context, claim string) *model.ConfidenceResult
}

// VerifyJob verifies one claim
type VerifyJob struct {
	Claim    string
	Verifier Verifier
}

// Execute implements Job
func (j *VerifyJob) Execute(ctx context.Context) Result {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return &ClaimResult{Claim: j.Claim, Error: err}
	}
	return &ClaimResult{
		Claim:   j.Claim,
		Result:  j.Verifier.Verify(ctx, j.Claim),
		Elapsed: time.Since(start),
	}
}

// ClaimResult is the outcome of one batch entry
type ClaimResult struct {
	Claim   string
	Result  *model.ConfidenceResult
	Error   error // Set only when the batch was cancelled before the claim ran
	Elapsed time.Duration
}

// GetError implements Result
func (r *ClaimResult) GetError() error {
	return r.Error
}

// BatchVerifier verifies many claims concurrently. Sources share one
// limiter through the verifier, so concurrency never exceeds their rates.
type BatchVerifier struct {
	verifier    Verifier
	concurrency int
}

// NewBatchVerifier creates a batch verifier
func NewBatchVerifier(verifier Verifier, concurrency int) *BatchVerifier {
	return &BatchVerifier{
		verifier:    verifier,
		concurrency: concurrency,
	}
}

// VerifyClaims verifies every claim and returns results in input order
func (b *BatchVerifier) VerifyClaims(ctx context.Context, claims []string) []*ClaimResult {
	if len(claims) == 0 {
		return []*ClaimResult{}
	}

	pool := NewPool(ctx, min(b.concurrency, len(claims)))
	pool.Start()

	for _, claim := range claims {
		pool.Submit(&VerifyJob{Claim: claim, Verifier: b.verifier})
	}

	results := pool.Wait()

	out := make([]*ClaimResult, len(claims))
	for i := range claims {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*ClaimResult)
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &ClaimResult{Claim: claims[i], Error: err}
	}
	return out
}

// VerifyFile reads claims from a file and verifies them
func (b *BatchVerifier) VerifyFile(ctx context.Context, filePath string) ([]*ClaimResult, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}
	return b.VerifyClaims(ctx, claims), nil
}

// ReadClaimsFromFile reads claims from a file, one per line
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadClaims(file)
}

// ReadClaims reads one claim per line, skipping blanks, # comments and
// duplicates
func ReadClaims(r io.Reader) ([]string, error) {
	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
