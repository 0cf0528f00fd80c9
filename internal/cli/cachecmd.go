package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Surjit27/Clairvox/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the source response cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, backend, err := openCache()
		if err != nil || c == nil {
			return err
		}
		p, ok := c.(cache.Pruner)
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s backend expires entries on its own\n", backend)
			return nil
		}
		n, err := p.Prune()
		if err != nil {
			return fmt.Errorf("prune cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d expired entries\n", n)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := openCache()
		if err != nil || c == nil {
			return err
		}
		if err := c.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// openCache builds the configured backend. A nil Cache means caching is off,
// which is reported to stderr rather than treated as an error.
func openCache() (cache.Cache, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	c, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, cfg.Cache.Backend, fmt.Errorf("cache: %w", err)
	}
	if c == nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Caching is disabled (cache.backend: none)")
	}
	return c, cfg.Cache.Backend, nil
}
