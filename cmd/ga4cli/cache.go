package main

import (
	"fmt"

	"ga4cli/internal/query"
	"ga4cli/internal/results"

	"github.com/spf13/cobra"
)

func newCacheCmd(c *cli) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local metadata cache",
		Long: `Dimension and metric catalogs are cached per preset in ~/.ga4cli/cache for
24 hours. Report rows are never cached.`,
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE:  c.cacheStats,
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired cache entries",
		Args:  cobra.NoArgs,
		RunE:  c.cacheCleanup,
	}

	clearCmd := &cobra.Command{
		Use:   "clear [propertyId]",
		Short: "Remove cached catalogs for one property, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.cacheClear,
	}

	cacheCmd.AddCommand(statsCmd, cleanupCmd, clearCmd)
	return cacheCmd
}

func (c *cli) cacheStats(cmd *cobra.Command, args []string) error {
	metadataCache, err := c.openCache(cmd)
	if err != nil {
		return err
	}
	defer metadataCache.Close()

	stats, err := metadataCache.Stats(cmd.Context())
	if err != nil {
		return err
	}

	lastCleanup := "never"
	if stats.LastCleanup != nil {
		lastCleanup = stats.LastCleanup.Local().Format("2006-01-02 15:04:05")
	}

	columns := []string{"namespace", "entries", "expired", "hits", "misses", "hitRate", "lastCleanup"}
	return c.writer(cmd).Detail(columns, results.Row{
		"namespace":   stats.Namespace,
		"entries":     stats.Entries,
		"expired":     stats.ExpiredCount,
		"hits":        stats.TotalHits,
		"misses":      stats.TotalMisses,
		"hitRate":     fmt.Sprintf("%.1f%%", stats.HitRate),
		"lastCleanup": lastCleanup,
	})
}

func (c *cli) cacheCleanup(cmd *cobra.Command, args []string) error {
	metadataCache, err := c.openCache(cmd)
	if err != nil {
		return err
	}
	defer metadataCache.Close()

	removed, err := metadataCache.Cleanup(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "🧹 Removed %d expired entries\n", removed)
	return nil
}

func (c *cli) cacheClear(cmd *cobra.Command, args []string) error {
	metadataCache, err := c.openCache(cmd)
	if err != nil {
		return err
	}
	defer metadataCache.Close()

	property := ""
	if len(args) > 0 {
		property = query.PropertyPath(args[0])
	}

	removed, err := metadataCache.Clear(cmd.Context(), property)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "🗑️  Removed %d cached catalogs\n", removed)
	return nil
}
