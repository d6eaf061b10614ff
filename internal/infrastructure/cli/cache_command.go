package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/askai-go/internal/app"
	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/infrastructure/cache"
)

func newCacheCommand(container *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or manage the response cache",
	}
	cmd.AddCommand(
		newCacheClearCommand(container),
		newCachePrewarmCommand(container),
		newCacheStatsCommand(container),
		newCacheSweepCommand(container),
	)
	return cmd
}

// newCacheClearCommand clears the disk cache and, when one is running, the
// daemon's memory cache.
func newCacheClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.Cache.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cleared %s\n", container.Cache.Path())

			err := container.Daemon.ClearCache(cmd.Context())
			switch {
			case err == nil:
				fmt.Fprintln(out, "Cleared daemon cache")
			case errors.Is(err, domain.ErrDaemonNotRunning):
			default:
				container.Logger.Warn("daemon cache not cleared", map[string]interface{}{"error": err.Error()})
			}
			return nil
		},
	}
}

func newCachePrewarmCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "prewarm",
		Short: "Seed the cache with common requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			providers := container.Config.PrewarmProviders()
			inserted, err := container.Cache.Prewarm(cache.CommonPrompts(providers...))
			if err != nil {
				return fmt.Errorf("prewarm cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d entries for %v\n", inserted, providers)
			return nil
		},
	}
}

func newCacheStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size, entries and hits",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			RenderCacheStats(out, container.Cache.Stats(), container.Cache.Size())
			if !container.Config.Cache.Enabled {
				fmt.Fprintln(out, "  (lookups disabled by cache.enabled: false)")
			}
			if status, err := container.Daemon.Status(cmd.Context()); err == nil {
				fmt.Fprintf(out, "Daemon cache: %d entries\n", status.CacheEntries)
			}
			return nil
		},
	}
}

func newCacheSweepCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Drop expired entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := container.Cache.Sweep()
			if err != nil {
				return fmt.Errorf("sweep cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries\n", removed)
			return nil
		},
	}
}
