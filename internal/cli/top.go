package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leeovery/dedupe/internal/cache"
)

const cacheFile = "cache.db"

func (a *App) topCommand() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the most frequent entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 1 {
				return fmt.Errorf("-n must be at least 1, got %d", n)
			}
			return a.withSession(func(s *session) error {
				c, err := a.freshCache(s)
				if err != nil {
					return err
				}
				defer c.Close()

				rows, err := c.Top(n)
				if err != nil {
					return err
				}
				return a.fmtr.FormatCounts(a.Stdout, KindTop, rows)
			})
		},
	}
	cmd.Flags().IntVarP(&n, "limit", "n", 5, "number of entries to show")
	return cmd
}

func (a *App) rebuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Force rebuild of the SQLite frequency cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				path := filepath.Join(s.dir, cacheFile)
				a.logger.Debug("delete existing " + cacheFile)
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("removing cache: %w", err)
				}

				c, err := a.freshCache(s)
				if err != nil {
					return err
				}
				defer c.Close()

				if a.opts.Quiet {
					return nil
				}
				msg := fmt.Sprintf("Rebuilt cache: %d entries", len(s.engine.ListFrequencies()))
				return a.fmtr.FormatMessage(a.Stdout, msg)
			})
		},
	}
}

// freshCache opens the frequency cache, rebuilding it if the store changed
// since it was last built. A partially loaded session never feeds the cache,
// since its counts would be recorded against the hash of the whole store.
func (a *App) freshCache(s *session) (*cache.Cache, error) {
	if s.loadErr != nil {
		return nil, fmt.Errorf("cache not rebuilt: %w", s.loadErr)
	}
	raw, err := s.store.ReadRaw()
	if err != nil {
		return nil, err
	}
	return cache.EnsureFresh(filepath.Join(s.dir, cacheFile), s.engine.ListFrequencies(), raw, a.logger)
}
