package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leeovery/dedupe/internal/ledger"
)

// reportCommand builds a read-only command that renders from a loaded session.
func (a *App) reportCommand(use, short string, render func(s *session) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(render)
		},
	}
}

func (a *App) uniqueCommand() *cobra.Command {
	return a.reportCommand("unique", "List distinct entries, sorted", func(s *session) error {
		return a.fmtr.FormatUnique(a.Stdout, s.engine.ListUnique())
	})
}

func (a *App) duplicatesCommand() *cobra.Command {
	return a.reportCommand("duplicates", "List entries seen more than once", func(s *session) error {
		return a.fmtr.FormatCounts(a.Stdout, KindDuplicates, s.engine.ListDuplicates())
	})
}

func (a *App) frequenciesCommand() *cobra.Command {
	return a.reportCommand("frequencies", "List every entry with its count", func(s *session) error {
		return a.fmtr.FormatCounts(a.Stdout, KindFrequencies, s.engine.ListFrequencies())
	})
}

func (a *App) summaryCommand() *cobra.Command {
	return a.reportCommand("summary", "Show total, unique and duplicate counts", func(s *session) error {
		return a.fmtr.FormatSummary(a.Stdout, s.engine.Summary())
	})
}

func (a *App) countCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "count <value...>",
		Short: "Show how many times an entry has been seen",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				raw := strings.Join(args, " ")
				entry := ledger.Normalize(raw)
				if entry == "" {
					return ledger.ErrInvalidInput
				}
				return a.fmtr.FormatCount(a.Stdout, entry, a.lookupCount(s, entry))
			})
		},
	}
}

func (a *App) clearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all entries and truncate the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				if err := s.engine.ClearAll(); err != nil {
					return err
				}
				if a.opts.Quiet {
					return nil
				}
				return a.fmtr.FormatMessage(a.Stdout, "All data cleared.")
			})
		},
	}
}

// lookupCount reads the count from the frequency cache, rebuilding it if the
// store changed. When the cache is unavailable it falls back to the engine.
func (a *App) lookupCount(s *session, entry string) int {
	c, err := a.freshCache(s)
	if err != nil {
		a.logger.Debug("count: cache unavailable, using ledger", zap.Error(err))
		return s.engine.Count(entry)
	}
	defer c.Close()

	n, err := c.Lookup(entry)
	if err != nil {
		a.logger.Debug("count: lookup failed, using ledger", zap.Error(err))
		return s.engine.Count(entry)
	}
	return n
}
