package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leeovery/dedupe/internal/ledger"
)

func (a *App) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <value...>",
		Short: "Add a single entry (arguments are joined with spaces)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				return a.runAdd(s, strings.Join(args, " "))
			})
		},
	}
}

// runAdd adds one entry. Empty or multi-line input is an error for the
// command; a failed store write is only a warning since the entry was still
// counted.
func (a *App) runAdd(s *session, raw string) error {
	res, err := s.engine.AddEntry(raw)
	if res.Status == ledger.StatusRejected {
		if err != nil {
			return err
		}
		return ledger.ErrInvalidInput
	}
	if err != nil {
		a.warn(err)
	}
	if a.opts.Quiet {
		return nil
	}
	return a.fmtr.FormatAdd(a.Stdout, res)
}

func (a *App) bulkCommand() *cobra.Command {
	var sep string
	cmd := &cobra.Command{
		Use:   "bulk <values>",
		Short: "Add separated entries in one go",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				return a.runBulk(s, strings.Join(args, " "), sep)
			})
		},
	}
	cmd.Flags().StringVarP(&sep, "sep", "s", "", "separator (defaults to the configured one)")
	return cmd
}

func (a *App) runBulk(s *session, raw, sep string) error {
	res, err := s.engine.AddBulk(raw, sep)
	if err != nil {
		a.warn(err)
	}
	if a.opts.Quiet {
		return nil
	}
	return a.fmtr.FormatBulk(a.Stdout, res)
}
