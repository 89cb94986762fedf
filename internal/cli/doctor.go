package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leeovery/dedupe/internal/config"
	"github.com/leeovery/dedupe/internal/doctor"
)

func (a *App) doctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics on the store and cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDoctor(cmd.Context())
		},
	}
}

// runDoctor reads the store once and runs every diagnostic against it. It
// never modifies the project: the store is read directly, so a missing file
// stays missing and is reported. Error-severity failures exit 1.
func (a *App) runDoctor(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dir, err := FindDedupeDir(a.Dir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	snap := doctor.Snapshot{Dir: dir, StoreFile: cfg.StoreFile}
	snap.Raw, snap.ReadErr = os.ReadFile(filepath.Join(dir, cfg.StoreFile))

	a.logger.Debug("doctor: running checks")
	report := doctor.Default().RunAll(ctx, snap)
	doctor.FormatReport(a.Stdout, report)

	if report.HasErrors() {
		return fmt.Errorf("doctor found %d error(s)", report.ErrorCount())
	}
	return nil
}
