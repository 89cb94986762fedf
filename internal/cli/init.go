package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leeovery/dedupe/internal/config"
)

func (a *App) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize dedupe in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit()
		},
	}
}

// runInit creates .dedupe/ with an empty store and a default config file.
func (a *App) runInit() error {
	if err := a.resolveFormatter(""); err != nil {
		return err
	}
	dir := filepath.Join(a.Dir, dirName)

	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("dedupe already initialized in this directory")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create %s/ directory: %w", dirName, err)
	}

	cfg := config.Default()
	if err := config.Save(dir, cfg); err != nil {
		os.RemoveAll(dir)
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, cfg.StoreFile), []byte(""), 0644); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("could not create %s: %w", cfg.StoreFile, err)
	}
	a.logger.Debug("init: created " + dir)

	if a.opts.Quiet {
		return nil
	}
	absDir, _ := filepath.Abs(dir)
	return a.fmtr.FormatMessage(a.Stdout, fmt.Sprintf("Initialized dedupe in %s/", absDir))
}
