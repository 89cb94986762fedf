// Package cli implements the dedupe command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leeovery/dedupe/internal/config"
	"github.com/leeovery/dedupe/internal/ledger"
	"github.com/leeovery/dedupe/internal/storage"
)

// dirName is the per-project directory holding the store, cache, lock and config.
const dirName = ".dedupe"

// App is the dedupe CLI application.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Dir is the working directory commands resolve .dedupe/ from.
	Dir string

	opts   globalOpts
	fmtr   Formatter
	logger *zap.Logger
}

// globalOpts holds parsed global flags.
type globalOpts struct {
	Quiet   bool
	Verbose bool
	Toon    bool
	Pretty  bool
	JSON    bool
}

// Run parses args and dispatches the subcommand. args[0] is the program name.
// Returns the exit code (0 for success, 1 for error).
func (a *App) Run(args []string) int {
	a.opts = globalOpts{}
	if a.Stdin == nil {
		a.Stdin = os.Stdin
	}

	root := a.rootCommand()
	root.SetArgs(args[1:])
	root.SetIn(a.Stdin)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(a.Stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dedupe",
		Short:         "Track duplicate text entries in a flat-file ledger",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = newLogger(a.Stderr, a.opts.Verbose)
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.opts.Quiet, "quiet", "q", false, "suppress non-essential output")
	pf.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "more detail for debugging")
	pf.BoolVar(&a.opts.Toon, "toon", false, "force TOON output format")
	pf.BoolVar(&a.opts.Pretty, "pretty", false, "force human-readable output format")
	pf.BoolVar(&a.opts.JSON, "json", false, "force JSON output format")

	root.AddCommand(
		a.initCommand(),
		a.addCommand(),
		a.bulkCommand(),
		a.uniqueCommand(),
		a.duplicatesCommand(),
		a.frequenciesCommand(),
		a.summaryCommand(),
		a.countCommand(),
		a.clearCommand(),
		a.topCommand(),
		a.rebuildCommand(),
		a.doctorCommand(),
		a.shellCommand(),
	)
	return root
}

// resolveFormatter picks the formatter from flags, the configured format and
// whether stdout is a terminal.
func (a *App) resolveFormatter(configured string) error {
	f, err := ResolveFormat(a.opts.Toon, a.opts.Pretty, a.opts.JSON, configured, DetectTTY(a.Stdout))
	if err != nil {
		return err
	}
	a.fmtr = newFormatter(f)
	return nil
}

// warn reports a non-fatal problem on stderr.
func (a *App) warn(err error) {
	fmt.Fprintf(a.Stderr, "Warning: %s\n", err)
}

// session is an opened ledger: config, store and a loaded engine.
type session struct {
	dir     string
	cfg     config.Config
	store   *storage.Store
	engine  *ledger.Engine
	// loadErr is set when LoadFromStore stopped early; the engine then holds
	// only part of the store.
	loadErr error
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession discovers .dedupe/, loads its config, opens the store and
// replays it into a new engine. A failed load is reported as a warning and
// the partially loaded ledger is still returned.
func (a *App) openSession() (*session, error) {
	dir, err := FindDedupeDir(a.Dir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if err := a.resolveFormatter(cfg.Format); err != nil {
		return nil, err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}

	a.logger.Debug("store open " + dir)
	store, err := storage.Open(dir,
		storage.WithFileName(cfg.StoreFile),
		storage.WithLockTimeout(timeout),
		storage.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}

	engine := ledger.New(store,
		ledger.WithLogger(a.logger),
		ledger.WithSeparator(cfg.Separator),
	)
	loadErr := engine.LoadFromStore()
	if loadErr != nil {
		a.warn(loadErr)
	}

	return &session{dir: dir, cfg: cfg, store: store, engine: engine, loadErr: loadErr}, nil
}

// withSession opens a session, runs fn and closes the store afterwards.
func (a *App) withSession(fn func(s *session) error) error {
	s, err := a.openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// FindDedupeDir walks up from startDir looking for a .dedupe directory.
// Returns the path to the .dedupe directory or an error if not found.
func FindDedupeDir(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		candidate := filepath.Join(dir, dirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("not a dedupe project (no %s directory found); run 'dedupe init'", dirName)
}
