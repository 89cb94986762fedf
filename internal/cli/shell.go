package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leeovery/dedupe/internal/ledger"
)

const menu = `
=== dedupe ===
1. Add Data Entry
2. Add Bulk Data
3. View Unique Entries (Sorted)
4. View Duplicate Entries
5. View Frequency Report
6. Clear All Data
7. Exit
Enter your choice: `

func (a *App) shellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive menu over the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				sh := &shell{
					in:     bufio.NewScanner(a.Stdin),
					out:    a.Stdout,
					fmtr:   &PrettyFormatter{},
					engine: s.engine,
					sep:    s.cfg.Separator,
					warn:   a.warn,
				}
				return sh.run()
			})
		},
	}
}

// shell is the interactive menu loop. It always renders in pretty format.
type shell struct {
	in     *bufio.Scanner
	out    io.Writer
	fmtr   Formatter
	engine *ledger.Engine
	sep    string
	warn   func(error)
}

// run prints the startup summary and serves menu choices until Exit or EOF.
func (sh *shell) run() error {
	if err := sh.fmtr.FormatSummary(sh.out, sh.engine.Summary()); err != nil {
		return err
	}

	for {
		fmt.Fprint(sh.out, menu)
		choice, ok := sh.readChoice()
		if !ok {
			fmt.Fprintln(sh.out)
			return nil
		}

		var err error
		switch choice {
		case 1:
			err = sh.addSingle()
		case 2:
			err = sh.addBulk()
		case 3:
			err = sh.fmtr.FormatUnique(sh.out, sh.engine.ListUnique())
		case 4:
			err = sh.fmtr.FormatCounts(sh.out, KindDuplicates, sh.engine.ListDuplicates())
		case 5:
			err = sh.fmtr.FormatCounts(sh.out, KindFrequencies, sh.engine.ListFrequencies())
		case 6:
			if cerr := sh.engine.ClearAll(); cerr != nil {
				sh.warn(cerr)
			}
			err = sh.fmtr.FormatMessage(sh.out, "All data cleared.")
		case 7:
			return sh.fmtr.FormatMessage(sh.out, "Exiting application. Goodbye.")
		default:
			err = sh.fmtr.FormatMessage(sh.out, "Invalid choice. Try again.")
		}
		if err != nil {
			return err
		}
	}
}

// readChoice reads lines until one parses as a number. ok is false on EOF.
func (sh *shell) readChoice() (int, bool) {
	for {
		line, ok := sh.readLine()
		if !ok {
			return 0, false
		}
		if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
			return n, true
		}
		fmt.Fprint(sh.out, "Enter a valid number: ")
	}
}

func (sh *shell) readLine() (string, bool) {
	if !sh.in.Scan() {
		return "", false
	}
	return sh.in.Text(), true
}

func (sh *shell) addSingle() error {
	fmt.Fprint(sh.out, "Enter value: ")
	line, ok := sh.readLine()
	if !ok {
		return nil
	}

	res, err := sh.engine.AddEntry(line)
	if err != nil {
		sh.warn(err)
	}
	return sh.fmtr.FormatAdd(sh.out, res)
}

func (sh *shell) addBulk() error {
	fmt.Fprintf(sh.out, "Enter values separated by %q: ", sh.sep)
	line, ok := sh.readLine()
	if !ok {
		return nil
	}

	res, err := sh.engine.AddBulk(line, sh.sep)
	if err != nil {
		sh.warn(err)
	}
	return sh.fmtr.FormatBulk(sh.out, res)
}
