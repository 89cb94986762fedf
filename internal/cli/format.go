package cli

import (
	"errors"
	"io"
	"os"

	"github.com/leeovery/dedupe/internal/ledger"
)

// Format represents the output format type.
type Format string

// Format constants for output selection.
const (
	FormatToon   Format = "toon"
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
)

// CountKind names a list of entry/count rows so formatters can label it.
type CountKind string

const (
	KindDuplicates  CountKind = "duplicates"
	KindFrequencies CountKind = "frequencies"
	KindTop         CountKind = "top"
)

// Formatter renders command results. Every command writes through one.
type Formatter interface {
	FormatAdd(w io.Writer, res ledger.Result) error
	FormatBulk(w io.Writer, res ledger.BulkResult) error
	FormatUnique(w io.Writer, entries []string) error
	FormatCounts(w io.Writer, kind CountKind, rows []ledger.Frequency) error
	FormatCount(w io.Writer, entry string, n int) error
	FormatSummary(w io.Writer, s ledger.Summary) error
	FormatMessage(w io.Writer, msg string) error
}

// DetectTTY checks if the given writer is a terminal (TTY).
// Returns false if writer is not an *os.File, if Stat() fails,
// or if the file is not a character device.
func DetectTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}

	info, err := f.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

// ResolveFormat determines the output format from flags, the configured
// default and TTY status. Returns error if more than one format flag is set.
// With no flag and no configured format: Pretty for TTY, Toon otherwise.
func ResolveFormat(toonFlag, prettyFlag, jsonFlag bool, configured string, isTTY bool) (Format, error) {
	count := 0
	for _, set := range []bool{toonFlag, prettyFlag, jsonFlag} {
		if set {
			count++
		}
	}
	if count > 1 {
		return "", errors.New("cannot specify multiple format flags (--toon, --pretty, --json)")
	}

	switch {
	case toonFlag:
		return FormatToon, nil
	case prettyFlag:
		return FormatPretty, nil
	case jsonFlag:
		return FormatJSON, nil
	case configured != "":
		return Format(configured), nil
	case isTTY:
		return FormatPretty, nil
	}
	return FormatToon, nil
}

// newFormatter returns the concrete Formatter for f.
func newFormatter(f Format) Formatter {
	switch f {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatPretty:
		return &PrettyFormatter{}
	default:
		return &ToonFormatter{}
	}
}
