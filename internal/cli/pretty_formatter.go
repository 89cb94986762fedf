package cli

import (
	"fmt"
	"io"

	"github.com/leeovery/dedupe/internal/ledger"
)

const noData = "No data available."

// PrettyFormatter implements the Formatter interface for human-readable
// terminal output in plain sentences, one fact per line.
type PrettyFormatter struct{}

// FormatAdd reports whether the entry was new, then the most frequent entry.
func (f *PrettyFormatter) FormatAdd(w io.Writer, res ledger.Result) error {
	switch res.Status {
	case ledger.StatusRejected:
		_, err := fmt.Fprintln(w, "Empty input ignored.")
		return err
	case ledger.StatusDuplicate:
		fmt.Fprintf(w, "Duplicate entry detected: %s\n", res.Entry)
	default:
		fmt.Fprintf(w, "New entry added: %s\n", res.Entry)
	}
	return f.mostFrequent(w, res.MostFrequent, res.Found)
}

// FormatBulk reports the processed count, then the most frequent entry.
func (f *PrettyFormatter) FormatBulk(w io.Writer, res ledger.BulkResult) error {
	fmt.Fprintf(w, "%d entries processed.\n", res.Processed)
	return f.mostFrequent(w, res.MostFrequent, res.Found)
}

func (f *PrettyFormatter) mostFrequent(w io.Writer, top ledger.Frequency, found bool) error {
	if !found {
		return nil
	}
	_, err := fmt.Fprintf(w, "Most frequent so far: %s (%d times)\n", top.Entry, top.Count)
	return err
}

// FormatUnique lists entries one per line under a heading.
func (f *PrettyFormatter) FormatUnique(w io.Writer, entries []string) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, noData)
		return err
	}
	fmt.Fprintln(w, "Unique Entries (Sorted):")
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, e); err != nil {
			return err
		}
	}
	return nil
}

// FormatCounts lists "entry -> count" rows under a heading for kind.
func (f *PrettyFormatter) FormatCounts(w io.Writer, kind CountKind, rows []ledger.Frequency) error {
	heading, empty := "Frequency Report:", noData
	switch kind {
	case KindDuplicates:
		heading, empty = "Duplicate Entries:", "No duplicates found."
	case KindTop:
		heading = "Top Entries:"
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, empty)
		return err
	}
	fmt.Fprintln(w, heading)
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s -> %d\n", r.Entry, r.Count); err != nil {
			return err
		}
	}
	return nil
}

// FormatCount renders a single entry's count.
func (f *PrettyFormatter) FormatCount(w io.Writer, entry string, n int) error {
	_, err := fmt.Fprintf(w, "%s -> %d\n", entry, n)
	return err
}

// FormatSummary renders the data summary block.
func (f *PrettyFormatter) FormatSummary(w io.Writer, s ledger.Summary) error {
	_, err := fmt.Fprintf(w,
		"--- Data Summary ---\nTotal entries: %d\nUnique entries: %d\nDuplicate values: %d\n--------------------\n",
		s.TotalEntries, s.UniqueEntries, s.DuplicateValues)
	return err
}

// FormatMessage renders a simple message as plain text.
func (f *PrettyFormatter) FormatMessage(w io.Writer, msg string) error {
	_, err := fmt.Fprintln(w, msg)
	return err
}
