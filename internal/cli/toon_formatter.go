package cli

import (
	"fmt"
	"io"

	toon "github.com/toon-format/toon-go"

	"github.com/leeovery/dedupe/internal/ledger"
)

// ToonFormatter implements the Formatter interface using TOON format.
// TOON (Token-Oriented Object Notation) is optimized for agent consumption:
// count lists render as one tabular section with an {entry,count} header.
type ToonFormatter struct{}

// FormatAdd renders the add result with an optional most_frequent object.
func (f *ToonFormatter) FormatAdd(w io.Writer, res ledger.Result) error {
	fields := []toon.Field{
		{Key: "status", Value: string(res.Status)},
		{Key: "entry", Value: res.Entry},
	}
	if res.Found {
		fields = append(fields, toon.Field{Key: "most_frequent", Value: frequencyObject(res.MostFrequent)})
	}
	return f.write(w, toon.NewObject(fields...))
}

// FormatBulk renders the processed count with an optional most_frequent object.
func (f *ToonFormatter) FormatBulk(w io.Writer, res ledger.BulkResult) error {
	fields := []toon.Field{{Key: "processed", Value: res.Processed}}
	if res.Found {
		fields = append(fields, toon.Field{Key: "most_frequent", Value: frequencyObject(res.MostFrequent)})
	}
	return f.write(w, toon.NewObject(fields...))
}

// FormatUnique renders entries as an inline array. Empty lists produce
// unique[0]: with no values.
func (f *ToonFormatter) FormatUnique(w io.Writer, entries []string) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "unique[0]:")
		return err
	}
	return f.write(w, toon.NewObject(toon.Field{Key: "unique", Value: entries}))
}

// FormatCounts renders rows in tabular form keyed by kind.
// Empty lists produce kind[0]{entry,count}: with no rows.
func (f *ToonFormatter) FormatCounts(w io.Writer, kind CountKind, rows []ledger.Frequency) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintf(w, "%s[0]{entry,count}:\n", kind)
		return err
	}

	objects := make([]toon.Object, len(rows))
	for i, r := range rows {
		objects[i] = frequencyObject(r)
	}
	return f.write(w, toon.NewObject(toon.Field{Key: string(kind), Value: objects}))
}

// FormatCount renders one entry's count.
func (f *ToonFormatter) FormatCount(w io.Writer, entry string, n int) error {
	return f.write(w, frequencyObject(ledger.Frequency{Entry: entry, Count: n}))
}

// FormatSummary renders the summary counts as a single object.
func (f *ToonFormatter) FormatSummary(w io.Writer, s ledger.Summary) error {
	return f.write(w, toon.NewObject(toon.Field{Key: "summary", Value: toon.NewObject(
		toon.Field{Key: "total", Value: s.TotalEntries},
		toon.Field{Key: "unique", Value: s.UniqueEntries},
		toon.Field{Key: "duplicate_values", Value: s.DuplicateValues},
	)}))
}

// FormatMessage renders a simple message as plain text.
func (f *ToonFormatter) FormatMessage(w io.Writer, msg string) error {
	_, err := fmt.Fprintln(w, msg)
	return err
}

func (f *ToonFormatter) write(w io.Writer, doc toon.Object) error {
	result, err := toon.MarshalString(doc)
	if err != nil {
		return fmt.Errorf("toon marshal error: %w", err)
	}
	_, err = fmt.Fprintln(w, result)
	return err
}

func frequencyObject(fr ledger.Frequency) toon.Object {
	return toon.NewObject(
		toon.Field{Key: "entry", Value: fr.Entry},
		toon.Field{Key: "count", Value: fr.Count},
	)
}
