package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/leeovery/dedupe/internal/ledger"
)

// JSONFormatter implements the Formatter interface using JSON output.
// All keys use snake_case. Output is 2-space indented via json.MarshalIndent.
type JSONFormatter struct{}

type jsonFrequency struct {
	Entry string `json:"entry"`
	Count int    `json:"count"`
}

// jsonAdd omits most_frequent when the ledger is empty.
type jsonAdd struct {
	Status       string         `json:"status"`
	Entry        string         `json:"entry"`
	MostFrequent *jsonFrequency `json:"most_frequent,omitempty"`
}

type jsonBulk struct {
	Processed    int            `json:"processed"`
	MostFrequent *jsonFrequency `json:"most_frequent,omitempty"`
}

type jsonSummary struct {
	Total           int `json:"total"`
	Unique          int `json:"unique"`
	DuplicateValues int `json:"duplicate_values"`
}

type jsonMessage struct {
	Message string `json:"message"`
}

func snapshot(fr ledger.Frequency, found bool) *jsonFrequency {
	if !found {
		return nil
	}
	return &jsonFrequency{Entry: fr.Entry, Count: fr.Count}
}

// FormatAdd renders the add result as an object.
func (f *JSONFormatter) FormatAdd(w io.Writer, res ledger.Result) error {
	return writeJSON(w, jsonAdd{
		Status:       string(res.Status),
		Entry:        res.Entry,
		MostFrequent: snapshot(res.MostFrequent, res.Found),
	})
}

// FormatBulk renders the bulk result as an object.
func (f *JSONFormatter) FormatBulk(w io.Writer, res ledger.BulkResult) error {
	return writeJSON(w, jsonBulk{
		Processed:    res.Processed,
		MostFrequent: snapshot(res.MostFrequent, res.Found),
	})
}

// FormatUnique renders entries as an array, [] when empty.
func (f *JSONFormatter) FormatUnique(w io.Writer, entries []string) error {
	if entries == nil {
		entries = []string{}
	}
	return writeJSON(w, entries)
}

// FormatCounts renders rows as an array of {entry,count} objects, [] when empty.
func (f *JSONFormatter) FormatCounts(w io.Writer, _ CountKind, rows []ledger.Frequency) error {
	out := make([]jsonFrequency, len(rows))
	for i, r := range rows {
		out[i] = jsonFrequency{Entry: r.Entry, Count: r.Count}
	}
	return writeJSON(w, out)
}

// FormatCount renders one entry's count.
func (f *JSONFormatter) FormatCount(w io.Writer, entry string, n int) error {
	return writeJSON(w, jsonFrequency{Entry: entry, Count: n})
}

// FormatSummary renders the summary counts.
func (f *JSONFormatter) FormatSummary(w io.Writer, s ledger.Summary) error {
	return writeJSON(w, jsonSummary{
		Total:           s.TotalEntries,
		Unique:          s.UniqueEntries,
		DuplicateValues: s.DuplicateValues,
	})
}

// FormatMessage renders {"message": msg}.
func (f *JSONFormatter) FormatMessage(w io.Writer, msg string) error {
	return writeJSON(w, jsonMessage{Message: msg})
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal error: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
