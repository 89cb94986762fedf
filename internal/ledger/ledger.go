// Package ledger provides the deduplication engine: it normalizes raw text
// entries, tracks how often each one occurs and persists every processed entry
// to a Store.
package ledger

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultSeparator splits bulk input when no separator is given.
const DefaultSeparator = ","

var (
	// ErrInvalidInput reports an entry that is empty after normalization.
	ErrInvalidInput = errors.New("empty input ignored")
	// ErrStoreWrite reports a failed append or truncate of the persistent store.
	ErrStoreWrite = errors.New("error writing to data file")
	// ErrStoreRead reports a failed read of the persistent store.
	ErrStoreRead = errors.New("error reading data file")
)

// Store is the persistence the engine writes processed entries to.
type Store interface {
	Append(entry string) error
	Truncate() error
	ReadLines(fn func(line string) error) error
}

// Status describes what AddEntry did with its input.
type Status string

const (
	StatusAdded     Status = "added"
	StatusDuplicate Status = "duplicate"
	StatusRejected  Status = "rejected"
)

// Frequency pairs a normalized entry with its occurrence count.
type Frequency struct {
	Entry string
	Count int
}

// Result is returned by AddEntry.
type Result struct {
	Status Status
	Entry  string
	// MostFrequent is the snapshot after processing; Found is false when the
	// ledger is empty (only possible for a rejected first entry).
	MostFrequent Frequency
	Found        bool
}

// BulkResult is returned by AddBulk.
type BulkResult struct {
	Processed    int
	MostFrequent Frequency
	Found        bool
}

// Summary holds the aggregate counts reported at startup and on demand.
type Summary struct {
	TotalEntries    int
	UniqueEntries   int
	DuplicateValues int
}

// Engine owns all ledger state. A single mutex covers every public
// operation including its store call.
type Engine struct {
	mu        sync.Mutex
	store     Store
	logger    *zap.Logger
	separator string

	seen      map[string]struct{}
	frequency map[string]int
	history   []string
	// order holds distinct entries by first occurrence. Reports and tie
	// breaking iterate in this order.
	order []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSeparator sets the separator AddBulk uses when called with an empty one.
func WithSeparator(sep string) Option {
	return func(e *Engine) {
		if sep != "" {
			e.separator = sep
		}
	}
}

// New creates an empty Engine backed by store. A nil store keeps the ledger
// in memory only.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		logger:    zap.NewNop(),
		separator: DefaultSeparator,
	}
	e.reset()
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) reset() {
	e.seen = make(map[string]struct{})
	e.frequency = make(map[string]int)
	e.history = nil
	e.order = nil
}

// Normalize trims surrounding whitespace and lowercases raw.
func Normalize(raw string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(raw))
}

// checkEntry rejects a normalized value that cannot be stored as one line.
func checkEntry(value string) error {
	if value == "" {
		return ErrInvalidInput
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: %q contains a line break", ErrInvalidInput, value)
	}
	return nil
}

// ProcessEntry records one occurrence of an already normalized, non-empty
// entry and appends it to the store. It reports whether the entry had been
// seen before. A store failure is returned but the in-memory update stands.
// Empty entries and entries containing a line break are rejected with
// ErrInvalidInput before any state changes.
func (e *Engine) ProcessEntry(normalized string) (bool, error) {
	if err := checkEntry(normalized); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.process(normalized)
}

func (e *Engine) process(normalized string) (bool, error) {
	dup := e.record(normalized)
	if e.store == nil {
		return dup, nil
	}
	if err := e.store.Append(normalized); err != nil {
		e.logger.Warn("store append failed, memory and disk have diverged",
			zap.String("entry", normalized), zap.Error(err))
		return dup, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return dup, nil
}

// record applies one occurrence to the in-memory containers only.
func (e *Engine) record(normalized string) bool {
	_, dup := e.frequency[normalized]
	e.history = append(e.history, normalized)
	e.seen[normalized] = struct{}{}
	if !dup {
		e.order = append(e.order, normalized)
	}
	e.frequency[normalized]++
	return dup
}

// AddEntry normalizes raw and processes it. Empty input yields StatusRejected
// and leaves state untouched. Input with an inner line break is rejected the
// same way and also returns ErrInvalidInput. Otherwise the returned error is
// non-nil only when the store write failed; the Result is valid either way.
func (e *Engine) AddEntry(raw string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	value := Normalize(raw)
	if err := checkEntry(value); err != nil {
		top, ok := e.mostFrequent()
		res := Result{Status: StatusRejected, MostFrequent: top, Found: ok}
		if value == "" {
			return res, nil
		}
		return res, err
	}

	dup, err := e.process(value)
	res := Result{Status: StatusAdded, Entry: value}
	if dup {
		res.Status = StatusDuplicate
	}
	res.MostFrequent, res.Found = e.mostFrequent()
	return res, err
}

// AddBulk splits raw on sep and processes every non-empty piece. An empty sep
// uses the engine's configured separator. Pieces with an inner line break are
// skipped. Those rejections and store failures do not stop the batch; they
// are joined into the returned error.
func (e *Engine) AddBulk(raw, sep string) (BulkResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sep == "" {
		sep = e.separator
	}

	var res BulkResult
	var errs []error
	for _, piece := range strings.Split(raw, sep) {
		value := Normalize(piece)
		if value == "" {
			continue
		}
		if err := checkEntry(value); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := e.process(value); err != nil {
			errs = append(errs, err)
		}
		res.Processed++
	}
	res.MostFrequent, res.Found = e.mostFrequent()
	return res, errors.Join(errs...)
}

// ListUnique returns every distinct entry sorted case-insensitively.
func (e *Engine) ListUnique() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, 0, len(e.seen))
	for v := range e.seen {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return out
}

// ListDuplicates returns entries seen more than once, in first-occurrence order.
func (e *Engine) ListDuplicates() []Frequency {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := []Frequency{}
	for _, v := range e.order {
		if n := e.frequency[v]; n > 1 {
			out = append(out, Frequency{Entry: v, Count: n})
		}
	}
	return out
}

// ListFrequencies returns every entry with its count, in first-occurrence order.
func (e *Engine) ListFrequencies() []Frequency {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Frequency, 0, len(e.order))
	for _, v := range e.order {
		out = append(out, Frequency{Entry: v, Count: e.frequency[v]})
	}
	return out
}

// MostFrequent returns the entry with the strictly greatest count. On a tie
// the entry that was first seen earliest wins. ok is false for an empty ledger.
func (e *Engine) MostFrequent() (Frequency, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mostFrequent()
}

func (e *Engine) mostFrequent() (Frequency, bool) {
	var top Frequency
	for _, v := range e.order {
		if n := e.frequency[v]; n > top.Count {
			top = Frequency{Entry: v, Count: n}
		}
	}
	return top, top.Count > 0
}

// Count returns how many times raw (after normalization) has been processed.
func (e *Engine) Count(raw string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frequency[Normalize(raw)]
}

// ClearAll empties the ledger and truncates the store so a later load starts
// from nothing. Memory is cleared even if the truncate fails.
func (e *Engine) ClearAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reset()
	if e.store == nil {
		return nil
	}
	if err := e.store.Truncate(); err != nil {
		e.logger.Warn("store truncate failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	e.logger.Debug("ledger cleared")
	return nil
}

// LoadFromStore replays every stored line into memory. Lines are normalized
// and empties skipped. Replayed lines are not written back to the store. A
// missing store loads nothing; on a read error the lines loaded so far stay.
func (e *Engine) LoadFromStore() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store == nil {
		return nil
	}
	loaded := 0
	err := e.store.ReadLines(func(line string) error {
		if value := Normalize(line); value != "" {
			e.record(value)
			loaded++
		}
		return nil
	})
	if err != nil {
		e.logger.Warn("store read failed", zap.Int("loaded", loaded), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	e.logger.Debug("ledger loaded", zap.Int("entries", loaded))
	return nil
}

// Summary reports total, unique and duplicated-value counts.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Summary{
		TotalEntries:  len(e.history),
		UniqueEntries: len(e.seen),
	}
	for _, n := range e.frequency {
		if n > 1 {
			s.DuplicateValues++
		}
	}
	return s
}
