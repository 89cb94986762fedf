package ledger

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// memStore records appended lines and can be told to fail.
type memStore struct {
	lines       []string
	appendErr   error
	truncateErr error
	readErr     error
	readAfter   int
}

func (m *memStore) Append(entry string) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.lines = append(m.lines, entry)
	return nil
}

func (m *memStore) Truncate() error {
	if m.truncateErr != nil {
		return m.truncateErr
	}
	m.lines = nil
	return nil
}

func (m *memStore) ReadLines(fn func(string) error) error {
	for i, l := range m.lines {
		if m.readErr != nil && i == m.readAfter {
			return m.readErr
		}
		if err := fn(l); err != nil {
			return err
		}
	}
	return nil
}

// checkInvariants verifies frequency matches history and seen matches frequency.
func checkInvariants(t *testing.T, e *Engine) {
	t.Helper()
	counts := map[string]int{}
	for _, h := range e.history {
		counts[h]++
	}
	if diff := cmp.Diff(counts, e.frequency); diff != "" {
		t.Errorf("frequency does not match history (-history +frequency):\n%s", diff)
	}
	if len(e.seen) != len(e.frequency) {
		t.Errorf("len(seen) = %d, len(frequency) = %d", len(e.seen), len(e.frequency))
	}
	for k := range e.frequency {
		if _, ok := e.seen[k]; !ok {
			t.Errorf("frequency key %q missing from seen", k)
		}
	}
	if len(e.order) != len(e.seen) {
		t.Errorf("len(order) = %d, want %d", len(e.order), len(e.seen))
	}
}

func TestNormalize(t *testing.T) {
	t.Run("it trims and lowercases", func(t *testing.T) {
		inputs := []string{"Cat", "  cat", "CAT  ", "\tcAt\n"}
		for _, in := range inputs {
			if got := Normalize(in); got != "cat" {
				t.Errorf("Normalize(%q) = %q, want %q", in, got, "cat")
			}
		}
	})

	t.Run("it yields empty for whitespace-only input", func(t *testing.T) {
		for _, in := range []string{"", " ", "\t\n  "} {
			if got := Normalize(in); got != "" {
				t.Errorf("Normalize(%q) = %q, want empty", in, got)
			}
		}
	})

	t.Run("it lowercases non-ASCII letters", func(t *testing.T) {
		if got := Normalize(" ÉCOLE "); got != "école" {
			t.Errorf("Normalize = %q, want %q", got, "école")
		}
	})
}

func TestAddEntry(t *testing.T) {
	t.Run("it reports added then duplicate across case variants", func(t *testing.T) {
		store := &memStore{}
		e := New(store)

		first, err := e.AddEntry("cat")
		if err != nil {
			t.Fatalf("AddEntry returned error: %v", err)
		}
		if first.Status != StatusAdded {
			t.Errorf("first status = %q, want %q", first.Status, StatusAdded)
		}

		second, err := e.AddEntry("CAT")
		if err != nil {
			t.Fatalf("AddEntry returned error: %v", err)
		}
		if second.Status != StatusDuplicate {
			t.Errorf("second status = %q, want %q", second.Status, StatusDuplicate)
		}
		if second.Entry != "cat" {
			t.Errorf("entry = %q, want %q", second.Entry, "cat")
		}
		if got := e.Count("cat"); got != 2 {
			t.Errorf("frequency[cat] = %d, want 2", got)
		}
		want := Frequency{Entry: "cat", Count: 2}
		if !second.Found || second.MostFrequent != want {
			t.Errorf("most frequent = %+v (found %v), want %+v", second.MostFrequent, second.Found, want)
		}
		if diff := cmp.Diff([]string{"cat", "cat"}, store.lines); diff != "" {
			t.Errorf("stored lines mismatch (-want +got):\n%s", diff)
		}
		checkInvariants(t, e)
	})

	t.Run("it rejects whitespace-only input without touching state or store", func(t *testing.T) {
		store := &memStore{}
		e := New(store)

		res, err := e.AddEntry("   \t ")
		if err != nil {
			t.Fatalf("AddEntry returned error: %v", err)
		}
		if res.Status != StatusRejected {
			t.Errorf("status = %q, want %q", res.Status, StatusRejected)
		}
		if res.Found {
			t.Error("expected no most-frequent snapshot on empty ledger")
		}
		if len(store.lines) != 0 {
			t.Errorf("store got %d lines, want 0", len(store.lines))
		}
		if s := e.Summary(); s != (Summary{}) {
			t.Errorf("summary = %+v, want zero", s)
		}
	})

	t.Run("it rejects an inner line break so the store keeps one entry per line", func(t *testing.T) {
		store := &memStore{}
		e := New(store)

		for _, raw := range []string{"foo\nbar", "foo\r\nbar", " a\rb "} {
			res, err := e.AddEntry(raw)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("AddEntry(%q) error = %v, want ErrInvalidInput", raw, err)
			}
			if res.Status != StatusRejected {
				t.Errorf("AddEntry(%q) status = %q, want %q", raw, res.Status, StatusRejected)
			}
		}
		if len(store.lines) != 0 {
			t.Errorf("store = %q, want nothing written", store.lines)
		}
		if s := e.Summary(); s != (Summary{}) {
			t.Errorf("summary = %+v, want zero", s)
		}
	})

	t.Run("it keeps the in-memory update when the store write fails", func(t *testing.T) {
		boom := errors.New("disk full")
		e := New(&memStore{appendErr: boom})

		res, err := e.AddEntry("dog")
		if !errors.Is(err, ErrStoreWrite) {
			t.Fatalf("error = %v, want ErrStoreWrite", err)
		}
		if !errors.Is(err, boom) {
			t.Errorf("error = %v, want it to wrap the store error", err)
		}
		if res.Status != StatusAdded {
			t.Errorf("status = %q, want %q", res.Status, StatusAdded)
		}
		if got := e.Count("dog"); got != 1 {
			t.Errorf("count = %d, want 1", got)
		}
		checkInvariants(t, e)
	})
}

func TestAddBulk(t *testing.T) {
	t.Run("it processes non-empty pieces and skips empties", func(t *testing.T) {
		store := &memStore{}
		e := New(store)

		res, err := e.AddBulk("x, y, x, , z", ",")
		if err != nil {
			t.Fatalf("AddBulk returned error: %v", err)
		}
		if res.Processed != 4 {
			t.Errorf("processed = %d, want 4", res.Processed)
		}
		if got := e.Count("x"); got != 2 {
			t.Errorf("frequency[x] = %d, want 2", got)
		}
		if got := e.Summary().DuplicateValues; got != 1 {
			t.Errorf("duplicate values = %d, want 1", got)
		}
		want := Frequency{Entry: "x", Count: 2}
		if !res.Found || res.MostFrequent != want {
			t.Errorf("most frequent = %+v, want %+v", res.MostFrequent, want)
		}
		if diff := cmp.Diff([]string{"x", "y", "x", "z"}, store.lines); diff != "" {
			t.Errorf("stored lines mismatch (-want +got):\n%s", diff)
		}
		checkInvariants(t, e)
	})

	t.Run("it falls back to the configured separator", func(t *testing.T) {
		e := New(nil, WithSeparator(";"))

		res, err := e.AddBulk("a;b;a", "")
		if err != nil {
			t.Fatalf("AddBulk returned error: %v", err)
		}
		if res.Processed != 3 {
			t.Errorf("processed = %d, want 3", res.Processed)
		}
	})

	t.Run("it continues past store failures and joins them", func(t *testing.T) {
		e := New(&memStore{appendErr: errors.New("io")})

		res, err := e.AddBulk("a,b", ",")
		if !errors.Is(err, ErrStoreWrite) {
			t.Fatalf("error = %v, want ErrStoreWrite", err)
		}
		if res.Processed != 2 {
			t.Errorf("processed = %d, want 2", res.Processed)
		}
		if got := e.Summary().TotalEntries; got != 2 {
			t.Errorf("total = %d, want 2", got)
		}
	})

	t.Run("it skips pieces with a line break and reports them", func(t *testing.T) {
		store := &memStore{}
		e := New(store)

		res, err := e.AddBulk("a,foo\nbar,b", ",")
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("error = %v, want ErrInvalidInput", err)
		}
		if res.Processed != 2 {
			t.Errorf("processed = %d, want 2", res.Processed)
		}
		if diff := cmp.Diff([]string{"a", "b"}, store.lines); diff != "" {
			t.Errorf("store mismatch (-want +got):\n%s", diff)
		}
		checkInvariants(t, e)
	})

	t.Run("it reports nothing found for all-empty input", func(t *testing.T) {
		e := New(nil)

		res, err := e.AddBulk(" , ,", ",")
		if err != nil {
			t.Fatalf("AddBulk returned error: %v", err)
		}
		if res.Processed != 0 || res.Found {
			t.Errorf("result = %+v, want zero processed and nothing found", res)
		}
	})
}

func TestListUnique(t *testing.T) {
	t.Run("it returns deduplicated entries in sorted order", func(t *testing.T) {
		e := New(&memStore{})
		if err := e.ClearAll(); err != nil {
			t.Fatalf("ClearAll returned error: %v", err)
		}
		for _, v := range []string{"b", "A", "a", " B "} {
			if _, err := e.AddEntry(v); err != nil {
				t.Fatalf("AddEntry(%q) returned error: %v", v, err)
			}
		}

		if diff := cmp.Diff([]string{"a", "b"}, e.ListUnique()); diff != "" {
			t.Errorf("ListUnique mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("it returns an empty slice for an empty ledger", func(t *testing.T) {
		got := New(nil).ListUnique()
		if got == nil || len(got) != 0 {
			t.Errorf("ListUnique = %#v, want empty non-nil slice", got)
		}
	})
}

func TestListDuplicatesAndFrequencies(t *testing.T) {
	e := New(nil)
	if _, err := e.AddBulk("pear,apple,pear,fig,apple,pear", ","); err != nil {
		t.Fatalf("AddBulk returned error: %v", err)
	}

	t.Run("it lists only repeated entries in first-seen order", func(t *testing.T) {
		want := []Frequency{{"pear", 3}, {"apple", 2}}
		if diff := cmp.Diff(want, e.ListDuplicates()); diff != "" {
			t.Errorf("ListDuplicates mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("it lists every entry including singletons", func(t *testing.T) {
		want := []Frequency{{"pear", 3}, {"apple", 2}, {"fig", 1}}
		if diff := cmp.Diff(want, e.ListFrequencies()); diff != "" {
			t.Errorf("ListFrequencies mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("it returns an empty duplicate list when nothing repeats", func(t *testing.T) {
		fresh := New(nil)
		if _, err := fresh.AddBulk("a,b", ","); err != nil {
			t.Fatalf("AddBulk returned error: %v", err)
		}
		if got := fresh.ListDuplicates(); len(got) != 0 {
			t.Errorf("ListDuplicates = %v, want empty", got)
		}
	})
}

func TestMostFrequent(t *testing.T) {
	t.Run("it is absent for an empty ledger", func(t *testing.T) {
		if _, ok := New(nil).MostFrequent(); ok {
			t.Error("expected no most-frequent entry")
		}
	})

	t.Run("it breaks ties in favour of the entry seen first", func(t *testing.T) {
		e := New(nil)
		if _, err := e.AddBulk("a,b,b,a,b,a", ","); err != nil {
			t.Fatalf("AddBulk returned error: %v", err)
		}
		got, ok := e.MostFrequent()
		if !ok {
			t.Fatal("expected a most-frequent entry")
		}
		if want := (Frequency{Entry: "a", Count: 3}); got != want {
			t.Errorf("MostFrequent = %+v, want %+v", got, want)
		}

		other := New(nil)
		if _, err := other.AddBulk("b,a,a,b,a,b", ","); err != nil {
			t.Fatalf("AddBulk returned error: %v", err)
		}
		got, _ = other.MostFrequent()
		if want := (Frequency{Entry: "b", Count: 3}); got != want {
			t.Errorf("MostFrequent = %+v, want %+v", got, want)
		}
	})

	t.Run("it picks a strictly greater later entry", func(t *testing.T) {
		e := New(nil)
		if _, err := e.AddBulk("a,b,b", ","); err != nil {
			t.Fatalf("AddBulk returned error: %v", err)
		}
		got, _ := e.MostFrequent()
		if want := (Frequency{Entry: "b", Count: 2}); got != want {
			t.Errorf("MostFrequent = %+v, want %+v", got, want)
		}
	})
}

func TestClearAll(t *testing.T) {
	t.Run("it empties memory and the store", func(t *testing.T) {
		store := &memStore{}
		e := New(store)
		if _, err := e.AddBulk("a,b,a", ","); err != nil {
			t.Fatalf("AddBulk returned error: %v", err)
		}

		if err := e.ClearAll(); err != nil {
			t.Fatalf("ClearAll returned error: %v", err)
		}
		if s := e.Summary(); s != (Summary{}) {
			t.Errorf("summary = %+v, want zero", s)
		}
		if err := e.LoadFromStore(); err != nil {
			t.Fatalf("LoadFromStore returned error: %v", err)
		}
		if s := e.Summary(); s != (Summary{}) {
			t.Errorf("summary after reload = %+v, want zero", s)
		}
	})

	t.Run("it clears memory even when truncate fails", func(t *testing.T) {
		store := &memStore{}
		e := New(store)
		if _, err := e.AddEntry("a"); err != nil {
			t.Fatalf("AddEntry returned error: %v", err)
		}
		store.truncateErr = errors.New("read-only")

		err := e.ClearAll()
		if !errors.Is(err, ErrStoreWrite) {
			t.Fatalf("error = %v, want ErrStoreWrite", err)
		}
		if s := e.Summary(); s != (Summary{}) {
			t.Errorf("summary = %+v, want zero", s)
		}
	})
}

func TestLoadFromStore(t *testing.T) {
	t.Run("it replays stored lines without appending them again", func(t *testing.T) {
		store := &memStore{lines: []string{"Cat", "", "  dog ", "cat"}}
		e := New(store)

		if err := e.LoadFromStore(); err != nil {
			t.Fatalf("LoadFromStore returned error: %v", err)
		}
		want := Summary{TotalEntries: 3, UniqueEntries: 2, DuplicateValues: 1}
		if got := e.Summary(); got != want {
			t.Errorf("summary = %+v, want %+v", got, want)
		}
		if len(store.lines) != 4 {
			t.Errorf("store has %d lines after load, want 4", len(store.lines))
		}
		checkInvariants(t, e)
	})

	t.Run("it keeps partial data on a read failure", func(t *testing.T) {
		store := &memStore{lines: []string{"a", "b", "c"}, readErr: errors.New("bad sector"), readAfter: 2}
		e := New(store)

		err := e.LoadFromStore()
		if !errors.Is(err, ErrStoreRead) {
			t.Fatalf("error = %v, want ErrStoreRead", err)
		}
		if got := e.Summary().TotalEntries; got != 2 {
			t.Errorf("total = %d, want 2", got)
		}
	})

	t.Run("it is a no-op without a store", func(t *testing.T) {
		if err := New(nil).LoadFromStore(); err != nil {
			t.Errorf("LoadFromStore returned error: %v", err)
		}
	})
}

func TestSummary(t *testing.T) {
	e := New(nil)
	if _, err := e.AddBulk("a,a,a,b,b,c", ","); err != nil {
		t.Fatalf("AddBulk returned error: %v", err)
	}

	want := Summary{TotalEntries: 6, UniqueEntries: 3, DuplicateValues: 2}
	if got := e.Summary(); got != want {
		t.Errorf("Summary = %+v, want %+v", got, want)
	}
}

func TestProcessEntry(t *testing.T) {
	t.Run("it reports duplicate status before mutating", func(t *testing.T) {
		e := New(nil)

		dup, err := e.ProcessEntry("x")
		if err != nil || dup {
			t.Fatalf("first ProcessEntry = (%v, %v), want (false, nil)", dup, err)
		}
		dup, err = e.ProcessEntry("x")
		if err != nil || !dup {
			t.Fatalf("second ProcessEntry = (%v, %v), want (true, nil)", dup, err)
		}
		checkInvariants(t, e)
	})

	t.Run("it rejects empty and multi-line entries without mutating", func(t *testing.T) {
		store := &memStore{}
		e := New(store)

		for _, v := range []string{"", "x\ny"} {
			if _, err := e.ProcessEntry(v); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ProcessEntry(%q) error = %v, want ErrInvalidInput", v, err)
			}
		}
		if len(store.lines) != 0 || e.Summary() != (Summary{}) {
			t.Errorf("state changed: store %q, summary %+v", store.lines, e.Summary())
		}
	})
}
