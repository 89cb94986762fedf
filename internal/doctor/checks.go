package doctor

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/leeovery/dedupe/internal/ledger"
	"github.com/leeovery/dedupe/internal/storage"
)

// maxLineReports caps per-line results from a single check.
const maxLineReports = 20

// StoreReadableCheck fails when the store file could not be read.
type StoreReadableCheck struct{}

// Run reports the snapshot's read error, if any.
func (c *StoreReadableCheck) Run(_ context.Context, snap Snapshot) []CheckResult {
	if snap.ReadErr != nil {
		return []CheckResult{{
			Name:       "Store",
			Severity:   SeverityError,
			Details:    fmt.Sprintf("%s not found or unreadable: %v", snap.StoreFile, snap.ReadErr),
			Suggestion: "Run `dedupe init` or check file permissions",
		}}
	}
	return []CheckResult{{Name: "Store", Passed: true}}
}

// forEachLine calls fn with 1-based line numbers and the line without its
// terminator, splitting the same way the store reads.
func forEachLine(raw []byte, fn func(n int, line string)) {
	r := bufio.NewReader(bytes.NewReader(raw))
	n := 0
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			n++
			fn(n, storage.TrimLineEnd(line))
		}
		if err != nil {
			return
		}
	}
}

// BlankLineCheck warns about blank lines. They are skipped on load, so they
// only waste space.
type BlankLineCheck struct{}

// Run counts whitespace-only lines. It reports nothing if the store is unreadable.
func (c *BlankLineCheck) Run(_ context.Context, snap Snapshot) []CheckResult {
	if snap.ReadErr != nil {
		return nil
	}
	blank := 0
	forEachLine(snap.Raw, func(_ int, line string) {
		if strings.TrimSpace(line) == "" {
			blank++
		}
	})
	if blank == 0 {
		return []CheckResult{{Name: "Blank lines", Passed: true}}
	}
	return []CheckResult{{
		Name:     "Blank lines",
		Severity: SeverityWarning,
		Details:  fmt.Sprintf("%d blank line(s) are skipped on load", blank),
	}}
}

// NormalizedLineCheck warns about lines that change when normalized, which
// means they were written by something other than dedupe.
type NormalizedLineCheck struct{}

// Run reports up to maxLineReports offending lines.
func (c *NormalizedLineCheck) Run(_ context.Context, snap Snapshot) []CheckResult {
	if snap.ReadErr != nil {
		return nil
	}
	var failures []CheckResult
	extra := 0
	forEachLine(snap.Raw, func(n int, line string) {
		norm := ledger.Normalize(line)
		if norm == "" || norm == line {
			return
		}
		if len(failures) == maxLineReports {
			extra++
			return
		}
		failures = append(failures, CheckResult{
			Name:     "Normalization",
			Severity: SeverityWarning,
			Details:  fmt.Sprintf("Line %d: stored as %q, loads as %q", n, line, norm),
		})
	})
	if extra > 0 {
		failures = append(failures, CheckResult{
			Name:     "Normalization",
			Severity: SeverityWarning,
			Details:  fmt.Sprintf("%d more line(s) not normalized", extra),
		})
	}
	if len(failures) > 0 {
		return failures
	}
	return []CheckResult{{Name: "Normalization", Passed: true}}
}

// CacheStalenessCheck verifies that cache.db was built from the current store
// content by comparing SHA256 hashes. The cache is opened read-only. Failures
// are warnings because `dedupe top` rebuilds a stale cache on its own.
type CacheStalenessCheck struct{}

// Run compares the store hash with the one recorded in cache.db.
func (c *CacheStalenessCheck) Run(_ context.Context, snap Snapshot) []CheckResult {
	if snap.ReadErr != nil {
		return nil
	}
	cachePath := filepath.Join(snap.Dir, "cache.db")

	if _, err := os.Stat(cachePath); os.IsNotExist(err) {
		return []CheckResult{{
			Name:       "Cache",
			Severity:   SeverityWarning,
			Details:    "cache.db not found, cache has not been built",
			Suggestion: "Run `dedupe rebuild` to build the cache",
		}}
	}

	h := sha256.Sum256(snap.Raw)
	storedHash, err := queryStoredHash(cachePath)
	if err != nil || storedHash != hex.EncodeToString(h[:]) {
		return []CheckResult{{
			Name:       "Cache",
			Severity:   SeverityWarning,
			Details:    fmt.Sprintf("cache.db is stale, hash mismatch between %s and cache", snap.StoreFile),
			Suggestion: "Run `dedupe rebuild` to refresh cache",
		}}
	}

	return []CheckResult{{Name: "Cache", Passed: true}}
}

// queryStoredHash opens cache.db read-only and returns the recorded store hash.
func queryStoredHash(cachePath string) (string, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", cachePath))
	if err != nil {
		return "", fmt.Errorf("opening cache.db: %w", err)
	}
	defer db.Close()

	var storedHash string
	err = db.QueryRow("SELECT value FROM metadata WHERE key = 'store_hash'").Scan(&storedHash)
	if err != nil {
		return "", fmt.Errorf("querying store_hash: %w", err)
	}
	return storedHash, nil
}
