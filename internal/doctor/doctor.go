// Package doctor provides read-only diagnostic checks for a dedupe project:
// store readability, line hygiene and cache freshness. A runner executes all
// registered checks without short-circuiting.
package doctor

import (
	"context"
	"fmt"
	"io"
)

// Severity indicates whether a check failure is an error or a warning.
// Errors affect exit code; warnings do not.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// CheckResult holds the outcome of a single diagnostic check evaluation.
// A failing result carries Details and, when a fix exists, a Suggestion.
type CheckResult struct {
	Name       string
	Passed     bool
	Severity   Severity
	Details    string
	Suggestion string
}

// Snapshot is the project state every check inspects. It is read once by the
// caller so all checks see the same bytes.
type Snapshot struct {
	// Dir is the .dedupe directory.
	Dir string
	// StoreFile is the store file name inside Dir.
	StoreFile string
	// Raw is the store content; ReadErr is set when it could not be read.
	Raw     []byte
	ReadErr error
}

// Check is implemented by every diagnostic.
type Check interface {
	Run(ctx context.Context, snap Snapshot) []CheckResult
}

// Report collects all check results from a diagnostic run.
type Report struct {
	Results []CheckResult
}

func (r *Report) count(sev Severity) int {
	n := 0
	for _, res := range r.Results {
		if !res.Passed && res.Severity == sev {
			n++
		}
	}
	return n
}

// ErrorCount returns the number of failed error-severity results.
func (r *Report) ErrorCount() int { return r.count(SeverityError) }

// WarningCount returns the number of failed warning-severity results.
func (r *Report) WarningCount() int { return r.count(SeverityWarning) }

// HasErrors reports whether any error-severity result failed.
func (r *Report) HasErrors() bool { return r.ErrorCount() > 0 }

// Runner holds an ordered list of checks.
type Runner struct {
	checks []Check
}

// NewRunner creates a Runner with the given checks registered in order.
func NewRunner(checks ...Check) *Runner {
	return &Runner{checks: checks}
}

// Register appends a check.
func (r *Runner) Register(c Check) {
	r.checks = append(r.checks, c)
}

// RunAll executes every registered check in order, stopping early only if
// ctx is cancelled.
func (r *Runner) RunAll(ctx context.Context, snap Snapshot) Report {
	var results []CheckResult
	for _, c := range r.checks {
		if ctx.Err() != nil {
			break
		}
		results = append(results, c.Run(ctx, snap)...)
	}
	return Report{Results: results}
}

// Default returns a runner with every built-in check.
func Default() *Runner {
	return NewRunner(
		&StoreReadableCheck{},
		&BlankLineCheck{},
		&NormalizedLineCheck{},
		&CacheStalenessCheck{},
	)
}

// FormatReport writes one ✓/✗/! line per result followed by a tally.
func FormatReport(w io.Writer, report Report) {
	for _, r := range report.Results {
		switch {
		case r.Passed:
			fmt.Fprintf(w, "✓ %s: OK\n", r.Name)
		case r.Severity == SeverityWarning:
			fmt.Fprintf(w, "! %s: %s\n", r.Name, r.Details)
		default:
			fmt.Fprintf(w, "✗ %s: %s\n", r.Name, r.Details)
		}
		if !r.Passed && r.Suggestion != "" {
			fmt.Fprintf(w, "  → %s\n", r.Suggestion)
		}
	}

	if len(report.Results) > 0 {
		fmt.Fprint(w, "\n")
	}

	errs, warns := report.ErrorCount(), report.WarningCount()
	if errs+warns == 0 {
		fmt.Fprint(w, "No issues found.\n")
		return
	}
	fmt.Fprintf(w, "%s, %s.\n", plural(errs, "error"), plural(warns, "warning"))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
