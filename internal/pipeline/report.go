package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgallion1/docsite/internal/doctree"
	"github.com/dgallion1/docsite/internal/parser"
	"github.com/dgallion1/docsite/internal/render"
)

// EntryStatus is the final state of one discovered entry.
type EntryStatus string

const (
	StatusPending EntryStatus = "pending"
	StatusWritten EntryStatus = "written"
	StatusSkipped EntryStatus = "skipped"
	StatusFailed  EntryStatus = "failed"
)

// Error kinds recorded alongside failed and skipped entries.
const (
	KindNoParser         = "no_parser"
	KindParseError       = "parse_error"
	KindReadError        = "read_error"
	KindWriteError       = "write_error"
	KindMissingTemplate  = "missing_template"
	KindTemplateNotFound = "template_not_found"
	KindOutputCollision  = "output_collision"
	KindRenderError      = "render_error"
)

// CollisionError means an earlier page already claimed the output path.
type CollisionError struct {
	Output string
	Source string
	First  string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("output %s of %s already written for %s", e.Output, e.Source, e.First)
}

// Result is the outcome for one entry.
type Result struct {
	Path     string      `json:"path"`
	Source   string      `json:"source"`
	Output   string      `json:"output,omitempty"`
	Template string      `json:"template,omitempty"`
	Status   EntryStatus `json:"status"`
	Kind     string      `json:"error_kind,omitempty"`
	Error    string      `json:"error,omitempty"`

	Err error `json:"-"`
}

// Report collects per-entry outcomes of one build. Render workers update it
// concurrently.
type Report struct {
	mu sync.Mutex

	ID         string
	Source     string
	Output     string
	StartedAt  time.Time
	FinishedAt time.Time

	results []Result
	index   map[string]int
}

func newReport(id, source, output string) *Report {
	return &Report{
		ID:        id,
		Source:    source,
		Output:    output,
		StartedAt: time.Now(),
		index:     make(map[string]int),
	}
}

// addEntries seeds one result per tree entry, in tree order. Parsed files
// start pending; node-local failures are final already.
func (r *Report) addEntries(entries []doctree.Entry, outputs map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		res := Result{Path: e.RelPath, Source: e.SourcePath}
		switch e.Status {
		case doctree.StatusParsed:
			res.Status = StatusPending
			res.Output = outputs[e.SourcePath]
		case doctree.StatusNoParser:
			res.Status = StatusSkipped
			res.setErr(e.Err)
		default:
			res.Status = StatusFailed
			res.setErr(e.Err)
		}
		r.index[e.SourcePath] = len(r.results)
		r.results = append(r.results, res)
	}
}

func (r *Report) written(source, template string) {
	r.update(source, func(res *Result) {
		res.Status = StatusWritten
		res.Template = template
	})
}

func (r *Report) fail(source, template string, err error) {
	r.update(source, func(res *Result) {
		res.Status = StatusFailed
		res.Template = template
		res.setErr(err)
	})
}

func (r *Report) update(source string, fn func(*Result)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[source]; ok {
		fn(&r.results[i])
	}
}

func (r *Report) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now()
}

func (res *Result) setErr(err error) {
	if err == nil {
		return
	}
	res.Err = err
	res.Error = err.Error()
	res.Kind = errorKind(err)
}

func errorKind(err error) string {
	var (
		npe *parser.NoParserError
		pe  *parser.ParseError
		mte *render.MissingTemplateError
		tnf *render.TemplateNotFoundError
		ce  *CollisionError
		ioe *doctree.IOError
	)
	switch {
	case errors.As(err, &npe):
		return KindNoParser
	case errors.As(err, &pe):
		return KindParseError
	case errors.As(err, &mte):
		return KindMissingTemplate
	case errors.As(err, &tnf):
		return KindTemplateNotFound
	case errors.As(err, &ce):
		return KindOutputCollision
	case errors.As(err, &ioe):
		if ioe.Op == "write" {
			return KindWriteError
		}
		return KindReadError
	default:
		return KindRenderError
	}
}

// Results returns a copy of every result in tree order.
func (r *Report) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

// Failures returns the failed results in tree order.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results() {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// HasFailures reports whether any entry failed.
func (r *Report) HasFailures() bool {
	return len(r.Failures()) > 0
}

// Counts tallies results by status.
func (r *Report) Counts() map[EntryStatus]int {
	counts := make(map[EntryStatus]int)
	for _, res := range r.Results() {
		counts[res.Status]++
	}
	return counts
}

// ReportSnapshot is a read-only, JSON-safe copy of report state.
type ReportSnapshot struct {
	ID         string              `json:"build_id"`
	Source     string              `json:"source"`
	Output     string              `json:"output"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	DurationMS int64               `json:"duration_ms"`
	Counts     map[EntryStatus]int `json:"counts"`
	Results    []Result            `json:"results"`
}

// Snapshot returns a JSON-safe copy of the report.
func (r *Report) Snapshot() ReportSnapshot {
	results := r.Results()
	if results == nil {
		results = []Result{}
	}
	counts := r.Counts()

	r.mu.Lock()
	defer r.mu.Unlock()
	var dur int64
	if !r.FinishedAt.IsZero() {
		dur = r.FinishedAt.Sub(r.StartedAt).Milliseconds()
	}
	return ReportSnapshot{
		ID:         r.ID,
		Source:     r.Source,
		Output:     r.Output,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMS: dur,
		Counts:     counts,
		Results:    results,
	}
}

// WriteFile stores the snapshot as indented JSON.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
