// Package pipeline runs a site build: crawl and parse the source tree,
// resolve metadata, render every page through its template and write the
// results, collecting per-page outcomes in a Report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docsite/internal/config"
	"github.com/dgallion1/docsite/internal/doctree"
	"github.com/dgallion1/docsite/internal/metrics"
	"github.com/dgallion1/docsite/internal/parser"
	"github.com/dgallion1/docsite/internal/render"
)

// Build stages, used as log and metric labels.
const (
	StageParse  = "parse"
	StageRender = "render"
)

// Builder runs builds for one configuration.
type Builder struct {
	cfg     config.Config
	parsers *parser.Registry
	store   *render.Store
	log     *slog.Logger
	metrics metrics.Recorder
}

// NewBuilder creates a builder. A nil logger uses slog.Default and a nil
// recorder discards metrics.
func NewBuilder(cfg config.Config, parsers *parser.Registry, store *render.Store, log *slog.Logger, rec metrics.Recorder) *Builder {
	if log == nil {
		log = slog.Default()
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Builder{
		cfg:     cfg,
		parsers: parsers,
		store:   store,
		log:     log,
		metrics: rec,
	}
}

// Run builds the site described by cfg with the default logger.
func Run(ctx context.Context, cfg config.Config, parsers *parser.Registry, store *render.Store) (*Report, error) {
	return NewBuilder(cfg, parsers, store, nil, nil).Run(ctx)
}

// Run executes one build. Tree-wide failures (missing root, empty registry,
// a missing parser under the fail policy) return an error before anything is
// written. Per-page failures are recorded in the report and do not stop the
// other pages.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	report := newReport(uuid.NewString(), b.cfg.Source, b.cfg.Output)
	log := b.log.With(BuildID(report.ID))
	log.Info("build started", Source(b.cfg.Source), Output(b.cfg.Output))

	tree, err := b.buildTree(ctx, log)
	if err != nil {
		return nil, err
	}
	entries := tree.Entries()
	if b.cfg.MissingParser == config.MissingParserFail {
		for _, e := range entries {
			if e.Status == doctree.StatusNoParser {
				return nil, e.Err
			}
		}
	}

	pages := tree.Pages()
	outputs := make(map[string]string, len(pages))
	for _, p := range pages {
		outputs[p.SourcePath] = p.OutputPath
	}
	report.addEntries(entries, outputs)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())

	claimed := make(map[string]string, len(pages))
	for _, page := range pages {
		if first, ok := claimed[page.OutputPath]; ok {
			err := &CollisionError{Output: page.OutputPath, Source: page.SourcePath, First: first}
			log.Warn("output collision", Source(page.SourcePath), Output(page.OutputPath), Error(err))
			tmpl, _ := page.Template()
			report.fail(page.SourcePath, tmpl, err)
			continue
		}
		claimed[page.OutputPath] = page.SourcePath

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b.renderPage(page, report, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("render: %w", err)
	}
	b.metrics.ObserveStageDuration(StageRender, time.Since(start))

	report.finish()
	b.publish(report, log)
	return report, nil
}

func (b *Builder) buildTree(ctx context.Context, log *slog.Logger) (*doctree.Tree, error) {
	start := time.Now()
	tree, err := doctree.Build(ctx, b.cfg.Source, doctree.Options{
		Parsers:         b.parsers,
		DefaultTemplate: b.cfg.DefaultTemplate,
		DeepMerge:       b.cfg.DeepMerge,
		Workers:         b.cfg.Workers,
		Logger:          log,
	})
	if err != nil {
		return nil, err
	}
	b.metrics.ObserveStageDuration(StageParse, time.Since(start))

	counts := tree.Counts()
	log.Info("source tree parsed", Stage(StageParse),
		"parsed", counts[doctree.StatusParsed],
		"no_parser", counts[doctree.StatusNoParser],
		"parse_errors", counts[doctree.StatusParseError],
		"read_errors", counts[doctree.StatusReadError],
		"duration_ms", time.Since(start).Milliseconds())
	return tree, nil
}

// publish logs the summary and writes the optional report and metrics files.
// Failures here are logged; the site itself is already written.
func (b *Builder) publish(report *Report, log *slog.Logger) {
	counts := report.Counts()
	for status, n := range counts {
		b.metrics.AddPages(string(status), n)
	}
	b.metrics.ObserveBuildDuration(report.FinishedAt.Sub(report.StartedAt))

	log.Info("build finished",
		"written", counts[StatusWritten],
		"skipped", counts[StatusSkipped],
		"failed", counts[StatusFailed],
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds())

	if b.cfg.ReportFile != "" {
		if err := report.WriteFile(b.cfg.ReportFile); err != nil {
			log.Error("report write failed", Error(err))
		}
	}
	if b.cfg.MetricsFile != "" {
		if w, ok := b.metrics.(interface{ WriteTextfile(string) error }); ok {
			if err := w.WriteTextfile(b.cfg.MetricsFile); err != nil {
				log.Error("metrics write failed", Error(err))
			}
		}
	}
}

func (b *Builder) workers() int {
	if b.cfg.Workers > 0 {
		return b.cfg.Workers
	}
	return runtime.NumCPU()
}

// PlanEntry describes what a build would do with one entry.
type PlanEntry struct {
	Path          string
	Output        string
	Template      string
	TemplateFound bool
	Status        doctree.Status
	Err           error
}

// Plan crawls and parses the source tree without rendering or writing.
func (b *Builder) Plan(ctx context.Context) ([]PlanEntry, error) {
	tree, err := b.buildTree(ctx, b.log)
	if err != nil {
		return nil, err
	}
	pages := make(map[string]doctree.Page)
	for _, p := range tree.Pages() {
		pages[p.SourcePath] = p
	}

	var plan []PlanEntry
	for _, e := range tree.Entries() {
		pe := PlanEntry{Path: e.RelPath, Status: e.Status, Err: e.Err}
		if p, ok := pages[e.SourcePath]; ok {
			pe.Output = p.OutputPath
			pe.Template, _ = p.Template()
			pe.TemplateFound = pe.Template != "" && b.store != nil && b.store.Has(pe.Template)
		}
		plan = append(plan, pe)
	}
	return plan, nil
}
