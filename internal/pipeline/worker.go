package pipeline

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/docsite/internal/doctree"
	"github.com/dgallion1/docsite/internal/excerpt"
	"github.com/dgallion1/docsite/internal/render"
)

// renderPage renders one page and writes it below the output directory.
// The result lands in the report either way.
func (b *Builder) renderPage(page doctree.Page, report *Report, log *slog.Logger) {
	log = log.With(Source(page.SourcePath), Output(page.OutputPath))
	tmpl, _ := page.Template()
	if keys := render.Shadowed(page.Metadata); len(keys) > 0 {
		log.Debug("metadata keys only reachable through meta", "keys", keys)
	}

	extra := excerpt.Summarize(page.Body, b.cfg.ExcerptTokens).Map()
	extra["build_id"] = report.ID
	extra["path"] = page.RelPath()

	var buf bytes.Buffer
	if err := b.store.Render(&buf, page, extra); err != nil {
		log.Warn("render failed", Stage(StageRender), Error(err))
		report.fail(page.SourcePath, tmpl, err)
		return
	}

	dst := filepath.Join(b.cfg.Output, filepath.FromSlash(page.OutputPath))
	if err := writeOutput(dst, buf.Bytes()); err != nil {
		log.Error("write failed", Error(err))
		report.fail(page.SourcePath, tmpl, err)
		return
	}
	report.written(page.SourcePath, tmpl)
	log.Debug("page written", "template", tmpl, "bytes", buf.Len())
}

// writeOutput replaces dst through a temporary file in the same directory so
// a failed write never leaves a truncated page behind.
func writeOutput(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &doctree.IOError{Op: "write", Path: dst, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".docsite-*")
	if err != nil {
		return &doctree.IOError{Op: "write", Path: dst, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &doctree.IOError{Op: "write", Path: dst, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &doctree.IOError{Op: "write", Path: dst, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return &doctree.IOError{Op: "write", Path: dst, Err: err}
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return &doctree.IOError{Op: "write", Path: dst, Err: err}
	}
	return nil
}
