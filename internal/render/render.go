// Package render turns resolved pages into HTML using a directory of pongo2
// (Django/Jinja style) templates. A page's "template" value names the file
// "<template>.html" inside that directory.
package render

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/dgallion1/docsite/internal/doctree"
)

// Reserved context keys. A metadata key with one of these names is not
// copied to the top level; it stays reachable through MetaKey.
const (
	// BodyKey carries the rendered page body.
	BodyKey = "body"
	// PageKey holds page facts (paths, excerpt) that are not part of the metadata.
	PageKey = "page"
	// MetaKey holds the complete resolved metadata, including keys that are
	// not valid template identifiers: {{ meta["og:title"] }}.
	MetaKey = "meta"
)

// TemplateExt is appended to template names.
const TemplateExt = ".html"

// MissingTemplateError means no node in a page's ancestry set a template and
// no default was configured.
type MissingTemplateError struct {
	Source string
}

func (e *MissingTemplateError) Error() string {
	return fmt.Sprintf("no template resolved for %s", e.Source)
}

// TemplateNotFoundError means the named template file does not exist.
type TemplateNotFoundError struct {
	Name   string
	Source string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("could not find template file %q for page %s", e.Name+TemplateExt, e.Source)
}

// Store loads and caches templates from one directory. It is safe for
// concurrent use.
type Store struct {
	dir string
	set *pongo2.TemplateSet
}

// NewStore opens the templates directory.
func NewStore(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("templates directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("templates path %s is not a directory", dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	loader, err := pongo2.NewLocalFileSystemLoader(abs)
	if err != nil {
		return nil, fmt.Errorf("template loader: %w", err)
	}
	return &Store{dir: abs, set: pongo2.NewSet("docsite", loader)}, nil
}

// Dir returns the absolute templates directory.
func (s *Store) Dir() string {
	return s.dir
}

// Has reports whether a template file exists for name.
func (s *Store) Has(name string) bool {
	file, ok := templateFile(name)
	if !ok {
		return false
	}
	info, err := os.Stat(filepath.Join(s.dir, filepath.FromSlash(file)))
	return err == nil && !info.IsDir()
}

// Render writes page through its resolved template. extra is merged into the
// context under PageKey.
func (s *Store) Render(w io.Writer, page doctree.Page, extra map[string]any) error {
	name, ok := page.Template()
	if !ok {
		return &MissingTemplateError{Source: page.SourcePath}
	}
	if !s.Has(name) {
		return &TemplateNotFoundError{Name: name, Source: page.SourcePath}
	}
	file, _ := templateFile(name)

	tpl, err := s.set.FromCache(file)
	if err != nil {
		return fmt.Errorf("load template %s: %w", file, err)
	}
	if err := tpl.ExecuteWriter(Context(page, extra), w); err != nil {
		return fmt.Errorf("render %s with %s: %w", page.SourcePath, file, err)
	}
	return nil
}

// Context builds the template context: every resolved metadata key that is a
// valid identifier at the top level, the whole mapping under MetaKey, the body
// under BodyKey (marked safe, it is already HTML) and page facts under PageKey.
func Context(page doctree.Page, extra map[string]any) pongo2.Context {
	ctx := make(pongo2.Context, len(page.Metadata)+3)
	for k, v := range page.Metadata {
		if isIdentifier(k) && !reserved(k) {
			ctx[k] = v
		}
	}
	meta := page.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	ctx[MetaKey] = meta

	info := map[string]any{
		"source":      page.SourcePath,
		"output_path": page.OutputPath,
		"url":         "/" + page.OutputPath,
		"filename":    page.Filename,
		"file_type":   page.FileType,
	}
	for k, v := range extra {
		info[k] = v
	}
	ctx[PageKey] = info
	ctx[BodyKey] = pongo2.AsSafeValue(page.Body)
	return ctx
}

// Shadowed reports the metadata keys that Context leaves out of the top level.
func Shadowed(metadata map[string]any) []string {
	var keys []string
	for k := range metadata {
		if !isIdentifier(k) || reserved(k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

func reserved(key string) bool {
	return key == BodyKey || key == PageKey || key == MetaKey
}

// isIdentifier matches the context keys pongo2 accepts: [a-zA-Z0-9_]+.
func isIdentifier(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if r != '_' && !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && !('0' <= r && r <= '9') {
			return false
		}
	}
	return true
}

// templateFile maps a template name to a slash path inside the store,
// refusing names that escape it.
func templateFile(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	clean := path.Clean("/" + filepath.ToSlash(name))[1:]
	if clean == "" || clean != strings.TrimPrefix(filepath.ToSlash(name), "/") {
		return "", false
	}
	return clean + TemplateExt, true
}
