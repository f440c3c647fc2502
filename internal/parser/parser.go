package parser

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Document is the result of parsing one source file.
type Document struct {
	Metadata map[string]any // Own metadata, no inheritance applied
	Body     string         // Rendered HTML fragment
}

// Parser converts raw file content into metadata plus a rendered body.
// Implementations keep no state between calls.
type Parser interface {
	Parse(content []byte, source string) (*Document, error)
}

// Options tunes the built-in parsers.
type Options struct {
	// MarkdownExtensions names goldmark extensions; empty selects GFM, linkify and task lists.
	MarkdownExtensions []string
	// UnsafeHTML lets raw HTML in Markdown through to the output.
	UnsafeHTML bool
	// Sanitize runs every body through a bluemonday UGC policy.
	Sanitize bool
	// PdftotextFallback shells out to pdftotext when the Go PDF reader fails.
	PdftotextFallback bool
}

// DefaultParsers maps file extensions to built-in parser names.
var DefaultParsers = map[string]string{
	".yd": "yamldown",
}

// Builtin returns the named built-in parser. Names are matched
// case-insensitively; class-style spellings such as "MarkdownParser" or
// "LegacyYAMLDownParser" resolve to the same parsers.
func Builtin(name string, opts Options) (Parser, error) {
	m := NewMarkup(opts)
	switch canonicalName(name) {
	case "yamldown":
		return &YAMLDownParser{markup: m}, nil
	case "markdown":
		return &MarkdownParser{markup: m}, nil
	case "html":
		return &HTMLParser{markup: m}, nil
	case "text":
		return &TextParser{markup: m}, nil
	case "csv":
		return &CSVParser{markup: m}, nil
	case "docx":
		return &DOCXParser{markup: m}, nil
	case "pdf":
		return &PDFParser{markup: m, FallbackPdftotext: opts.PdftotextFallback}, nil
	default:
		return nil, fmt.Errorf("unknown parser %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
}

func canonicalName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndexByte(n, '.'); i >= 0 {
		n = n[i+1:]
	}
	if trimmed := strings.TrimSuffix(n, "parser"); trimmed != "" {
		n = trimmed
	}
	if trimmed := strings.TrimPrefix(n, "legacy"); trimmed != "" {
		n = trimmed
	}
	return n
}

// BuiltinNames lists the names accepted by Builtin.
func BuiltinNames() []string {
	return []string{"csv", "docx", "html", "markdown", "pdf", "text", "yamldown"}
}

// Registry is a static extension to parser mapping. It is filled once at
// startup and only read afterwards.
type Registry struct {
	parsers map[string]Parser
}

func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// NewRegistryFromNames registers a built-in parser for each extension.
func NewRegistryFromNames(names map[string]string, opts Options) (*Registry, error) {
	r := NewRegistry()
	for ext, name := range names {
		p, err := Builtin(name, opts)
		if err != nil {
			return nil, fmt.Errorf("extension %s: %w", ext, err)
		}
		r.Register(ext, p)
	}
	return r, nil
}

// Register binds a parser to an extension. "yd" and ".YD" both mean ".yd".
func (r *Registry) Register(ext string, p Parser) {
	r.parsers[NormalizeExt(ext)] = p
}

// Lookup returns the parser for an extension.
func (r *Registry) Lookup(ext string) (Parser, bool) {
	p, ok := r.parsers[NormalizeExt(ext)]
	return p, ok
}

// ForFile returns the parser for a filename.
func (r *Registry) ForFile(filename string) (Parser, error) {
	ext := NormalizeExt(filepath.Ext(filename))
	p, ok := r.parsers[ext]
	if !ok {
		return nil, &NoParserError{Ext: ext, Source: filename}
	}
	return p, nil
}

// Len reports how many extensions are registered.
func (r *Registry) Len() int {
	return len(r.parsers)
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// NormalizeExt lower-cases an extension and ensures the leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// setFileTitle uses the file name as the title. Index documents are skipped:
// their metadata describes the whole directory and would hand the name
// "index" to every page below it.
func setFileTitle(meta map[string]any, source string) {
	if name := stem(source); name != "" && !strings.EqualFold(name, "index") {
		meta["title"] = name
	}
}

// stem returns the base name of source without its extension.
func stem(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
