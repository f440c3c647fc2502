package doctree

import (
	"path"
	"strings"
)

// TemplateKey is the reserved metadata key naming a page's template.
const TemplateKey = "template"

// IndexName is the base name of the document whose metadata a directory adopts.
const IndexName = "index"

// OutputExt is appended to a page's filename to form its output path.
const OutputExt = ".html"

// Kind distinguishes directory nodes from file nodes.
type Kind int

const (
	KindDirectory Kind = iota
	KindFile
)

func (k Kind) String() string {
	if k == KindFile {
		return "file"
	}
	return "directory"
}

// Status records what happened to a node during the build.
type Status string

const (
	StatusDirectory  Status = "directory"
	StatusParsed     Status = "parsed"
	StatusNoParser   Status = "no_parser"
	StatusParseError Status = "parse_error"
	StatusReadError  Status = "read_error"
)

// Node is one entry of the page tree. Nodes are owned by their Tree and must
// not be modified once Build returns.
type Node struct {
	Path       []string // Segments from the root; files keep their extension
	Filename   string   // Base name without extension
	FileType   string   // Lower-cased extension with leading dot
	SourcePath string   // Input location for diagnostics
	Kind       Kind
	Status     Status
	Err        error

	Raw      []byte
	Own      map[string]any // Metadata from this node alone
	Resolved map[string]any // Own merged over the parent's Resolved
	Body     string

	Children []*Node

	rel string // slash-separated path inside the tree filesystem
}

// OutputPath derives the slash-separated output location: directory segments
// are kept and the file name gets OutputExt.
func (n *Node) OutputPath() string {
	if n.Kind != KindFile || len(n.Path) == 0 {
		return ""
	}
	segs := append([]string{}, n.Path[:len(n.Path)-1]...)
	segs = append(segs, n.Filename+OutputExt)
	return path.Join(segs...)
}

// Page is a read-only snapshot of a parsed file node, handed to renderers.
type Page struct {
	Path       []string
	Filename   string
	FileType   string
	SourcePath string
	OutputPath string
	Metadata   map[string]any // resolved metadata
	Body       string
}

// Template returns the resolved template name. ok is false when no ancestor
// set a usable (non-empty string) template and no default was configured.
func (p Page) Template() (name string, ok bool) {
	s, isString := p.Metadata[TemplateKey].(string)
	s = strings.TrimSpace(s)
	return s, isString && s != ""
}

// RelPath is the page's source path relative to the tree root.
func (p Page) RelPath() string {
	return path.Join(p.Path...)
}

// Entry describes one discovered file (or unreadable directory) for build
// reporting, whether or not it produced a page.
type Entry struct {
	RelPath    string
	SourcePath string
	FileType   string
	Kind       Kind
	Status     Status
	Err        error
}
