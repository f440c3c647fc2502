package doctree

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/dgallion1/docsite/internal/parser"
)

// Options configures a tree build.
type Options struct {
	Parsers         *parser.Registry
	DefaultTemplate string // applied at the root when no template is set there
	DeepMerge       bool   // merge nested mappings instead of replacing them
	Workers         int    // parse concurrency, defaults to runtime.NumCPU()
	Logger          *slog.Logger
}

// Tree owns every node of one build.
type Tree struct {
	Root *Node

	fsys fs.FS
	base string
	opts Options
	log  *slog.Logger
}

// Build crawls root, parses every file and resolves the metadata cascade.
// It fails with *NotFoundError when root is missing or not a directory.
func Build(ctx context.Context, root string, opts Options) (*Tree, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &NotFoundError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &NotFoundError{Path: root}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	return BuildFS(ctx, os.DirFS(abs), abs, opts)
}

// BuildFS is Build over an arbitrary filesystem. base prefixes every
// SourcePath.
func BuildFS(ctx context.Context, fsys fs.FS, base string, opts Options) (*Tree, error) {
	if opts.Parsers == nil || opts.Parsers.Len() == 0 {
		return nil, ErrNoParsers
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	t := &Tree{
		fsys: fsys,
		base: base,
		opts: opts,
		log:  log.With("root", base),
	}

	info, err := fs.Stat(fsys, ".")
	if err != nil {
		return nil, &NotFoundError{Path: base, Err: err}
	}
	if !info.IsDir() {
		return nil, &NotFoundError{Path: base}
	}

	t.Root = &Node{
		Path:       []string{},
		SourcePath: base,
		Kind:       KindDirectory,
		Status:     StatusDirectory,
		rel:        ".",
	}
	if err := t.crawl(ctx, t.Root); err != nil {
		return nil, err
	}
	if err := t.parseAll(ctx); err != nil {
		return nil, err
	}
	t.adoptIndexMetadata(t.Root)
	t.resolve()
	return t, nil
}

// crawl lists dir and recurses into subdirectories. Siblings are sorted by
// name so the tree shape never depends on filesystem enumeration order.
func (t *Tree) crawl(ctx context.Context, dir *Node) error {
	entries, err := fs.ReadDir(t.fsys, dir.rel)
	if err != nil {
		if dir == t.Root {
			return &NotFoundError{Path: t.base, Err: err}
		}
		// A vanished root invalidates the whole build.
		if _, statErr := fs.Stat(t.fsys, "."); statErr != nil {
			return &NotFoundError{Path: t.base, Err: statErr}
		}
		dir.Status = StatusReadError
		dir.Err = &IOError{Op: "list", Path: dir.SourcePath, Err: err}
		t.log.Debug("directory unreadable", "dir", dir.SourcePath, "error", err)
		return nil
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		rel := path.Join(dir.rel, name)
		child := &Node{
			Path:       append(slices.Clone(dir.Path), name),
			SourcePath: filepath.Join(t.base, filepath.FromSlash(rel)),
			rel:        rel,
		}

		isDir, ok := t.classify(e, rel)
		if !ok {
			continue
		}
		if isDir {
			child.Kind = KindDirectory
			child.Status = StatusDirectory
			dir.Children = append(dir.Children, child)
			if err := t.crawl(ctx, child); err != nil {
				return err
			}
			continue
		}

		ext := filepath.Ext(name)
		child.Kind = KindFile
		child.Filename = strings.TrimSuffix(name, ext)
		child.FileType = parser.NormalizeExt(ext)
		dir.Children = append(dir.Children, child)
	}
	return nil
}

// classify reports whether e is a directory, following symlinks. ok is false
// for entries that are neither regular files nor directories.
func (t *Tree) classify(e fs.DirEntry, rel string) (isDir, ok bool) {
	mode := e.Type()
	if mode&fs.ModeSymlink != 0 {
		info, err := fs.Stat(t.fsys, rel)
		if err != nil {
			t.log.Debug("skipping broken symlink", "path", rel, "error", err)
			return false, false
		}
		mode = info.Mode().Type()
	}
	switch {
	case mode.IsDir():
		return true, true
	case mode.IsRegular():
		return false, true
	default:
		return false, false
	}
}

// adoptIndexMetadata gives each directory the metadata of its parsed index
// documents, merged in filename order.
func (t *Tree) adoptIndexMetadata(dir *Node) {
	own := map[string]any{}
	for _, child := range dir.Children {
		if child.Kind == KindDirectory {
			t.adoptIndexMetadata(child)
			continue
		}
		if child.Filename == IndexName && child.Status == StatusParsed {
			own = Merge(own, child.Own, t.opts.DeepMerge)
		}
	}
	dir.Own = own
}

// Walk visits every node in pre-order.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(t.Root, 0)
}

// Lookup finds a node by its slash-separated path relative to the root.
func (t *Tree) Lookup(rel string) (*Node, bool) {
	rel = path.Clean(rel)
	if rel == "." || rel == "" {
		return t.Root, true
	}
	n := t.Root
	for _, seg := range strings.Split(rel, "/") {
		var next *Node
		for _, c := range n.Children {
			if c.Path[len(c.Path)-1] == seg {
				next = c
				break
			}
		}
		if next == nil {
			return nil, false
		}
		n = next
	}
	return n, true
}
