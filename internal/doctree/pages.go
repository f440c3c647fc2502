package doctree

import (
	"path"
	"slices"
)

// Pages returns the parsed file nodes in pre-order with siblings in name
// order. Each call builds a fresh snapshot; later calls are unaffected by
// changes a caller makes to an earlier result.
func (t *Tree) Pages() []Page {
	var pages []Page
	t.Walk(func(n *Node, _ int) {
		if n.Kind != KindFile || n.Status != StatusParsed {
			return
		}
		pages = append(pages, Page{
			Path:       slices.Clone(n.Path),
			Filename:   n.Filename,
			FileType:   n.FileType,
			SourcePath: n.SourcePath,
			OutputPath: n.OutputPath(),
			Metadata:   cloneMap(n.Resolved),
			Body:       n.Body,
		})
	})
	return pages
}

// Entries lists every discovered file plus any directory that could not be
// read, in the same order as Pages.
func (t *Tree) Entries() []Entry {
	var entries []Entry
	t.Walk(func(n *Node, _ int) {
		if n.Kind == KindDirectory && n.Status != StatusReadError {
			return
		}
		entries = append(entries, Entry{
			RelPath:    path.Join(n.Path...),
			SourcePath: n.SourcePath,
			FileType:   n.FileType,
			Kind:       n.Kind,
			Status:     n.Status,
			Err:        n.Err,
		})
	})
	return entries
}

// Counts tallies file entries by status.
func (t *Tree) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, e := range t.Entries() {
		counts[e.Status]++
	}
	return counts
}
