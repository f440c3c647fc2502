package doctree

import (
	"context"
	"errors"
	"io/fs"
	"sync"

	"github.com/dgallion1/docsite/internal/parser"
)

// parseAll reads and parses every file node with a bounded worker pool.
// Each node is touched by exactly one worker, so no locking is needed. A
// failure stays on its node; only cancellation aborts the stage.
func (t *Tree) parseAll(ctx context.Context) error {
	var files []*Node
	t.Walk(func(n *Node, _ int) {
		if n.Kind == KindFile {
			files = append(files, n)
		}
	})
	if len(files) == 0 {
		return nil
	}

	workers := min(t.opts.Workers, len(files))
	queue := make(chan *Node, workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range queue {
				t.parseNode(n)
			}
		}()
	}

	var err error
enqueue:
	for _, n := range files {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break enqueue
		case queue <- n:
		}
	}
	close(queue)
	wg.Wait()
	return err
}

func (t *Tree) parseNode(n *Node) {
	log := t.log.With("source", n.SourcePath)

	p, ok := t.opts.Parsers.Lookup(n.FileType)
	if !ok {
		n.Status = StatusNoParser
		n.Err = &parser.NoParserError{Ext: n.FileType, Source: n.SourcePath}
		log.Debug("no parser for file", "ext", n.FileType)
		return
	}

	raw, err := fs.ReadFile(t.fsys, n.rel)
	if err != nil {
		n.Status = StatusReadError
		n.Err = &IOError{Op: "read", Path: n.SourcePath, Err: err}
		log.Debug("read failed", "error", err)
		return
	}
	n.Raw = raw

	doc, err := p.Parse(raw, n.SourcePath)
	if err != nil {
		var pe *parser.ParseError
		if !errors.As(err, &pe) {
			pe = &parser.ParseError{Source: n.SourcePath, Msg: err.Error(), Err: err}
		}
		n.Status = StatusParseError
		n.Err = pe
		log.Debug("parse failed", "error", err)
		return
	}

	n.Own = doc.Metadata
	if n.Own == nil {
		n.Own = map[string]any{}
	}
	n.Body = doc.Body
	n.Status = StatusParsed
}
