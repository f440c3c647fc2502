package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Markup turns Markdown into HTML and applies the optional sanitiser. It is
// safe for concurrent use.
type Markup struct {
	opts   Options
	policy *bluemonday.Policy
}

func NewMarkup(opts Options) *Markup {
	m := &Markup{opts: opts}
	if opts.Sanitize {
		m.policy = bluemonday.UGCPolicy()
	}
	return m
}

// Markdown renders src to an HTML fragment. Same input, same output.
func (m *Markup) Markdown(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := newEngine(m.opts).Convert(src, &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return m.Sanitize(buf.String()), nil
}

// Sanitize applies the configured policy, if any.
func (m *Markup) Sanitize(body string) string {
	if m == nil || m.policy == nil {
		return body
	}
	return m.policy.Sanitize(body)
}

// newEngine builds a fresh goldmark instance per conversion so no parser
// state leaks between documents.
func newEngine(opts Options) goldmark.Markdown {
	var rendererOptions []renderer.Option
	if opts.UnsafeHTML {
		rendererOptions = append(rendererOptions, gmhtml.WithUnsafe())
	}

	engineOptions := []goldmark.Option{
		goldmark.WithParserOptions(gmparser.WithAutoHeadingID()),
		goldmark.WithExtensions(collectExtensions(opts.MarkdownExtensions)...),
	}
	if len(rendererOptions) > 0 {
		engineOptions = append(engineOptions, goldmark.WithRendererOptions(rendererOptions...))
	}
	return goldmark.New(engineOptions...)
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
}

// KnownExtension reports whether name is a recognised goldmark extension.
func KnownExtension(name string) bool {
	_, ok := extensionRegistry[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		return []goldmark.Extender{extension.GFM, extension.Linkify, extension.TaskList}
	}

	var extenders []goldmark.Extender
	seen := map[string]struct{}{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := seen[key]; ok {
			continue
		}
		ext, ok := extensionRegistry[key]
		if !ok {
			continue
		}
		extenders = append(extenders, ext)
		seen[key] = struct{}{}
	}
	return extenders
}
