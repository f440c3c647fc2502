package parser

import (
	"errors"
	"strings"
	"testing"
)

func TestMarkdownParser_YAMLFrontMatter(t *testing.T) {
	input := `---
title: Title
template: post
nested:
  key: value
---
# Title

Intro text.

## Section A

- one
- two
`
	p, err := Builtin("markdown", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, err := p.Parse([]byte(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Metadata["title"] != "Title" {
		t.Errorf("expected title %q, got %v", "Title", doc.Metadata["title"])
	}
	if doc.Metadata["template"] != "post" {
		t.Errorf("expected template %q, got %v", "post", doc.Metadata["template"])
	}
	nested, ok := doc.Metadata["nested"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map[string]any, got %T", doc.Metadata["nested"])
	}
	if nested["key"] != "value" {
		t.Errorf("expected nested key %q, got %v", "value", nested["key"])
	}

	for _, want := range []string{"Section A</h2>", "<li>one</li>", "<p>Intro text.</p>"} {
		if !strings.Contains(doc.Body, want) {
			t.Errorf("expected body to contain %q, got %q", want, doc.Body)
		}
	}
	if strings.Contains(doc.Body, "template: post") {
		t.Errorf("front matter leaked into body: %q", doc.Body)
	}
}

func TestMarkdownParser_NoFrontMatter(t *testing.T) {
	input := `Just some plain text.

Another paragraph here.`

	p, _ := Builtin("markdown", Options{})
	doc, err := p.Parse([]byte(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Metadata) != 0 {
		t.Errorf("expected no metadata, got %#v", doc.Metadata)
	}
	if !strings.Contains(doc.Body, "<p>Another paragraph here.</p>") {
		t.Errorf("expected second paragraph, got %q", doc.Body)
	}
}

func TestMarkdownParser_CodeBlocks(t *testing.T) {
	input := "# API Reference\n\n```\nGET /api/users\n```\n\nMore text after code.\n"

	p, _ := Builtin("markdown", Options{})
	doc, err := p.Parse([]byte(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.Body, "<pre><code>GET /api/users\n</code></pre>") {
		t.Errorf("expected code block, got %q", doc.Body)
	}
}

func TestMarkdownParser_RawHTML(t *testing.T) {
	input := "<div class=\"note\">hi</div>\n"

	safe, _ := Builtin("markdown", Options{})
	doc, err := safe.Parse([]byte(input), "raw.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(doc.Body, `<div class="note">`) {
		t.Errorf("expected raw HTML to be omitted by default, got %q", doc.Body)
	}

	unsafe, _ := Builtin("markdown", Options{UnsafeHTML: true})
	doc, err = unsafe.Parse([]byte(input), "raw.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.Body, `<div class="note">hi</div>`) {
		t.Errorf("expected raw HTML with UnsafeHTML, got %q", doc.Body)
	}
}

func TestMarkdownParser_Sanitize(t *testing.T) {
	input := "<script>alert(1)</script>\n\nhello\n"

	p, _ := Builtin("markdown", Options{UnsafeHTML: true, Sanitize: true})
	doc, err := p.Parse([]byte(input), "x.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(doc.Body, "<script>") {
		t.Errorf("expected script to be sanitised, got %q", doc.Body)
	}
	if !strings.Contains(doc.Body, "hello") {
		t.Errorf("expected text to survive sanitising, got %q", doc.Body)
	}
}

func TestMarkdownParser_BrokenFrontMatter(t *testing.T) {
	input := "---\ntitle: [unterminated\n---\nbody\n"

	p, _ := Builtin("markdown", Options{})
	_, err := p.Parse([]byte(input), "broken.md")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Source != "broken.md" {
		t.Errorf("expected source %q, got %q", "broken.md", pe.Source)
	}
}
