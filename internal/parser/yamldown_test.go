package parser

import (
	"errors"
	"strings"
	"testing"
)

func TestYAMLDownParser_MetadataAndBody(t *testing.T) {
	input := "title: Hello\ntags:\n  - intro\n  - news\nauthor:\n  name: Ada\n%%%\n# Heading\n\nSome *emphasis* and a [link](https://example.com).\n"

	p := NewYAMLDownParser(Options{})
	doc, err := p.Parse([]byte(input), "blog/post1.yd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Metadata["title"] != "Hello" {
		t.Errorf("expected title %q, got %v", "Hello", doc.Metadata["title"])
	}
	tags, ok := doc.Metadata["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "intro" {
		t.Errorf("expected tags [intro news], got %#v", doc.Metadata["tags"])
	}
	author, ok := doc.Metadata["author"].(map[string]any)
	if !ok || author["name"] != "Ada" {
		t.Errorf("expected nested author mapping, got %#v", doc.Metadata["author"])
	}

	for _, want := range []string{"<h1", "Heading</h1>", "<em>emphasis</em>", `<a href="https://example.com">link</a>`} {
		if !strings.Contains(doc.Body, want) {
			t.Errorf("expected body to contain %q, got %q", want, doc.Body)
		}
	}
	if strings.Contains(doc.Body, "title:") {
		t.Errorf("metadata leaked into body: %q", doc.Body)
	}
}

func TestYAMLDownParser_NoMarkerIsAllBody(t *testing.T) {
	input := "title: not metadata\n\nJust text."

	doc, err := NewYAMLDownParser(Options{}).Parse([]byte(input), "plain.yd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Metadata) != 0 {
		t.Errorf("expected empty metadata, got %#v", doc.Metadata)
	}
	if !strings.Contains(doc.Body, "title: not metadata") {
		t.Errorf("expected whole file in body, got %q", doc.Body)
	}
}

func TestYAMLDownParser_EmptyMetadataBlock(t *testing.T) {
	input := []byte("%%%\nBody text B.\n")

	p := NewYAMLDownParser(Options{})
	first, err := p.Parse(input, "empty.yd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Metadata == nil || len(first.Metadata) != 0 {
		t.Errorf("expected empty non-nil metadata, got %#v", first.Metadata)
	}
	if first.Body != "<p>Body text B.</p>\n" {
		t.Errorf("unexpected body %q", first.Body)
	}

	second, err := p.Parse(input, "empty.yd")
	if err != nil {
		t.Fatalf("unexpected error on second parse: %v", err)
	}
	if first.Body != second.Body {
		t.Errorf("parsing is not idempotent: %q vs %q", first.Body, second.Body)
	}
}

func TestYAMLDownParser_CommentOnlyBlock(t *testing.T) {
	doc, err := NewYAMLDownParser(Options{}).Parse([]byte("# just a comment\n%%%\ntext\n"), "c.yd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Metadata) != 0 {
		t.Errorf("expected empty metadata, got %#v", doc.Metadata)
	}
}

func TestYAMLDownParser_MalformedMetadata(t *testing.T) {
	input := "title: ok\n  nested: bad\n%%%\nbody\n"

	_, err := NewYAMLDownParser(Options{}).Parse([]byte(input), "site/bad.yd")
	if err == nil {
		t.Fatal("expected parse error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Source != "site/bad.yd" {
		t.Errorf("expected source %q, got %q", "site/bad.yd", pe.Source)
	}
	if pe.Line == 0 {
		t.Errorf("expected a line hint, got %q", pe.Error())
	}
	if !strings.Contains(pe.Error(), "site/bad.yd") {
		t.Errorf("expected error to mention the file, got %q", pe.Error())
	}
}

func TestYAMLDownParser_NonMappingMetadata(t *testing.T) {
	_, err := NewYAMLDownParser(Options{}).Parse([]byte("- a\n- b\n%%%\nbody\n"), "list.yd")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Line != 1 {
		t.Errorf("expected line 1, got %d", pe.Line)
	}
}

func TestYAMLDownParser_UnknownKeysPassThrough(t *testing.T) {
	doc, err := NewYAMLDownParser(Options{}).Parse([]byte("hero_image: a.png\nweight: 3\n%%%\n"), "x.yd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Metadata["hero_image"] != "a.png" || doc.Metadata["weight"] != 3 {
		t.Errorf("unexpected metadata %#v", doc.Metadata)
	}
}

func TestSplitMetadata(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantBlock string
		wantBody  string
		wantFound bool
	}{
		{"marker", "a: 1\n%%%\nbody\n", "a: 1\n", "body\n", true},
		{"crlf", "a: 1\r\n%%%\r\nbody\r\n", "a: 1\r\n", "body\r\n", true},
		{"trailing space", "a: 1\n%%%  \nbody", "a: 1\n", "body", true},
		{"marker at end", "a: 1\n%%%", "a: 1\n", "", true},
		{"first marker wins", "a: 1\n%%%\nx\n%%%\ny", "a: 1\n", "x\n%%%\ny", true},
		{"indented is not a marker", "a: 1\n  %%%\nbody", "", "a: 1\n  %%%\nbody", false},
		{"no marker", "just body", "", "just body", false},
		{"empty", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, body, found := SplitMetadata([]byte(tt.input))
			if found != tt.wantFound {
				t.Fatalf("found=%v, want %v", found, tt.wantFound)
			}
			if string(block) != tt.wantBlock {
				t.Errorf("block=%q, want %q", block, tt.wantBlock)
			}
			if string(body) != tt.wantBody {
				t.Errorf("body=%q, want %q", body, tt.wantBody)
			}
		})
	}
}
