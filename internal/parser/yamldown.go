package parser

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// BoundaryMarker is the line that ends the metadata block of a yamldown
// document. It must stand alone on its line; trailing whitespace is ignored.
// A YAML line cannot start with '%' unless it is a directive, so the marker
// never collides with metadata content.
const BoundaryMarker = "%%%"

// YAMLDownParser handles documents made of a YAML metadata block, the
// boundary marker, and a Markdown body.
//
//	title: Hello
//	tags: [intro, news]
//	%%%
//	# Hello
//
//	Body text.
//
// A file without the marker is all body with empty metadata.
type YAMLDownParser struct {
	markup *Markup
}

func NewYAMLDownParser(opts Options) *YAMLDownParser {
	return &YAMLDownParser{markup: NewMarkup(opts)}
}

func (p *YAMLDownParser) Parse(content []byte, source string) (*Document, error) {
	block, body, found := SplitMetadata(content)

	metadata := map[string]any{}
	if found {
		m, err := decodeMetadata(block, source)
		if err != nil {
			return nil, err
		}
		metadata = m
	}

	html, err := p.markup.Markdown(body)
	if err != nil {
		return nil, &ParseError{Source: source, Msg: "render body", Err: err}
	}
	return &Document{Metadata: metadata, Body: html}, nil
}

// SplitMetadata cuts content at the first boundary marker line. When no
// marker exists, found is false and body is the whole input.
func SplitMetadata(content []byte) (block, body []byte, found bool) {
	rest := content
	pos := 0
	for len(rest) > 0 {
		line := rest
		advance := len(rest)
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i]
			advance = i + 1
		}
		if string(bytes.TrimRight(line, " \t\r")) == BoundaryMarker {
			return content[:pos], content[pos+advance:], true
		}
		pos += advance
		rest = rest[advance:]
	}
	return nil, content, false
}

// decodeMetadata parses a YAML block that must be a mapping (or empty).
func decodeMetadata(block []byte, source string) (map[string]any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(block, &root); err != nil {
		return nil, newParseError(source, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return map[string]any{}, nil
	}

	doc := root.Content[0]
	if doc.Kind == yaml.ScalarNode && doc.Tag == "!!null" {
		return map[string]any{}, nil
	}
	if doc.Kind != yaml.MappingNode {
		return nil, &ParseError{
			Source: source,
			Line:   doc.Line,
			Msg:    fmt.Sprintf("metadata block must be a mapping, found %s", kindName(doc.Kind)),
			Err:    errors.New("metadata is not a mapping"),
		}
	}

	var fields map[string]any
	if err := doc.Decode(&fields); err != nil {
		return nil, newParseError(source, err)
	}
	return normalizeMap(fields), nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "an unexpected node"
	}
}
