package parser

import (
	"bytes"

	"github.com/adrg/frontmatter"
)

// MarkdownParser handles Markdown files with optional front matter
// (--- YAML, +++ TOML or ;;; JSON).
type MarkdownParser struct {
	markup *Markup
}

func (p *MarkdownParser) Parse(content []byte, source string) (*Document, error) {
	var meta map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(content), &meta)
	if err != nil {
		return nil, newParseError(source, err)
	}

	html, err := p.markup.Markdown(body)
	if err != nil {
		return nil, &ParseError{Source: source, Msg: "render body", Err: err}
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return &Document{Metadata: normalizeMap(meta), Body: html}, nil
}
