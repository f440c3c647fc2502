package parser

import (
	"bufio"
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// TextParser handles plain text files. Blank lines separate paragraphs.
type TextParser struct {
	markup *Markup
}

func (p *TextParser) Parse(content []byte, source string) (*Document, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Source: source, Msg: "read text", Err: err}
	}

	var body strings.Builder
	for _, para := range paragraphs {
		body.WriteString("<p>")
		body.WriteString(html.EscapeString(para))
		body.WriteString("</p>\n")
	}

	meta := map[string]any{}
	setFileTitle(meta, source)
	return &Document{Metadata: meta, Body: p.markup.Sanitize(body.String())}, nil
}
