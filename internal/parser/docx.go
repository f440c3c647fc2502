package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
	"golang.org/x/net/html"
)

// DOCXParser handles .docx files. Heading-styled paragraphs become <hN>
// elements and the first heading becomes the title.
type DOCXParser struct {
	markup *Markup
}

func (p *DOCXParser) Parse(content []byte, source string) (*Document, error) {
	doc, err := docx.Parse(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, &ParseError{Source: source, Msg: "invalid docx archive", Err: err}
	}

	meta := map[string]any{}
	var body strings.Builder

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}

		if level := docxHeadingLevel(para); level > 0 {
			if _, ok := meta["title"]; !ok {
				meta["title"] = text
			}
			fmt.Fprintf(&body, "<h%d>%s</h%d>\n", level, html.EscapeString(text), level)
			continue
		}
		body.WriteString("<p>" + html.EscapeString(text) + "</p>\n")
	}

	if _, ok := meta["title"]; !ok {
		setFileTitle(meta, source)
	}
	return &Document{Metadata: meta, Body: p.markup.Sanitize(body.String())}, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") || len(style) != len("heading")+1 {
		return 0
	}
	level := int(style[len(style)-1] - '0')
	if level < 1 || level > 6 {
		return 0
	}
	return level
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
