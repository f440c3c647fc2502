package parser

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. <title> and named <meta> tags become
// metadata; the contents of <body> become the body.
type HTMLParser struct {
	markup *Markup
}

func (p *HTMLParser) Parse(content []byte, source string) (*Document, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, newParseError(source, err)
	}

	meta := map[string]any{}
	if title := findTitle(doc); title != "" {
		meta["title"] = title
	}
	collectMeta(doc, meta)

	var buf bytes.Buffer
	root := findBody(doc)
	if root == nil {
		root = doc
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil, &ParseError{Source: source, Msg: "render body", Err: err}
		}
	}

	return &Document{
		Metadata: meta,
		Body:     p.markup.Sanitize(strings.TrimSpace(buf.String())),
	}, nil
}

// collectMeta copies <meta name="..." content="..."> pairs into meta.
func collectMeta(n *html.Node, meta map[string]any) {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var name, content string
		hasContent := false
		for _, a := range n.Attr {
			switch a.Key {
			case "name":
				name = strings.TrimSpace(a.Val)
			case "content":
				content = a.Val
				hasContent = true
			}
		}
		if name != "" && hasContent {
			meta[name] = content
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectMeta(c, meta)
	}
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
