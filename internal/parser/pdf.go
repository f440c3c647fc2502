package parser

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// PDFParser handles PDF files. Each page becomes a <section>. It uses the Go
// reader first and can fall back to pdftotext when that fails.
type PDFParser struct {
	markup            *Markup
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(content []byte, source string) (*Document, error) {
	text, err := extractPDFText(content)
	if err != nil && p.FallbackPdftotext {
		text, err = extractPdftotext(content)
	}
	if err != nil {
		return nil, &ParseError{Source: source, Msg: "extract pdf text", Err: err}
	}

	var body strings.Builder
	pages := 0
	for i, page := range splitPages(text) {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		pages++
		fmt.Fprintf(&body, "<section class=\"page\" data-page=\"%d\">\n", i+1)
		for _, para := range strings.Split(page, "\n\n") {
			if para = strings.TrimSpace(para); para != "" {
				body.WriteString("<p>" + html.EscapeString(para) + "</p>\n")
			}
		}
		body.WriteString("</section>\n")
	}

	meta := map[string]any{"pages": pages}
	setFileTitle(meta, source)
	return &Document{Metadata: meta, Body: p.markup.Sanitize(body.String())}, nil
}

func extractPDFText(content []byte) (string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f") // form feed separates pages
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

// extractPdftotext needs a real file, so content is spilled to a temp file.
func extractPdftotext(content []byte) (string, error) {
	tmp, err := os.CreateTemp("", "docsite-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", tmp.Name(), "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitPages(text string) []string {
	return strings.Split(text, "\f")
}
