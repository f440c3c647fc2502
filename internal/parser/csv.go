package parser

import (
	"bytes"
	"encoding/csv"
	"strings"

	"golang.org/x/net/html"
)

// CSVParser renders a CSV file as an HTML table. The first row is the header.
type CSVParser struct {
	markup *Markup
}

func (p *CSVParser) Parse(content []byte, source string) (*Document, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, newParseError(source, err)
	}

	meta := map[string]any{}
	setFileTitle(meta, source)
	if len(records) == 0 {
		meta["columns"] = []any{}
		meta["rows"] = 0
		return &Document{Metadata: meta}, nil
	}

	headers := records[0]
	columns := make([]any, len(headers))
	for i, h := range headers {
		columns[i] = h
	}
	meta["columns"] = columns
	meta["rows"] = len(records) - 1

	var body strings.Builder
	body.WriteString("<table>\n<thead>\n<tr>")
	for _, h := range headers {
		body.WriteString("<th>" + html.EscapeString(h) + "</th>")
	}
	body.WriteString("</tr>\n</thead>\n<tbody>\n")
	for _, row := range records[1:] {
		body.WriteString("<tr>")
		for _, cell := range row {
			body.WriteString("<td>" + html.EscapeString(cell) + "</td>")
		}
		body.WriteString("</tr>\n")
	}
	body.WriteString("</tbody>\n</table>\n")

	return &Document{Metadata: meta, Body: p.markup.Sanitize(body.String())}, nil
}
