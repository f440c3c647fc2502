// Package excerpt derives short plain-text summaries from rendered page
// bodies.
package excerpt

import (
	"math"
	"strings"

	"golang.org/x/net/html"
)

// DefaultTokens is the excerpt budget used when none is configured.
const DefaultTokens = 50

const wordsPerMinute = 200

// Summary describes a page body in plain text.
type Summary struct {
	Excerpt        string
	WordCount      int
	ReadingMinutes int
}

// Map returns the summary in the shape handed to templates.
func (s Summary) Map() map[string]any {
	return map[string]any{
		"excerpt":         s.Excerpt,
		"word_count":      s.WordCount,
		"reading_minutes": s.ReadingMinutes,
	}
}

// Summarize strips markup from body and keeps whole sentences until the
// token budget is spent. A first sentence longer than the budget is cut at a
// word boundary and marked with an ellipsis.
func Summarize(body string, maxTokens int) Summary {
	if maxTokens <= 0 {
		maxTokens = DefaultTokens
	}
	text := PlainText(body)
	words := len(strings.Fields(text))

	s := Summary{WordCount: words}
	if words > 0 {
		s.ReadingMinutes = int(math.Ceil(float64(words) / wordsPerMinute))
	}
	if text == "" {
		return s
	}

	var kept []string
	tokens := 0
	for _, sent := range splitSentences(text) {
		n := EstimateTokens(sent)
		if tokens+n > maxTokens {
			break
		}
		kept = append(kept, sent)
		tokens += n
	}
	if len(kept) > 0 {
		s.Excerpt = strings.Join(kept, " ")
		return s
	}

	fields := strings.Fields(text)
	limit := max(int(float64(maxTokens)/1.33), 1)
	if limit >= len(fields) {
		s.Excerpt = text
		return s
	}
	s.Excerpt = strings.Join(fields[:limit], " ") + "…"
	return s
}

// PlainText returns the text content of an HTML fragment with whitespace
// collapsed. Script and style contents are dropped.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way the text so far is all there is.
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skip++
			}
			if !inline[tag] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			if !inline[tag] {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

var inline = map[string]bool{
	"a": true, "abbr": true, "b": true, "code": true, "del": true, "em": true,
	"i": true, "mark": true, "s": true, "small": true, "span": true,
	"strong": true, "sub": true, "sup": true, "u": true,
}

// splitSentences does basic sentence splitting on terminal punctuation
// followed by a space.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
