package parser

import (
	"fmt"
	"regexp"
	"strconv"
)

// ParseError reports a structurally invalid document.
type ParseError struct {
	Source string
	Line   int // 1-based, 0 when unknown
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %s", e.Source, e.Line, e.Msg)
	}
	return fmt.Sprintf("parse %s: %s", e.Source, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NoParserError reports a file whose extension has no registered parser.
type NoParserError struct {
	Ext    string
	Source string
}

func (e *NoParserError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("no parser for %s: file has no extension", e.Source)
	}
	return fmt.Sprintf("no parser registered for %q (%s)", e.Ext, e.Source)
}

var lineHint = regexp.MustCompile(`line (\d+)`)

// newParseError wraps a decoder error, pulling the line number out of the
// message when the decoder reports one.
func newParseError(source string, err error) *ParseError {
	pe := &ParseError{Source: source, Msg: err.Error(), Err: err}
	if m := lineHint.FindStringSubmatch(err.Error()); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			pe.Line = n
		}
	}
	return pe
}
