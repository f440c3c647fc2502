package doctree

import (
	"errors"
	"fmt"
)

// ErrNoParsers is returned by Build when the registry is empty.
var ErrNoParsers = errors.New("no parsers registered")

// NotFoundError means the tree root is missing or is not a directory.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source root %s not found: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("source root %s not found or not a directory", e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// IOError is a read failure confined to one node.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
