package fdata

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("fdata: not found")
	ErrMalformed     = errors.New("fdata: malformed input")
	ErrAlreadyParsed = errors.New("fdata: reader was already used")
)

// ParseError describes the first grammar violation found in the input.
// Line is 1-based, Col is 0-based.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fdata: line %d, column %d: %s", e.Line, e.Col, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformed
}
