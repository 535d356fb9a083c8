package session

import (
	domainerrors "github.com/RekGRpth/pg-curl-sub000/domain/errors"
)

// DefaultMaxHeaders is the header list capacity used when none is configured.
const DefaultMaxHeaders = 1024

// HeaderList is the ordered list of request header lines.
type HeaderList struct {
	lines []string
	max   int
}

// NewHeaderList creates an empty list holding at most limit lines.
func NewHeaderList(limit int) *HeaderList {
	if limit <= 0 {
		limit = DefaultMaxHeaders
	}
	return &HeaderList{max: limit}
}

// Append formats "name: value" and appends it. It fails with an AllocatorError when
// the list is full.
func (l *HeaderList) Append(name, value string) error {
	line := name + ": " + value
	if len(l.lines) >= l.max {
		return &domainerrors.AllocatorError{Header: line}
	}
	l.lines = append(l.lines, line)
	return nil
}

// Lines returns a copy of the header lines in insertion order.
func (l *HeaderList) Lines() []string {
	return append([]string(nil), l.lines...)
}

// Len returns the number of lines.
func (l *HeaderList) Len() int {
	return len(l.lines)
}

// Free empties the list.
func (l *HeaderList) Free() {
	l.lines = nil
}
