package book

import (
	"errors"
)

// ErrNotFound is returned when no row matches a lookup.
var ErrNotFound = errors.New("book not found")

// ErrStoreUnavailable marks failures the caller may retry: the store was busy,
// timed out, or the request was canceled before a connection was obtained.
var ErrStoreUnavailable = errors.New("book store unavailable")

// ErrEmptyISBN is returned when an identifier is blank after normalization.
var ErrEmptyISBN = errors.New("isbn is empty")

const (
	// DefaultListLimit is used when the caller does not pass a limit.
	DefaultListLimit = 1000
	MinListLimit     = 1
	MaxListLimit     = 5000
)

// ListResult is the envelope returned by the list endpoint.
type ListResult struct {
	Count int      `json:"count"`
	Data  []Record `json:"data"`
}

// NewListResult wraps records, never producing a null data array.
func NewListResult(records []Record) ListResult {
	if records == nil {
		records = []Record{}
	}
	return ListResult{Count: len(records), Data: records}
}
