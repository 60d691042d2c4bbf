// Package pagination implements keyset paging over descending primary keys.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var (
	ErrMalformedCursor = errors.New("malformed cursor")
	// ErrCursorFilter is returned when a cursor minted under one filter is
	// replayed under another.
	ErrCursorFilter = errors.New("cursor does not match the current filter")
)

// Cursor marks the last row of the page already served.
type Cursor struct {
	AfterID uint   `json:"a"`
	Filter  string `json:"f,omitempty"`
}

// Clamp maps a requested page size into [1, MaxLimit], defaulting zero and
// negative values.
func Clamp(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Probe is the row count to fetch so a following page can be detected.
func Probe(limit int) int {
	return Clamp(limit) + 1
}

func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses an opaque cursor. An empty string means the first page.
func Decode(value, filter string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, ErrMalformedCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.AfterID == 0 {
		return nil, ErrMalformedCursor
	}
	if c.Filter != filter {
		return nil, ErrCursorFilter
	}
	return &c, nil
}

// Cut trims rows fetched with Probe down to the page and returns the cursor
// for the next one, or "" on the last page.
func Cut[T any](rows []T, limit int, filter string, id func(T) uint) ([]T, string) {
	limit = Clamp(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, Cursor{AfterID: id(rows[limit-1]), Filter: filter}.Encode()
}
