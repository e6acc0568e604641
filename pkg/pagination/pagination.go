// Package pagination implements keyset paging over (created_at, id), newest
// first. Cursors are opaque URL-safe tokens.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Params are the raw paging inputs from a request.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Window is a resolved page request.
type Window struct {
	// Limit is the page size returned to the caller.
	Limit int
	// After is nil on the first page.
	After *Cursor
}

// Resolve clamps the limit and decodes the cursor.
func Resolve(params Params) (Window, error) {
	window := Window{Limit: NormalizeLimit(params.Limit)}
	after, err := Decode(params.Cursor)
	if err != nil {
		return Window{}, err
	}
	window.After = after
	return window, nil
}

// Apply adds the keyset predicate, ordering and the one-row lookahead.
func (w Window) Apply(query *gorm.DB) *gorm.DB {
	if w.After != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", w.After.CreatedAt, w.After.CreatedAt, w.After.ID)
	}
	return query.Order("created_at DESC").Order("id DESC").Limit(w.Limit + 1)
}

// Page trims the lookahead row and returns the cursor for the next page, or
// "" when rows was the last page.
func Page[T any](w Window, rows []T, key func(T) Cursor) ([]T, string) {
	if len(rows) <= w.Limit {
		return rows, ""
	}
	rows = rows[:w.Limit]
	return rows, Encode(key(rows[len(rows)-1]))
}

func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func Encode(c Cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a cursor produced by Encode. Blank input yields nil.
func Decode(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, fmt.Errorf("malformed cursor")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("cursor timestamp: %w", err)
	}
	rowID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("cursor id: %w", err)
	}
	return &Cursor{CreatedAt: createdAt, ID: rowID}, nil
}
