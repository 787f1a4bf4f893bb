// Package store provides the local record store interface and its SQLite implementation.
package store

import (
	"context"
	"time"

	"github.com/rcliao/brain-jar/internal/model"
)

// DefaultAgent is recorded as the source agent when the caller names none.
const DefaultAgent = "claude-code"

// AddParams holds parameters for storing a memory record.
type AddParams struct {
	Content string
	Scope   string
	Tags    []string
	Source  model.Source
}

// SearchParams holds parameters for a substring search.
type SearchParams struct {
	Query string
	Scope string // empty means all scopes
	Limit int    // 0 means 10
}

// ListParams holds conjunctive list filters. Zero values disable a filter.
type ListParams struct {
	Scope string
	Tags  []string
	Since time.Time
	Limit int // 0 means unlimited
}

// Store defines the local record store. It is the authoritative copy of every
// record; storage errors are returned to the caller and never swallowed.
type Store interface {
	// Add persists a new record and returns it with id and timestamps set.
	Add(ctx context.Context, p AddParams) (*model.MemoryRecord, error)

	// Search returns records whose content contains the query (case-sensitive),
	// newest first.
	Search(ctx context.Context, p SearchParams) ([]model.MemoryRecord, error)

	// List returns records matching every given filter, newest first.
	List(ctx context.Context, p ListParams) ([]model.MemoryRecord, error)

	// Delete removes a record. It reports whether a record was removed.
	Delete(ctx context.Context, id string) (bool, error)

	// GetByDateRange returns the scope's records created within [start, end], newest first.
	GetByDateRange(ctx context.Context, scope string, start, end time.Time) ([]model.MemoryRecord, error)

	// CountSince counts the scope's records created at or after since.
	CountSince(ctx context.Context, scope string, since time.Time) (int, error)

	// ActiveScopes lists every scope holding at least one record.
	ActiveScopes(ctx context.Context) ([]string, error)

	// Stats aggregates counts for health reporting.
	Stats(ctx context.Context) (*Stats, error)

	// Close closes the store.
	Close() error
}
