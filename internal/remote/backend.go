// Package remote replicates records, profile snapshots and activity summaries
// to an append-only remote memory log. Nothing here is on the critical path:
// callers treat every error as a degraded feature, never as a failed write.
package remote

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrDisabled is returned by a nil Mirror when no remote is configured.
var ErrDisabled = errors.New("remote mirror not configured")

// RawEntry is one item of the remote log as the service returns it.
type RawEntry struct {
	ID        string          `json:"id"`
	Memory    string          `json:"memory"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

// AddRequest appends one entry to the remote log.
type AddRequest struct {
	Content  string
	Metadata any
	// Raw stores Content verbatim, disabling the service's semantic extraction.
	Raw bool
}

// Backend is the raw remote log.
type Backend interface {
	Add(ctx context.Context, req AddRequest) (string, error)
	Search(ctx context.Context, query string, limit int) ([]RawEntry, error)
	GetAll(ctx context.Context) ([]RawEntry, error)
	// Delete reports false when the id does not exist.
	Delete(ctx context.Context, id string) (bool, error)
}
