// Package memory ties the local store, the remote mirror and the summary
// engine into the add, search, list and delete operations callers use.
// The local store is always written first and is the source of truth;
// remote work never fails a local operation.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/brain-jar/internal/logger"
	"github.com/rcliao/brain-jar/internal/model"
	"github.com/rcliao/brain-jar/internal/remote"
	"github.com/rcliao/brain-jar/internal/store"
	"github.com/rcliao/brain-jar/internal/summary"
)

var (
	// ErrInvalidScope is returned for scopes other than "global" or "project:<name>".
	ErrInvalidScope = errors.New(`scope must be "global" or "project:<name>"`)
	ErrEmptyContent = errors.New("content is required")
)

// Origin values for search hits.
const (
	OriginLocal  = "local"
	OriginRemote = "remote"
)

// Options configures a Service. Mirror, Dispatcher and Summaries may be nil.
type Options struct {
	Store        store.Store
	Mirror       *remote.Mirror
	Dispatcher   *remote.Dispatcher
	Summaries    *summary.Engine
	DefaultScope string
	Logger       *logger.Logger
}

// Service is the memory facade.
type Service struct {
	store        store.Store
	mirror       *remote.Mirror
	dispatch     *remote.Dispatcher
	summaries    *summary.Engine
	defaultScope string
	log          *logger.Logger
}

func NewService(opts Options) *Service {
	s := &Service{
		store:        opts.Store,
		mirror:       opts.Mirror,
		dispatch:     opts.Dispatcher,
		summaries:    opts.Summaries,
		defaultScope: opts.DefaultScope,
		log:          opts.Logger,
	}
	if s.defaultScope == "" {
		s.defaultScope = model.GlobalScope
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

// AddParams holds the caller's input for a new memory.
type AddParams struct {
	Content string       `json:"content"`
	Scope   string       `json:"scope,omitempty"`
	Tags    []string     `json:"tags,omitempty"`
	Source  model.Source `json:"source,omitempty"`
}

// AddResult is the stored record plus the summary it triggered, if any.
type AddResult struct {
	Record  *model.MemoryRecord    `json:"record"`
	Summary *model.ActivitySummary `json:"summary,omitempty"`
}

// Add stores a record locally, schedules the remote mirror write and
// notifies the summary engine.
func (s *Service) Add(ctx context.Context, p AddParams) (*AddResult, error) {
	if strings.TrimSpace(p.Content) == "" {
		return nil, ErrEmptyContent
	}
	scope := p.Scope
	if scope == "" {
		scope = s.defaultScope
	}
	if !model.ValidScope(scope) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	if p.Source.Action == "" {
		p.Source.Action = "explicit"
	}

	rec, err := s.store.Add(ctx, store.AddParams{
		Content: p.Content,
		Scope:   scope,
		Tags:    p.Tags,
		Source:  p.Source,
	})
	if err != nil {
		return nil, err
	}

	if s.mirror.Enabled() && s.dispatch != nil {
		mirrored := *rec
		s.dispatch.Go("mirror memory "+rec.ID, func(ctx context.Context) error {
			_, err := s.mirror.AddMemory(ctx, mirrored)
			return err
		})
	}

	res := &AddResult{Record: rec}
	if s.summaries != nil {
		sum, err := s.summaries.OnMemoryAdded(ctx, scope)
		if err != nil {
			s.log.Warn("summary check failed", "scope", scope, "error", err)
		}
		res.Summary = sum
	}
	return res, nil
}

// SearchParams filters a merged search.
type SearchParams struct {
	Query string `json:"query"`
	Scope string `json:"scope,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Hit is one search result and where it came from.
type Hit struct {
	model.MemoryRecord
	Origin string `json:"origin"`
}

// Search queries the local store and, when it returns fewer than limit
// hits, tops up from the remote mirror. Remote copies of local records are
// dropped. With a scope set, hits from that scope or the global scope are kept.
func (s *Service) Search(ctx context.Context, p SearchParams) ([]Hit, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}
	local, err := s.store.Search(ctx, store.SearchParams{Query: p.Query, Scope: p.Scope, Limit: limit})
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(local))
	localIDs := map[string]bool{}
	contents := map[string]bool{}
	for _, r := range local {
		hits = append(hits, Hit{MemoryRecord: r, Origin: OriginLocal})
		localIDs[r.ID] = true
		contents[r.Content] = true
	}

	if len(hits) < limit && s.mirror.Enabled() {
		remoteHits, err := s.mirror.Search(ctx, p.Query, limit)
		if err != nil {
			s.log.Warn("remote search failed", "error", err)
		}
		for _, r := range remoteHits {
			// older mirrored entries carry no local id; fall back to content
			if r.LocalID != "" && localIDs[r.LocalID] {
				continue
			}
			if r.LocalID == "" && contents[r.Record.Content] {
				continue
			}
			contents[r.Record.Content] = true
			if r.LocalID != "" {
				localIDs[r.LocalID] = true
			}
			hits = append(hits, Hit{MemoryRecord: r.Record, Origin: OriginRemote})
		}
	}

	if p.Scope != "" {
		kept := hits[:0]
		for _, h := range hits {
			if h.Scope == p.Scope || h.Scope == model.GlobalScope {
				kept = append(kept, h)
			}
		}
		hits = kept
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// List returns local records, newest first.
func (s *Service) List(ctx context.Context, p store.ListParams) ([]model.MemoryRecord, error) {
	return s.store.List(ctx, p)
}

// Delete removes a local record and schedules removal of its remote copies.
// It reports whether the local record existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if s.mirror.Enabled() && s.dispatch != nil {
		s.dispatch.Go("delete remote "+id, func(ctx context.Context) error {
			_, err := s.mirror.DeleteByLocalID(ctx, id)
			return err
		})
	}
	return deleted, nil
}
