package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rcliao/brain-jar/internal/logger"
	"github.com/rcliao/brain-jar/internal/model"
)

// Mirror exposes typed views over a Backend. A nil *Mirror is valid and
// returns ErrDisabled from every method.
type Mirror struct {
	backend Backend
	log     *logger.Logger
	now     func() time.Time
}

// NewMirror wraps backend. A nil backend yields a nil (disabled) mirror.
func NewMirror(backend Backend, log *logger.Logger) *Mirror {
	if backend == nil {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Mirror{backend: backend, log: log, now: time.Now}
}

// Enabled reports whether a remote is configured.
func (m *Mirror) Enabled() bool { return m != nil }

// AddMemory mirrors a local record and returns the remote id.
func (m *Mirror) AddMemory(ctx context.Context, rec model.MemoryRecord) (string, error) {
	if m == nil {
		return "", ErrDisabled
	}
	return m.backend.Add(ctx, AddRequest{
		Content: rec.Content,
		Metadata: memoryMeta{
			Scope:        rec.Scope,
			Tags:         rec.Tags,
			SourceAgent:  rec.Source.Agent,
			SourceAction: rec.Source.Action,
			LocalID:      rec.ID,
			CreatedAt:    model.FormatISO(rec.CreatedAt),
		},
	})
}

// SearchResult is a remote memory match.
type SearchResult struct {
	Record  model.MemoryRecord
	LocalID string
}

// Search returns plain memories matching query. Snapshots, summaries and
// unrecognized entries are skipped.
func (m *Mirror) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if m == nil {
		return nil, ErrDisabled
	}
	raws, err := m.backend.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	var out []SearchResult
	for _, e := range m.decodeAll(raws) {
		if e.Kind == KindMemory {
			out = append(out, SearchResult{Record: *e.Memory, LocalID: e.LocalID})
		}
	}
	return out, nil
}

// GetAll returns every plain memory in the remote log.
func (m *Mirror) GetAll(ctx context.Context) ([]model.MemoryRecord, error) {
	if m == nil {
		return nil, ErrDisabled
	}
	raws, err := m.backend.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.MemoryRecord
	for _, e := range m.decodeAll(raws) {
		if e.Kind == KindMemory {
			out = append(out, *e.Memory)
		}
	}
	return out, nil
}

// Delete removes a remote entry by remote id.
func (m *Mirror) Delete(ctx context.Context, id string) (bool, error) {
	if m == nil {
		return false, ErrDisabled
	}
	return m.backend.Delete(ctx, id)
}

// DeleteByLocalID removes the remote copies of a local record. It reports
// whether any remote entry was removed.
func (m *Mirror) DeleteByLocalID(ctx context.Context, localID string) (bool, error) {
	if m == nil {
		return false, ErrDisabled
	}
	raws, err := m.backend.GetAll(ctx)
	if err != nil {
		return false, err
	}
	removed := false
	for _, e := range m.decodeAll(raws) {
		if e.Kind != KindMemory || e.LocalID != localID {
			continue
		}
		ok, err := m.backend.Delete(ctx, e.Raw.ID)
		if err != nil {
			return removed, err
		}
		removed = removed || ok
	}
	return removed, nil
}

// GetLatestProfile returns the snapshot with the greatest timestamp, or nil
// when the log holds none. Snapshots that fail to parse are skipped. Network
// errors are returned; callers degrade to the local profile.
func (m *Mirror) GetLatestProfile(ctx context.Context) (*model.ProfileSnapshot, error) {
	snaps, err := m.GetProfileHistory(ctx, time.Time{}, 1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return &snaps[0], nil
}

// SaveProfileSnapshot appends a new snapshot; earlier snapshots are never
// touched. The snapshot is stamped with the profile's own lastUpdated so a
// later comparison against the local document is exact.
func (m *Mirror) SaveProfileSnapshot(ctx context.Context, p *model.UserProfile) (string, error) {
	if m == nil {
		return "", ErrDisabled
	}
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	ts := p.Meta.LastUpdated
	if ts == "" {
		ts = model.FormatISO(m.now())
	}
	version := p.Version
	if version == "" {
		version = model.ProfileVersion
	}
	return m.backend.Add(ctx, AddRequest{
		Content: string(body),
		Raw:     true,
		Metadata: snapshotMeta{
			Type:      typeProfileSnapshot,
			Timestamp: ts,
			Version:   version,
			Scope:     model.GlobalScope,
		},
	})
}

// GetProfileHistory returns snapshots newest first, optionally limited to
// those stamped at or after since.
func (m *Mirror) GetProfileHistory(ctx context.Context, since time.Time, limit int) ([]model.ProfileSnapshot, error) {
	if m == nil {
		return nil, ErrDisabled
	}
	raws, err := m.backend.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var snaps []model.ProfileSnapshot
	for _, e := range m.decodeAll(raws) {
		if e.Kind == KindProfileSnapshot {
			snaps = append(snaps, *e.Snapshot)
		}
	}
	// ISO timestamps order lexicographically
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Timestamp > snaps[j].Timestamp })

	if !since.IsZero() {
		cut := model.FormatISO(since)
		kept := snaps[:0]
		for _, s := range snaps {
			if s.Timestamp >= cut {
				kept = append(kept, s)
			}
		}
		snaps = kept
	}
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}

// SaveSummary appends an activity summary to the log.
func (m *Mirror) SaveSummary(ctx context.Context, scope, content string, periodStart, periodEnd time.Time, count int) (string, error) {
	if m == nil {
		return "", ErrDisabled
	}
	return m.backend.Add(ctx, AddRequest{
		Content: content,
		Metadata: summaryMeta{
			Type:        typeActivitySummary,
			Scope:       scope,
			PeriodStart: model.FormatISO(periodStart),
			PeriodEnd:   model.FormatISO(periodEnd),
			MemoryCount: float64(count),
			Timestamp:   model.FormatISO(m.now()),
		},
	})
}

// GetSummaries returns summaries newest first. Empty scope matches all scopes.
func (m *Mirror) GetSummaries(ctx context.Context, scope string, since time.Time, limit int) ([]model.ActivitySummary, error) {
	if m == nil {
		return nil, ErrDisabled
	}
	raws, err := m.backend.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var sums []model.ActivitySummary
	for _, e := range m.decodeAll(raws) {
		if e.Kind != KindActivitySummary {
			continue
		}
		if scope != "" && e.Summary.Scope != scope {
			continue
		}
		if !since.IsZero() && e.Summary.Timestamp.Before(since) {
			continue
		}
		sums = append(sums, *e.Summary)
	}
	sort.SliceStable(sums, func(i, j int) bool { return sums[i].Timestamp.After(sums[j].Timestamp) })
	if limit > 0 && len(sums) > limit {
		sums = sums[:limit]
	}
	return sums, nil
}

// GetLatestSummary returns the newest summary for scope, or nil when none exists.
func (m *Mirror) GetLatestSummary(ctx context.Context, scope string) (*model.ActivitySummary, error) {
	sums, err := m.GetSummaries(ctx, scope, time.Time{}, 1)
	if err != nil || len(sums) == 0 {
		return nil, err
	}
	return &sums[0], nil
}

// SaveSearchResult appends a web search result summary to the log.
func (m *Mirror) SaveSearchResult(ctx context.Context, query, summary string) (string, error) {
	if m == nil {
		return "", ErrDisabled
	}
	return m.backend.Add(ctx, AddRequest{
		Content: summary,
		Metadata: searchMeta{
			Type:      typeSearchResult,
			Query:     query,
			Timestamp: model.FormatISO(m.now()),
		},
	})
}

// SearchContext returns up to n past search results related to query,
// formatted one per line as "query: summary".
func (m *Mirror) SearchContext(ctx context.Context, query string, n int) ([]string, error) {
	if m == nil {
		return nil, ErrDisabled
	}
	raws, err := m.backend.Search(ctx, query, n*3)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range m.decodeAll(raws) {
		if e.Kind != KindSearchResult {
			continue
		}
		out = append(out, e.Search.Query+": "+e.Search.Summary)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

func (m *Mirror) decodeAll(raws []RawEntry) []Entry {
	out := make([]Entry, 0, len(raws))
	for _, r := range raws {
		e, err := Decode(r)
		if err != nil {
			m.log.Warn("skipping malformed remote entry", "id", r.ID, "error", err)
			continue
		}
		if e.Kind == KindUnrecognized {
			m.log.Debug("skipping unrecognized remote entry", "id", r.ID, "type", e.Type)
		}
		out = append(out, e)
	}
	return out
}
