package remote

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/brain-jar/internal/logger"
	"github.com/rcliao/brain-jar/internal/model"
)

func newTestMirror(t *testing.T) (*Mirror, *MemoryBackend) {
	t.Helper()
	b := NewMemoryBackend()
	return NewMirror(b, logger.Nop()), b
}

func TestNilMirrorDisabled(t *testing.T) {
	var m *Mirror
	assert.False(t, m.Enabled())
	_, err := m.AddMemory(context.Background(), model.MemoryRecord{})
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = m.GetLatestProfile(context.Background())
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Nil(t, NewMirror(nil, nil))
}

func TestMirrorMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMirror(t)

	rec := model.MemoryRecord{
		ID: "L1", Content: "uses sqlite", Scope: "project:bj", Tags: []string{"db"},
		Source: model.Source{Agent: "cli", Action: "explicit"}, CreatedAt: time.Now().UTC(),
	}
	id, err := m.AddMemory(ctx, rec)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	found, err := m.Search(ctx, "sqlite", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "L1", found[0].LocalID)
	assert.Equal(t, "project:bj", found[0].Record.Scope)
	assert.Equal(t, []string{"db"}, found[0].Record.Tags)

	ok, err := m.DeleteByLocalID(ctx, "L1")
	require.NoError(t, err)
	assert.True(t, ok)
	all, _ := m.GetAll(ctx)
	assert.Empty(t, all)
}

func TestMirrorSkipsTypedEntriesInMemoryViews(t *testing.T) {
	ctx := context.Background()
	m, b := newTestMirror(t)

	m.AddMemory(ctx, model.MemoryRecord{ID: "L1", Content: "summary of things", Scope: "global"})
	m.SaveSummary(ctx, "global", "summary of things", time.Now().Add(-time.Hour), time.Now(), 3)
	b.Append(RawEntry{Memory: "summary of things", Metadata: json.RawMessage(`{"type":"investigation"}`)})

	found, err := m.Search(ctx, "summary", 10)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	all, err := m.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLatestProfilePicksGreatestTimestamp(t *testing.T) {
	ctx := context.Background()
	m, b := newTestMirror(t)

	for _, ts := range []string{"2026-01-02T00:00:00.000Z", "2026-01-05T00:00:00.000Z", "2026-01-03T00:00:00.000Z"} {
		p := model.NewProfile(time.Now())
		p.Meta.LastUpdated = ts
		p.Identity.Name = ts
		_, err := m.SaveProfileSnapshot(ctx, p)
		require.NoError(t, err)
	}
	// corrupt snapshots are skipped rather than failing the read
	b.Append(RawEntry{Memory: "{oops", Metadata: json.RawMessage(`{"type":"profile-snapshot","timestamp":"2027-01-01T00:00:00.000Z"}`)})

	snap, err := m.GetLatestProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "2026-01-05T00:00:00.000Z", snap.Timestamp)
	assert.Equal(t, "2026-01-05T00:00:00.000Z", snap.Profile.Identity.Name)

	hist, err := m.GetProfileHistory(ctx, mustTime(t, "2026-01-03T00:00:00.000Z"), 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "2026-01-05T00:00:00.000Z", hist[0].Timestamp)

	hist, _ = m.GetProfileHistory(ctx, time.Time{}, 1)
	assert.Len(t, hist, 1)
}

func TestSnapshotStoredRaw(t *testing.T) {
	ctx := context.Background()
	m, b := newTestMirror(t)

	p := model.NewProfile(time.Now())
	p.Technical.Languages = []string{"Go", "TypeScript"}
	_, err := m.SaveProfileSnapshot(ctx, p)
	require.NoError(t, err)

	entries := b.Entries()
	require.Len(t, entries, 1)
	var stored model.UserProfile
	require.NoError(t, json.Unmarshal([]byte(entries[0].Memory), &stored))
	assert.Equal(t, p, &stored)
}

func TestLatestProfileNone(t *testing.T) {
	m, _ := newTestMirror(t)
	snap, err := m.GetLatestProfile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSummariesFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMirror(t)

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, scope := range []string{"global", "project:a", "global"} {
		m.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		_, err := m.SaveSummary(ctx, scope, "s", base, base.Add(time.Hour), i+1)
		require.NoError(t, err)
	}

	sums, err := m.GetSummaries(ctx, "global", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, 3, sums[0].MemoryCount)

	all, _ := m.GetSummaries(ctx, "", base.Add(time.Hour), 0)
	assert.Len(t, all, 2)

	latest, err := m.GetLatestSummary(ctx, "project:a")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 2, latest.MemoryCount)

	none, err := m.GetLatestSummary(ctx, "project:zzz")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMirrorPropagatesBackendErrors(t *testing.T) {
	m, b := newTestMirror(t)
	boom := errors.New("network down")
	b.Fail(boom)

	_, err := m.GetSummaries(context.Background(), "", time.Time{}, 0)
	assert.ErrorIs(t, err, boom)
	_, err = m.SaveProfileSnapshot(context.Background(), model.NewProfile(time.Now()))
	assert.ErrorIs(t, err, boom)
}

func TestSearchContext(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMirror(t)

	m.AddMemory(ctx, model.MemoryRecord{ID: "L1", Content: "golang notes", Scope: "global"})
	_, err := m.SaveSearchResult(ctx, "golang generics", "golang generics landed in 1.18")
	require.NoError(t, err)
	m.SaveSearchResult(ctx, "golang iterators", "golang range-over-func arrived in 1.23")

	lines, err := m.SearchContext(ctx, "golang", 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "golang iterators: golang range-over-func arrived in 1.23", lines[0])
}
