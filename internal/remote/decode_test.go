package remote

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/brain-jar/internal/model"
)

func TestDecodePlainMemory(t *testing.T) {
	e, err := Decode(RawEntry{
		ID:        "r1",
		Memory:    "likes Go",
		Metadata:  json.RawMessage(`{"scope":"project:x","tags":["lang"],"source_agent":"cli","local_id":"L1"}`),
		CreatedAt: "2026-01-02T03:04:05.000Z",
	})
	require.NoError(t, err)
	assert.Equal(t, KindMemory, e.Kind)
	require.NotNil(t, e.Memory)
	assert.Equal(t, "likes Go", e.Memory.Content)
	assert.Equal(t, "project:x", e.Memory.Scope)
	assert.Equal(t, []string{"lang"}, e.Memory.Tags)
	assert.Equal(t, "cli", e.Memory.Source.Agent)
	assert.Equal(t, "L1", e.LocalID)
	assert.Equal(t, "2026-01-02", e.Memory.CreatedAt.Format("2006-01-02"))
}

func TestDecodeMemoryDefaults(t *testing.T) {
	e, err := Decode(RawEntry{ID: "r2", Memory: "no metadata"})
	require.NoError(t, err)
	assert.Equal(t, KindMemory, e.Kind)
	assert.Equal(t, model.GlobalScope, e.Memory.Scope)
	assert.Equal(t, []string{}, e.Memory.Tags)
	assert.Equal(t, "unknown", e.Memory.Source.Agent)
}

func TestDecodeProfileSnapshot(t *testing.T) {
	p := model.NewProfile(mustTime(t, "2026-01-01T00:00:00.000Z"))
	p.Identity.Name = "Sam"
	body, _ := json.Marshal(p)

	e, err := Decode(RawEntry{
		ID:       "s1",
		Memory:   string(body),
		Metadata: json.RawMessage(`{"type":"profile-snapshot","timestamp":"2026-01-01T00:00:00.000Z","version":"1.0.0","scope":"global"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, KindProfileSnapshot, e.Kind)
	assert.Equal(t, "Sam", e.Snapshot.Profile.Identity.Name)
	assert.Equal(t, "2026-01-01T00:00:00.000Z", e.Snapshot.Timestamp)
	assert.Equal(t, "s1", e.Snapshot.RemoteID)
}

func TestDecodeSnapshotTimestampFallback(t *testing.T) {
	e, err := Decode(RawEntry{
		ID:        "s2",
		Memory:    `{"version":"1.0.0"}`,
		Metadata:  json.RawMessage(`{"type":"profile-snapshot"}`),
		CreatedAt: "2026-02-01T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01T00:00:00Z", e.Snapshot.Timestamp)
	assert.NotNil(t, e.Snapshot.Profile.Personal)
}

func TestDecodeMalformedSnapshot(t *testing.T) {
	_, err := Decode(RawEntry{
		ID:       "bad",
		Memory:   "not json",
		Metadata: json.RawMessage(`{"type":"profile-snapshot"}`),
	})
	assert.Error(t, err)
}

func TestDecodeActivitySummary(t *testing.T) {
	e, err := Decode(RawEntry{
		ID:     "a1",
		Memory: "Activity summary for global",
		Metadata: json.RawMessage(`{"type":"activity-summary","scope":"global",
			"period_start":"2026-01-01T00:00:00.000Z","period_end":"2026-01-08T00:00:00.000Z",
			"memory_count":12,"timestamp":"2026-01-08T00:00:00.000Z"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, KindActivitySummary, e.Kind)
	assert.Equal(t, 12, e.Summary.MemoryCount)
	assert.Equal(t, "global", e.Summary.Scope)
	assert.True(t, e.Summary.PeriodEnd.After(e.Summary.PeriodStart))
	assert.Equal(t, "a1", e.Summary.RemoteID)
}

func TestDecodeUnrecognized(t *testing.T) {
	e, err := Decode(RawEntry{ID: "u1", Memory: "x", Metadata: json.RawMessage(`{"type":"investigation"}`)})
	require.NoError(t, err)
	assert.Equal(t, KindUnrecognized, e.Kind)
	assert.Equal(t, "investigation", e.Type)
	assert.Nil(t, e.Memory)
	assert.Equal(t, "unrecognized", e.Kind.String())
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := model.ParseISO(s)
	require.NoError(t, err)
	return v
}

func TestDecodeSearchResult(t *testing.T) {
	e, err := Decode(RawEntry{
		ID:       "q1",
		Memory:   "Go 1.25 adds a new GC",
		Metadata: json.RawMessage(`{"type":"search-result","query":"go gc","timestamp":"2026-03-01T00:00:00.000Z"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, KindSearchResult, e.Kind)
	assert.Equal(t, "go gc", e.Search.Query)
	assert.Equal(t, "Go 1.25 adds a new GC", e.Search.Summary)
}
