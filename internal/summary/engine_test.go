package summary

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/brain-jar/internal/config"
	"github.com/rcliao/brain-jar/internal/jsonfile"
	"github.com/rcliao/brain-jar/internal/logger"
	"github.com/rcliao/brain-jar/internal/model"
	"github.com/rcliao/brain-jar/internal/remote"
	"github.com/rcliao/brain-jar/internal/store"
)

type fixture struct {
	store     *store.SQLiteStore
	engine    *Engine
	backend   *remote.MemoryBackend
	statePath string
}

func newFixture(t *testing.T, auto bool, threshold int, seed *State) *fixture {
	t.Helper()
	dir := t.TempDir()
	s, err := store.NewSQLiteStore(filepath.Join(dir, "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	statePath := filepath.Join(dir, "summary-state.json")
	if seed != nil {
		require.NoError(t, jsonfile.Write(statePath, seed))
	}

	policy := config.Default(dir).Summary
	if threshold > 0 {
		policy.ActivityThreshold = threshold
	}
	backend := remote.NewMemoryBackend()
	e := NewEngine(Options{
		Store:         s,
		Mirror:        remote.NewMirror(backend, logger.Nop()),
		Policy:        policy,
		AutoSummarize: auto,
		StatePath:     statePath,
		RemoteTimeout: time.Second,
		Logger:        logger.Nop(),
	})
	return &fixture{store: s, engine: e, backend: backend, statePath: statePath}
}

// add stores a record and notifies the engine, as the memory service does.
func (f *fixture) add(t *testing.T, scope string, tags ...string) *model.ActivitySummary {
	t.Helper()
	ctx := context.Background()
	_, err := f.store.Add(ctx, store.AddParams{Content: "did something in " + scope, Scope: scope, Tags: tags})
	require.NoError(t, err)
	sum, err := f.engine.OnMemoryAdded(ctx, scope)
	require.NoError(t, err)
	return sum
}

func (f *fixture) readState(t *testing.T) State {
	t.Helper()
	var st State
	ok, err := jsonfile.Read(f.statePath, &st)
	require.NoError(t, err)
	require.True(t, ok)
	return st
}

func seedLast(scope string, at time.Time) *State {
	st := newState()
	st.LastSummaryTime[scope] = model.FormatISO(at)
	return st
}

func TestFirstSummaryThreshold(t *testing.T) {
	f := newFixture(t, false, 0, nil)
	for i := 0; i < 11; i++ {
		f.add(t, "project:fresh")
	}
	assert.False(t, f.engine.ShouldSummarize("project:fresh"))

	f.add(t, "project:fresh")
	assert.True(t, f.engine.ShouldSummarize("project:fresh"))
}

func TestConfigurableThreshold(t *testing.T) {
	f := newFixture(t, false, 5, nil)
	for i := 0; i < 4; i++ {
		f.add(t, "global")
	}
	assert.False(t, f.engine.ShouldSummarize("global"))
	f.add(t, "global")
	assert.True(t, f.engine.ShouldSummarize("global"))
}

func TestFloorSuppressesThrash(t *testing.T) {
	f := newFixture(t, true, 0, seedLast("project:x", time.Now().Add(-time.Hour)))
	for i := 0; i < 12; i++ {
		assert.Nil(t, f.add(t, "project:x"), "record %d triggered a summary inside the floor", i)
	}
	assert.False(t, f.engine.ShouldSummarize("project:x"))
	assert.Equal(t, 12, f.engine.ActivityCount("project:x"))
}

func TestThresholdAfterFloor(t *testing.T) {
	f := newFixture(t, false, 0, seedLast("project:x", time.Now().Add(-25*time.Hour)))
	for i := 0; i < 11; i++ {
		f.add(t, "project:x")
	}
	assert.False(t, f.engine.ShouldSummarize("project:x"))
	f.add(t, "project:x")
	assert.True(t, f.engine.ShouldSummarize("project:x"))
}

func TestCeilingOverridesThreshold(t *testing.T) {
	f := newFixture(t, false, 0, seedLast("project:x", time.Now().Add(-8*24*time.Hour)))
	assert.False(t, f.engine.ShouldSummarize("project:x"), "no activity yet")

	f.add(t, "project:x")
	assert.True(t, f.engine.ShouldSummarize("project:x"))
}

func TestCeilingAutoGenerates(t *testing.T) {
	f := newFixture(t, true, 0, seedLast("project:x", time.Now().Add(-8*24*time.Hour)))
	sum := f.add(t, "project:x")
	require.NotNil(t, sum)
	assert.Equal(t, 1, sum.MemoryCount)
	assert.Equal(t, 0, f.engine.ActivityCount("project:x"))
}

func TestScopesAreIndependent(t *testing.T) {
	f := newFixture(t, false, 0, nil)
	for i := 0; i < 12; i++ {
		f.add(t, "project:a")
	}
	f.add(t, "project:b")
	assert.True(t, f.engine.ShouldSummarize("project:a"))
	assert.False(t, f.engine.ShouldSummarize("project:b"))
	assert.Equal(t, 1, f.engine.ActivityCount("project:b"))
}

func TestEndToEndDemoScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, 0, nil)
	const scope = "project:demo"

	for i := 0; i < 7; i++ {
		f.add(t, scope)
	}
	assert.False(t, f.engine.ShouldSummarize(scope))
	for i := 0; i < 5; i++ {
		f.add(t, scope)
	}
	assert.True(t, f.engine.ShouldSummarize(scope))

	before := time.Now().UTC().Truncate(time.Millisecond)
	sum, err := f.engine.GenerateSummary(ctx, scope)
	after := time.Now().UTC()
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, 12, sum.MemoryCount)
	assert.Equal(t, scope, sum.Scope)
	assert.NotEmpty(t, sum.RemoteID)

	st := f.readState(t)
	assert.Equal(t, 0, st.ActivityCounts[scope])
	last, err := model.ParseISO(st.LastSummaryTime[scope])
	require.NoError(t, err)
	assert.False(t, last.Before(before), "lastSummaryTime %v before call start %v", last, before)
	assert.False(t, last.After(after), "lastSummaryTime %v after call end %v", last, after)
	assert.True(t, last.Equal(sum.PeriodEnd))
}

func TestGenerateWithNoRecordsKeepsCounters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, 0, nil)

	// count activity in a scope whose records live elsewhere
	_, err := f.engine.OnMemoryAdded(ctx, "project:ghost")
	require.NoError(t, err)

	sum, err := f.engine.GenerateSummary(ctx, "project:ghost")
	require.NoError(t, err)
	assert.Nil(t, sum)
	assert.Equal(t, 1, f.engine.ActivityCount("project:ghost"))
	_, ok := f.engine.LastSummaryTime("project:ghost")
	assert.False(t, ok)
}

func TestRemoteFailureDoesNotBlockReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, 0, nil)
	f.backend.Fail(assert.AnError)

	f.add(t, "global")
	sum, err := f.engine.TriggerSummary(ctx, "global")
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Empty(t, sum.RemoteID)
	assert.Equal(t, 0, f.engine.ActivityCount("global"))
	_, ok := f.engine.LastSummaryTime("global")
	assert.True(t, ok)
}

func TestSummaryMirroredRemotely(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, 0, nil)
	f.add(t, "global", "go")

	sum, err := f.engine.TriggerSummary(ctx, "global")
	require.NoError(t, err)

	latest, err := remote.NewMirror(f.backend, logger.Nop()).GetLatestSummary(ctx, "global")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, sum.Content, latest.Content)
	assert.Equal(t, 1, latest.MemoryCount)
}

func TestCorruptStateStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "summary-state.json")
	require.NoError(t, writeRaw(statePath, "{{{"))

	e := NewEngine(Options{Policy: config.Default(dir).Summary, StatePath: statePath})
	assert.Equal(t, 0, e.ActivityCount("global"))
}

func TestStatePersistsAcrossEngines(t *testing.T) {
	f := newFixture(t, false, 0, nil)
	for i := 0; i < 3; i++ {
		f.add(t, "global")
	}

	reopened := NewEngine(Options{Store: f.store, Policy: f.engine.policy, StatePath: f.statePath})
	assert.Equal(t, 3, reopened.ActivityCount("global"))
}

func TestConcurrentAddsSameScope(t *testing.T) {
	f := newFixture(t, false, 0, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.engine.OnMemoryAdded(context.Background(), "global")
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, f.engine.ActivityCount("global"))
	assert.Equal(t, 20, f.readState(t).ActivityCounts["global"])
}

func TestMaxLookbackCapsPeriod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, 0, seedLast("global", time.Now().Add(-200*24*time.Hour)))
	f.add(t, "global")

	sum, err := f.engine.GenerateSummary(ctx, "global")
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.WithinDuration(t, sum.PeriodEnd.Add(-90*24*time.Hour), sum.PeriodStart, time.Second)
}

func TestNextPeriodExcludesPreviousEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	s, err := store.NewSQLiteStore(filepath.Join(dir, "local.db"), store.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	policy := config.Default(dir).Summary
	policy.ActivityThreshold = 2
	e := NewEngine(Options{
		Store:         s,
		Policy:        policy,
		AutoSummarize: true,
		StatePath:     filepath.Join(dir, "summary-state.json"),
		RemoteTimeout: time.Second,
		Logger:        logger.Nop(),
		Now:           clock,
	})

	add := func() *model.ActivitySummary {
		_, err := s.Add(ctx, store.AddParams{Content: "work", Scope: "project:x"})
		require.NoError(t, err)
		sum, err := e.OnMemoryAdded(ctx, "project:x")
		require.NoError(t, err)
		return sum
	}

	assert.Nil(t, add())
	first := add()
	require.NotNil(t, first)
	assert.Equal(t, 2, first.MemoryCount)

	now = now.Add(8 * 24 * time.Hour)
	second := add()
	require.NotNil(t, second)
	assert.Equal(t, 1, second.MemoryCount)
	assert.True(t, second.PeriodStart.Equal(first.PeriodEnd))
}

func writeRaw(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
