package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/brain-jar/internal/jsonfile"
	"github.com/rcliao/brain-jar/internal/logger"
	"github.com/rcliao/brain-jar/internal/model"
	"github.com/rcliao/brain-jar/internal/remote"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	mgr     *Manager
	backend *remote.MemoryBackend
	mirror  *remote.Mirror
	clock   *clock
	dir     string
}

func newFixture(t *testing.T, withRemote bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{clock: newClock(), dir: dir}
	if withRemote {
		f.backend = remote.NewMemoryBackend()
		f.mirror = remote.NewMirror(f.backend, logger.Nop())
	}
	f.mgr = NewManager(Options{
		ProfilePath:    filepath.Join(dir, "user-profile.json"),
		InferencesPath: filepath.Join(dir, "pending-inferences.json"),
		Mirror:         f.mirror,
		RemoteTimeout:  time.Second,
		Logger:         logger.Nop(),
		Now:            f.clock.Now,
	})
	return f
}

func (f *fixture) readProfile(t *testing.T) model.UserProfile {
	t.Helper()
	var p model.UserProfile
	ok, err := jsonfile.Read(filepath.Join(f.dir, "user-profile.json"), &p)
	require.NoError(t, err)
	require.True(t, ok)
	return p
}

// pushRemote appends a snapshot of a profile last updated at ts.
func (f *fixture) pushRemote(t *testing.T, name string, ts time.Time) {
	t.Helper()
	p := model.NewProfile(ts)
	p.Identity.Name = name
	_, err := f.mirror.SaveProfileSnapshot(context.Background(), p)
	require.NoError(t, err)
}

func TestLoadCreatesDefault(t *testing.T) {
	f := newFixture(t, false)
	p, err := f.mgr.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.ProfileVersion, p.Version)
	assert.Equal(t, "adaptive", p.WorkingStyle.Verbosity)
	assert.Equal(t, []string{}, p.Technical.Languages)
	assert.Equal(t, model.FormatISO(f.clock.Now()), p.Meta.LastUpdated)

	onDisk := f.readProfile(t)
	assert.Equal(t, p.Meta.CreatedAt, onDisk.Meta.CreatedAt)
}

func TestLoadRecreatesCorruptFile(t *testing.T) {
	f := newFixture(t, false)
	path := filepath.Join(f.dir, "user-profile.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	p, err := f.mgr.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "adaptive", p.WorkingStyle.LearningPace)
	f.readProfile(t)
}

func TestLoadFillsMissingSections(t *testing.T) {
	f := newFixture(t, false)
	path := filepath.Join(f.dir, "user-profile.json")
	legacy := `{"version":"1.0.0","identity":{"name":"Sam"},"meta":{"lastUpdated":"2026-01-01T00:00:00.000Z"}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	p, err := f.mgr.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Sam", p.Identity.Name)
	require.NotNil(t, p.Personal)
	require.NotNil(t, p.Meta.OnboardingProgress)
	assert.Equal(t, []string{}, p.Personal.Goals)
}

func TestSetPushesSnapshot(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.mgr.Set(ctx, "identity.name", model.StringValue("Sam")))
	assert.Equal(t, 1, f.backend.AddCount())

	snap, err := f.mirror.GetLatestProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "Sam", snap.Profile.Identity.Name)
	assert.Equal(t, f.readProfile(t).Meta.LastUpdated, snap.Timestamp)
}

func TestSaveSkipRemote(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p, err := f.mgr.Load(ctx)
	require.NoError(t, err)

	p.Identity.Role = "Developer"
	require.NoError(t, f.mgr.Save(ctx, p, true))
	assert.Equal(t, 0, f.backend.AddCount())
	assert.Equal(t, "Developer", f.readProfile(t).Identity.Role)
}

func TestRemoteFailureDoesNotFailSave(t *testing.T) {
	f := newFixture(t, true)
	f.backend.Fail(errors.New("unreachable"))

	require.NoError(t, f.mgr.Set(context.Background(), "identity.name", model.StringValue("Sam")))
	assert.Equal(t, "Sam", f.readProfile(t).Identity.Name)
}

func TestLastUpdatedNeverMovesBackwards(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.mgr.Set(ctx, "identity.name", model.StringValue("Sam")))
	first := f.readProfile(t).Meta.LastUpdated

	f.clock.Advance(-time.Hour)
	require.NoError(t, f.mgr.Set(ctx, "identity.role", model.StringValue("Founder")))
	assert.Equal(t, first, f.readProfile(t).Meta.LastUpdated)
}

func TestSyncPullsNewerRemote(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	p, err := f.mgr.Load(ctx)
	require.NoError(t, err)
	p.Identity.Name = "Local"
	require.NoError(t, f.mgr.Save(ctx, p, true))

	remoteTS := f.clock.Now().Add(time.Hour)
	f.pushRemote(t, "Remote", remoteTS)

	res, err := f.mgr.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncPulled, res.Action)

	onDisk := f.readProfile(t)
	assert.Equal(t, "Remote", onDisk.Identity.Name)
	assert.Equal(t, model.FormatISO(remoteTS), onDisk.Meta.LastUpdated)
	assert.Equal(t, 1, f.backend.AddCount(), "a pull must not push")
}

func TestSyncPushesNewerLocal(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.pushRemote(t, "Remote", f.clock.Now().Add(-time.Hour))

	p, err := f.mgr.Load(ctx)
	require.NoError(t, err)
	p.Identity.Name = "Local"
	require.NoError(t, f.mgr.Save(ctx, p, true))

	res, err := f.mgr.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncPushed, res.Action)
	assert.Equal(t, "Local", f.readProfile(t).Identity.Name)
	assert.Equal(t, 2, f.backend.AddCount())

	snap, err := f.mirror.GetLatestProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Local", snap.Profile.Identity.Name)
}

func TestSyncDoesNotRepushUnchanged(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	require.NoError(t, f.mgr.Set(ctx, "identity.name", model.StringValue("Sam")))
	require.Equal(t, 1, f.backend.AddCount())

	for i := 0; i < 2; i++ {
		res, err := f.mgr.Sync(ctx)
		require.NoError(t, err)
		assert.Equal(t, SyncPushed, res.Action)
	}
	assert.Equal(t, 1, f.backend.AddCount())
}

func TestSyncUnchangedAcrossRestart(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	require.NoError(t, f.mgr.Set(ctx, "identity.name", model.StringValue("Sam")))

	restarted := NewManager(Options{
		ProfilePath:    filepath.Join(f.dir, "user-profile.json"),
		InferencesPath: filepath.Join(f.dir, "pending-inferences.json"),
		Mirror:         f.mirror,
		Logger:         logger.Nop(),
		Now:            f.clock.Now,
	})
	_, err := restarted.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.backend.AddCount())
}

func TestSyncFreshDefaultYieldsToRemote(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.pushRemote(t, "Remote", f.clock.Now().Add(-24*time.Hour))

	res, err := f.mgr.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncPulled, res.Action)
	assert.Equal(t, "Remote", f.readProfile(t).Identity.Name)
	assert.Equal(t, 1, f.backend.AddCount())
}

func TestSyncWithoutSnapshotPushes(t *testing.T) {
	f := newFixture(t, true)
	res, err := f.mgr.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncPushed, res.Action)
	assert.Equal(t, 1, f.backend.AddCount())
}

func TestSyncRemoteErrorSkips(t *testing.T) {
	f := newFixture(t, true)
	f.backend.Fail(errors.New("timeout"))

	res, err := f.mgr.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncSkipped, res.Action)
	assert.Contains(t, res.Reason, "timeout")
	require.NotNil(t, res.Profile)
}

func TestSyncWithoutRemote(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.mgr.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncSkipped, res.Action)

	hist, err := f.mgr.History(context.Background(), time.Time{}, 10)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestHistoryNewestFirst(t *testing.T) {
	f := newFixture(t, true)
	base := f.clock.Now()
	f.pushRemote(t, "one", base.Add(-3*time.Hour))
	f.pushRemote(t, "three", base.Add(-time.Hour))
	f.pushRemote(t, "two", base.Add(-2*time.Hour))

	hist, err := f.mgr.History(context.Background(), time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "three", hist[0].Profile.Identity.Name)
	assert.Equal(t, "two", hist[1].Profile.Identity.Name)
}

func TestSetValidation(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	err := f.mgr.Set(ctx, "identity.shoeSize", model.StringValue("9"))
	assert.ErrorIs(t, err, ErrUnknownField)

	err = f.mgr.Set(ctx, "workingStyle.verbosity", model.StringValue("chatty"))
	assert.ErrorIs(t, err, ErrFieldType)

	err = f.mgr.Set(ctx, "identity.name", model.ListValue("a", "b"))
	assert.ErrorIs(t, err, ErrFieldType)

	require.NoError(t, f.mgr.Set(ctx, "workingStyle.verbosity", model.StringValue("concise")))
	v, err := f.mgr.Get(ctx, "workingStyle.verbosity")
	require.NoError(t, err)
	assert.Equal(t, "concise", v.Scalar)
}

func TestAddToArrayDedupes(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.mgr.AddToArray(ctx, "technical.languages", "Go", "Rust"))
	require.NoError(t, f.mgr.AddToArray(ctx, "technical.languages", "Rust", "Zig"))

	v, err := f.mgr.Get(ctx, "technical.languages")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Rust", "Zig"}, v.List)

	err = f.mgr.AddToArray(ctx, "identity.name", "Sam")
	assert.ErrorIs(t, err, ErrFieldType)
}
