// Package profile maintains the local user profile document and reconciles
// it against the remote snapshot log by whole-document recency.
//
// Only one process is expected to write the profile files at a time; there
// is no cross-process locking.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rcliao/brain-jar/internal/jsonfile"
	"github.com/rcliao/brain-jar/internal/logger"
	"github.com/rcliao/brain-jar/internal/model"
	"github.com/rcliao/brain-jar/internal/remote"
)

// SyncAction is the outcome of a reconciliation run.
type SyncAction string

const (
	SyncSkipped SyncAction = "skipped"
	SyncPushed  SyncAction = "pushed"
	SyncPulled  SyncAction = "pulled"
)

// SyncResult reports what reconciliation did and the profile now on disk.
type SyncResult struct {
	Action  SyncAction         `json:"action"`
	Profile *model.UserProfile `json:"profile"`
	Reason  string             `json:"reason,omitempty"`
}

// Options configures a Manager.
type Options struct {
	ProfilePath    string
	InferencesPath string
	Mirror         *remote.Mirror
	RemoteTimeout  time.Duration
	Logger         *logger.Logger
	Now            func() time.Time
}

// Manager owns the profile and pending-inference files.
type Manager struct {
	profilePath    string
	inferencesPath string
	mirror         *remote.Mirror
	remoteTimeout  time.Duration
	log            *logger.Logger
	now            func() time.Time

	mu sync.Mutex
	// JSON of the snapshot last pushed to or pulled from the remote log
	lastPushed string
	seeded     bool
	// set while the on-disk profile is an untouched default created by this process
	fresh bool
}

// NewManager creates a manager. Nothing is read until first use.
func NewManager(opts Options) *Manager {
	m := &Manager{
		profilePath:    opts.ProfilePath,
		inferencesPath: opts.InferencesPath,
		mirror:         opts.Mirror,
		remoteTimeout:  opts.RemoteTimeout,
		log:            opts.Logger,
		now:            opts.Now,
	}
	if m.log == nil {
		m.log = logger.Nop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.remoteTimeout <= 0 {
		m.remoteTimeout = 5 * time.Second
	}
	return m
}

// Load returns the local profile, creating and persisting the default one
// when the file is missing or corrupt.
func (m *Manager) Load(ctx context.Context) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked()
}

func (m *Manager) loadLocked() (*model.UserProfile, error) {
	var p model.UserProfile
	found, err := jsonfile.Read(m.profilePath, &p)
	switch {
	case err != nil && errors.Is(err, jsonfile.ErrCorrupt):
		m.log.Warn("profile file corrupted, recreating default", "path", m.profilePath, "error", err)
	case err != nil:
		return nil, fmt.Errorf("load profile: %w", err)
	case found:
		p.Normalize()
		return &p, nil
	}

	def := model.NewProfile(m.now())
	// a fresh default is never pushed; it must not outrank a remote profile
	if err := m.writeLocked(def); err != nil {
		return nil, err
	}
	m.fresh = true
	return def, nil
}

func (m *Manager) writeLocked(p *model.UserProfile) error {
	if err := jsonfile.Write(m.profilePath, p); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Save stamps meta.lastUpdated, writes the file and, unless skipRemote is
// set, pushes a snapshot when the profile differs from the last one pushed.
// Remote failures are logged, never returned.
func (m *Manager) Save(ctx context.Context, p *model.UserProfile, skipRemote bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(ctx, p, skipRemote)
}

func (m *Manager) saveLocked(ctx context.Context, p *model.UserProfile, skipRemote bool) error {
	p.Normalize()
	stamp := m.now().UTC()
	// lastUpdated never moves backwards, even if the clock does
	if prev := p.LastUpdatedTime(); prev.After(stamp) {
		stamp = prev
	}
	p.Meta.LastUpdated = model.FormatISO(stamp)

	if err := m.writeLocked(p); err != nil {
		return err
	}
	m.fresh = false
	if !skipRemote {
		m.pushLocked(ctx, p)
	}
	return nil
}

// pushLocked appends a snapshot unless the remote already holds this exact document.
func (m *Manager) pushLocked(ctx context.Context, p *model.UserProfile) bool {
	if !m.mirror.Enabled() {
		return false
	}
	body, err := json.Marshal(p)
	if err != nil {
		m.log.Warn("encode profile for snapshot", "error", err)
		return false
	}

	rctx, cancel := context.WithTimeout(ctx, m.remoteTimeout)
	defer cancel()

	if !m.seeded {
		latest, err := m.mirror.GetLatestProfile(rctx)
		if err != nil {
			m.log.Warn("read latest profile snapshot", "error", err)
		} else {
			m.seeded = true
			if latest != nil {
				m.lastPushed = marshalString(latest.Profile)
			}
		}
	}
	if string(body) == m.lastPushed {
		return false
	}

	if _, err := m.mirror.SaveProfileSnapshot(rctx, p); err != nil {
		m.log.Warn("profile snapshot not pushed", "error", err)
		return false
	}
	m.lastPushed = string(body)
	return true
}

// Sync reconciles the local profile with the newest remote snapshot. The
// newer document wins whole; there is no field-level merge. A profile that
// was only just created from defaults always yields to a remote snapshot.
func (m *Manager) Sync(ctx context.Context) (*SyncResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	local, err := m.loadLocked()
	if err != nil {
		return nil, err
	}
	if !m.mirror.Enabled() {
		return &SyncResult{Action: SyncSkipped, Profile: local, Reason: "remote not configured"}, nil
	}

	rctx, cancel := context.WithTimeout(ctx, m.remoteTimeout)
	snap, err := m.mirror.GetLatestProfile(rctx)
	cancel()
	if err != nil {
		m.log.Warn("profile sync failed", "error", err)
		return &SyncResult{Action: SyncSkipped, Profile: local, Reason: err.Error()}, nil
	}

	if snap == nil {
		m.seeded = true
		m.pushLocked(ctx, local)
		return &SyncResult{Action: SyncPushed, Profile: local}, nil
	}

	if m.fresh || remoteNewer(snap.Timestamp, local.Meta.LastUpdated) {
		remoteProfile := snap.Profile
		remoteProfile.Normalize()
		// written verbatim: restamping would make the pulled copy look newer than its snapshot
		if err := m.writeLocked(remoteProfile); err != nil {
			return nil, err
		}
		m.seeded = true
		m.fresh = false
		m.lastPushed = marshalString(remoteProfile)
		return &SyncResult{Action: SyncPulled, Profile: remoteProfile}, nil
	}

	if !m.seeded {
		m.seeded = true
		m.lastPushed = marshalString(snap.Profile)
	}
	m.pushLocked(ctx, local)
	return &SyncResult{Action: SyncPushed, Profile: local}, nil
}

// remoteNewer compares ISO timestamps as instants, falling back to string
// order when either fails to parse.
func remoteNewer(remoteTS, localTS string) bool {
	r, rerr := model.ParseISO(remoteTS)
	l, lerr := model.ParseISO(localTS)
	if rerr != nil || lerr != nil {
		return remoteTS > localTS
	}
	return r.After(l)
}

// History returns remote snapshots newest first. It is empty without a remote.
func (m *Manager) History(ctx context.Context, since time.Time, limit int) ([]model.ProfileSnapshot, error) {
	if !m.mirror.Enabled() {
		return []model.ProfileSnapshot{}, nil
	}
	rctx, cancel := context.WithTimeout(ctx, m.remoteTimeout)
	defer cancel()
	return m.mirror.GetProfileHistory(rctx, since, limit)
}

// Get reads the field at path.
func (m *Manager) Get(ctx context.Context, path string) (model.Value, error) {
	f, err := ParseField(path)
	if err != nil {
		return model.Value{}, err
	}
	p, err := m.Load(ctx)
	if err != nil {
		return model.Value{}, err
	}
	return f.Read(p), nil
}

// Set writes v to the field at path and saves.
func (m *Manager) Set(ctx context.Context, path string, v model.Value) error {
	f, err := ParseField(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setLocked(ctx, f, v)
}

func (m *Manager) setLocked(ctx context.Context, f Field, v model.Value) error {
	p, err := m.loadLocked()
	if err != nil {
		return err
	}
	if err := f.Write(p, v); err != nil {
		return err
	}
	return m.saveLocked(ctx, p, false)
}

// AddToArray appends values to a list field, dropping duplicates, and saves.
func (m *Manager) AddToArray(ctx context.Context, path string, values ...string) error {
	f, err := ParseField(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addToArrayLocked(ctx, f, values)
}

func (m *Manager) addToArrayLocked(ctx context.Context, f Field, values []string) error {
	if !f.IsList() {
		return fmt.Errorf("%w: %s is not a list", ErrFieldType, f)
	}
	p, err := m.loadLocked()
	if err != nil {
		return err
	}
	merged := dedupe(append(f.Read(p).List, values...))
	if err := f.Write(p, model.ListValue(merged...)); err != nil {
		return err
	}
	return m.saveLocked(ctx, p, false)
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func marshalString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
