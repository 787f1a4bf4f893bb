// Package summary decides when accumulated activity in a scope should be
// compacted into an activity summary, and generates it.
package summary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rcliao/brain-jar/internal/config"
	"github.com/rcliao/brain-jar/internal/jsonfile"
	"github.com/rcliao/brain-jar/internal/logger"
	"github.com/rcliao/brain-jar/internal/model"
	"github.com/rcliao/brain-jar/internal/remote"
)

// RangeReader is the slice of the record store the engine reads from.
type RangeReader interface {
	GetByDateRange(ctx context.Context, scope string, start, end time.Time) ([]model.MemoryRecord, error)
}

// Options configures an Engine.
type Options struct {
	Store  RangeReader
	Mirror *remote.Mirror // nil disables remote publishing
	Policy config.SummaryConfig
	// AutoSummarize controls whether OnMemoryAdded generates summaries.
	// Activity is counted either way.
	AutoSummarize bool
	StatePath     string
	RemoteTimeout time.Duration
	Logger        *logger.Logger
	Now           func() time.Time
}

// Engine tracks activity per scope and generates summaries. Updates for one
// scope are serialized; different scopes proceed independently.
type Engine struct {
	store         RangeReader
	mirror        *remote.Mirror
	policy        config.SummaryConfig
	auto          bool
	statePath     string
	remoteTimeout time.Duration
	log           *logger.Logger
	now           func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	stateMu sync.Mutex
	state   *State
}

// NewEngine creates an engine. State is loaded on first use.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		store:         opts.Store,
		mirror:        opts.Mirror,
		policy:        opts.Policy,
		auto:          opts.AutoSummarize,
		statePath:     opts.StatePath,
		remoteTimeout: opts.RemoteTimeout,
		log:           opts.Logger,
		now:           opts.Now,
		locks:         map[string]*sync.Mutex{},
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.remoteTimeout <= 0 {
		e.remoteTimeout = 5 * time.Second
	}
	return e
}

func (e *Engine) scopeLock(scope string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	mu, ok := e.locks[scope]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[scope] = mu
	}
	return mu
}

// loadLocked reads the state file once. A missing or unreadable file yields
// empty state. Caller holds stateMu.
func (e *Engine) loadLocked() *State {
	if e.state != nil {
		return e.state
	}
	st := newState()
	if _, err := jsonfile.Read(e.statePath, st); err != nil {
		e.log.Warn("summary state unreadable, starting empty", "path", e.statePath, "error", err)
		st = newState()
	}
	if st.ActivityCounts == nil {
		st.ActivityCounts = map[string]int{}
	}
	if st.LastSummaryTime == nil {
		st.LastSummaryTime = map[string]string{}
	}
	e.state = st
	return st
}

func (e *Engine) persistLocked() error {
	if err := jsonfile.Write(e.statePath, e.state); err != nil {
		return fmt.Errorf("persist summary state: %w", err)
	}
	return nil
}

// OnMemoryAdded counts one new record in scope and, when the trigger policy
// fires, generates a summary. The returned summary is nil when none was made.
func (e *Engine) OnMemoryAdded(ctx context.Context, scope string) (*model.ActivitySummary, error) {
	mu := e.scopeLock(scope)
	mu.Lock()
	defer mu.Unlock()

	e.stateMu.Lock()
	st := e.loadLocked()
	st.ActivityCounts[scope]++
	err := e.persistLocked()
	e.stateMu.Unlock()
	if err != nil {
		return nil, err
	}

	if !e.auto || !e.ShouldSummarize(scope) {
		return nil, nil
	}
	return e.generateLocked(ctx, scope)
}

// ShouldSummarize applies the trigger policy to the scope's current state.
//
// Without a previous summary only the activity threshold counts. Otherwise a
// summary is due when MaxInterval has passed with any activity, or when the
// threshold is reached and at least MinInterval has passed.
func (e *Engine) ShouldSummarize(scope string) bool {
	e.stateMu.Lock()
	st := e.loadLocked()
	count := st.ActivityCounts[scope]
	last, hasLast := st.lastSummary(scope)
	e.stateMu.Unlock()

	if !hasLast {
		return count >= e.policy.ActivityThreshold
	}
	elapsed := e.now().Sub(last)
	if elapsed >= e.policy.MaxInterval && count > 0 {
		return true
	}
	return count >= e.policy.ActivityThreshold && elapsed >= e.policy.MinInterval
}

// GenerateSummary summarizes the scope's records since its last summary.
// It returns nil without touching state when the period holds no records.
func (e *Engine) GenerateSummary(ctx context.Context, scope string) (*model.ActivitySummary, error) {
	mu := e.scopeLock(scope)
	mu.Lock()
	defer mu.Unlock()
	return e.generateLocked(ctx, scope)
}

// TriggerSummary is the manual entry point; it ignores the trigger policy.
func (e *Engine) TriggerSummary(ctx context.Context, scope string) (*model.ActivitySummary, error) {
	return e.GenerateSummary(ctx, scope)
}

func (e *Engine) generateLocked(ctx context.Context, scope string) (*model.ActivitySummary, error) {
	periodEnd := e.now().UTC().Truncate(time.Millisecond)

	e.stateMu.Lock()
	last, hasLast := e.loadLocked().lastSummary(scope)
	e.stateMu.Unlock()

	periodStart := periodEnd.Add(-e.policy.DefaultLookback)
	// the previous period already covered its end millisecond
	from := periodStart
	if hasLast {
		periodStart = last
		from = last.Add(time.Millisecond)
	}
	if e.policy.MaxLookback > 0 {
		if floor := periodEnd.Add(-e.policy.MaxLookback); periodStart.Before(floor) {
			periodStart = floor
			from = floor
		}
	}

	records, err := e.store.GetByDateRange(ctx, scope, from, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("load records for summary: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	sum := &model.ActivitySummary{
		Content:     RenderContent(scope, records, periodStart, periodEnd),
		Scope:       scope,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		MemoryCount: len(records),
		Timestamp:   periodEnd,
	}

	if e.mirror.Enabled() {
		rctx, cancel := context.WithTimeout(ctx, e.remoteTimeout)
		id, err := e.mirror.SaveSummary(rctx, scope, sum.Content, periodStart, periodEnd, sum.MemoryCount)
		cancel()
		if err != nil && !errors.Is(err, remote.ErrDisabled) {
			e.log.Warn("summary not mirrored", "scope", scope, "error", err)
		}
		sum.RemoteID = id
	}

	e.stateMu.Lock()
	st := e.loadLocked()
	st.ActivityCounts[scope] = 0
	st.LastSummaryTime[scope] = model.FormatISO(periodEnd)
	err = e.persistLocked()
	e.stateMu.Unlock()
	if err != nil {
		return sum, err
	}

	e.log.Info("generated activity summary", "scope", scope, "memories", sum.MemoryCount)
	return sum, nil
}

// ActivityCount returns the number of records added to scope since its last summary.
func (e *Engine) ActivityCount(scope string) int {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.loadLocked().ActivityCounts[scope]
}

// LastSummaryTime returns when scope was last summarized.
func (e *Engine) LastSummaryTime(scope string) (time.Time, bool) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.loadLocked().lastSummary(scope)
}

// Snapshot returns a copy of the whole trigger state.
func (e *Engine) Snapshot() State {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.loadLocked().clone()
}
