package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/brain-jar/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock overrides the clock used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db, dbPath: dbPath, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.Make().String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id            TEXT PRIMARY KEY,
		content       TEXT NOT NULL,
		scope         TEXT NOT NULL DEFAULT 'global',
		tags          TEXT NOT NULL DEFAULT '[]',
		source_agent  TEXT NOT NULL DEFAULT 'claude-code',
		source_action TEXT,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scope ON memories(scope);
	CREATE INDEX IF NOT EXISTS idx_created ON memories(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// DBPath returns the database file location.
func (s *SQLiteStore) DBPath() string { return s.dbPath }

func (s *SQLiteStore) Add(ctx context.Context, p AddParams) (*model.MemoryRecord, error) {
	if strings.TrimSpace(p.Content) == "" {
		return nil, fmt.Errorf("content is required")
	}
	if strings.TrimSpace(p.Scope) == "" {
		return nil, fmt.Errorf("scope is required")
	}

	// Truncate to the persisted precision so the returned record equals what a read yields.
	now := s.now().UTC().Truncate(time.Millisecond)
	ts := model.FormatISO(now)
	id := s.newID()

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	source := p.Source
	if source.Agent == "" {
		source.Agent = DefaultAgent
	}
	var action *string
	if source.Action != "" {
		action = &source.Action
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, content, scope, tags, source_agent, source_action, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Content, p.Scope, string(tagsJSON), source.Agent, action, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	return &model.MemoryRecord{
		ID:        id,
		Content:   p.Content,
		Scope:     p.Scope,
		Tags:      append([]string{}, tags...),
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.MemoryRecord, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if p.Scope != "" {
		where = append(where, "scope = ?")
		args = append(args, p.Scope)
	}
	for _, tag := range p.Tags {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(memories.tags) WHERE json_each.value = ?)")
		args = append(args, tag)
	}
	if !p.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, model.FormatISO(p.Since))
	}

	query := `SELECT ` + columns + ` FROM memories WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC, rowid DESC`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}
	return s.query(ctx, query, args...)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete memory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) GetByDateRange(ctx context.Context, scope string, start, end time.Time) ([]model.MemoryRecord, error) {
	return s.query(ctx,
		`SELECT `+columns+` FROM memories
		 WHERE scope = ? AND created_at >= ? AND created_at <= ?
		 ORDER BY created_at DESC, rowid DESC`,
		scope, model.FormatISO(start), model.FormatISO(end))
}

func (s *SQLiteStore) CountSince(ctx context.Context, scope string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE scope = ? AND created_at >= ?`,
		scope, model.FormatISO(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count memories: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) ActiveScopes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT scope FROM memories ORDER BY scope`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scopes := []string{}
	for rows.Next() {
		var sc string
		if err := rows.Scan(&sc); err != nil {
			return nil, err
		}
		scopes = append(scopes, sc)
	}
	return scopes, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const columns = `id, content, scope, tags, source_agent, source_action, created_at, updated_at`

func (s *SQLiteStore) query(ctx context.Context, query string, args ...interface{}) ([]model.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.MemoryRecord{}
	for rows.Next() {
		m, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (model.MemoryRecord, error) {
	var m model.MemoryRecord
	var tagsJSON string
	var action sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&m.ID, &m.Content, &m.Scope, &tagsJSON, &m.Source.Agent, &action, &createdAt, &updatedAt)
	if err != nil {
		return m, err
	}

	if action.Valid {
		m.Source.Action = action.String
	}
	if err := json.Unmarshal([]byte(tagsJSON), &m.Tags); err != nil {
		return m, fmt.Errorf("decode tags of %s: %w", m.ID, err)
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	if m.CreatedAt, err = model.ParseISO(createdAt); err != nil {
		return m, fmt.Errorf("parse created_at of %s: %w", m.ID, err)
	}
	if m.UpdatedAt, err = model.ParseISO(updatedAt); err != nil {
		return m, fmt.Errorf("parse updated_at of %s: %w", m.ID, err)
	}
	return m, nil
}
