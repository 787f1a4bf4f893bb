package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/brain-jar/internal/model"
)

// ExportAll returns every record, optionally filtered by scope, oldest first.
func (s *SQLiteStore) ExportAll(ctx context.Context, scope string) ([]model.MemoryRecord, error) {
	query := `SELECT ` + columns + ` FROM memories`
	args := []interface{}{}
	if scope != "" {
		query += ` WHERE scope = ?`
		args = append(args, scope)
	}
	query += ` ORDER BY created_at, rowid`
	return s.query(ctx, query, args...)
}

// Import stores records from an export, keeping their ids and timestamps.
// Records whose id already exists are skipped. It returns the number inserted.
func (s *SQLiteStore) Import(ctx context.Context, records []model.MemoryRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	imported := 0
	for _, m := range records {
		if m.ID == "" || strings.TrimSpace(m.Content) == "" {
			return imported, fmt.Errorf("import: record %q has no id or content", m.ID)
		}
		scope := m.Scope
		if scope == "" {
			scope = model.GlobalScope
		}
		tags := m.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return imported, err
		}
		agent := m.Source.Agent
		if agent == "" {
			agent = DefaultAgent
		}
		var action *string
		if m.Source.Action != "" {
			action = &m.Source.Action
		}
		updated := m.UpdatedAt
		if updated.IsZero() {
			updated = m.CreatedAt
		}

		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO memories (id, content, scope, tags, source_agent, source_action, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Content, scope, string(tagsJSON), agent, action,
			model.FormatISO(m.CreatedAt), model.FormatISO(updated))
		if err != nil {
			return imported, fmt.Errorf("import %s: %w", m.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			imported++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return imported, nil
}
