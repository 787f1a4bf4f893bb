package store

import (
	"context"
	"fmt"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string         `json:"db_path"`
	DBSizeBytes int64          `json:"db_size_bytes"`
	Total       int            `json:"total"`
	ByScope     map[string]int `json:"by_scope"`
	ByTag       map[string]int `json:"by_tag"`
	DateRange   *DateRange     `json:"date_range,omitempty"`
}

// DateRange spans the oldest and newest record, as YYYY-MM-DD.
type DateRange struct {
	Oldest string `json:"oldest"`
	Newest string `json:"newest"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.dbPath, ByScope: map[string]int{}, ByTag: map[string]int{}}

	if info, err := os.Stat(s.dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&st.Total); err != nil {
		return nil, fmt.Errorf("count memories: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT scope, COUNT(*) FROM memories GROUP BY scope`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var scope string
		var n int
		if err := rows.Scan(&scope, &n); err != nil {
			rows.Close()
			return nil, err
		}
		st.ByScope[scope] = n
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx,
		`SELECT j.value, COUNT(*) FROM memories m, json_each(m.tags) j GROUP BY j.value`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var tag string
		var n int
		if err := rows.Scan(&tag, &n); err != nil {
			rows.Close()
			return nil, err
		}
		st.ByTag[tag] = n
	}
	rows.Close()

	if st.Total > 0 {
		var oldest, newest string
		err := s.db.QueryRowContext(ctx, `SELECT MIN(created_at), MAX(created_at) FROM memories`).Scan(&oldest, &newest)
		if err != nil {
			return nil, err
		}
		st.DateRange = &DateRange{Oldest: datePart(oldest), Newest: datePart(newest)}
	}

	return st, nil
}

func datePart(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
