package store

import (
	"context"
	"strings"

	"github.com/rcliao/brain-jar/internal/model"
)

// Search finds records whose content contains the query. Matching is
// case-sensitive: instr() is used instead of LIKE, which folds ASCII case.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]model.MemoryRecord, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}

	where := []string{"instr(content, ?) > 0"}
	args := []interface{}{p.Query}

	if p.Scope != "" {
		where = append(where, "scope = ?")
		args = append(args, p.Scope)
	}
	args = append(args, limit)

	return s.query(ctx,
		`SELECT `+columns+` FROM memories
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, args...)
}
