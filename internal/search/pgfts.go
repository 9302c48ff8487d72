package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS searches field values with PostgreSQL full-text search. It backs the
// service whenever Meilisearch is missing or unhealthy.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; without Postgres the API is down anyway.
func (p *PgFTS) Healthy() bool {
	return true
}

// buildQuery returns the filtered WHERE clause over field_values and its
// arguments. $1 is always the search text.
func buildQuery(q Query) (string, []any) {
	where := []string{"fv.fts @@ plainto_tsquery('english', $1)"}
	args := []any{q.Text}
	filters := []struct {
		column string
		value  string
	}{
		{"fv.note_id", q.NoteID},
		{"n.model_id", q.ModelID},
		{"n.deck_id", q.DeckID},
	}
	for _, filter := range filters {
		if filter.value == "" {
			continue
		}
		args = append(args, filter.value)
		where = append(where, fmt.Sprintf("%s = $%d", filter.column, len(args)))
	}
	return strings.Join(where, " AND "), args
}

// Search ranks matching field values with ts_rank and highlights them with
// ts_headline.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	where, args := buildQuery(q)

	from := `
		FROM field_values fv
		JOIN notes n ON n.id = fv.note_id
		JOIN fields f ON f.id = fv.field_id
		WHERE ` + where

	var total int
	if err := p.db.QueryRowContext(ctx, "SELECT count(*)"+from, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT fv.id, fv.note_id, fv.field_id, n.model_id, n.deck_id, f.name,
			ts_headline('english', fv.plain_text, plainto_tsquery('english', $1),
				'MaxFragments=1,MaxWords=30,StartSel=<mark>,StopSel=</mark>') AS snippet
		%s
		ORDER BY ts_rank(fv.fts, plainto_tsquery('english', $1)) DESC, fv.id ASC
		LIMIT %d OFFSET %d`, from, normalizeLimit(q.Limit), offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.NoteID, &r.FieldID, &r.ModelID, &r.DeckID, &r.FieldName, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every non-empty field value for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]FieldValueRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT fv.id, fv.note_id, fv.field_id, n.model_id, n.deck_id, f.name, fv.plain_text
		FROM field_values fv
		JOIN notes n ON n.id = fv.note_id
		JOIN fields f ON f.id = fv.field_id
		WHERE fv.plain_text <> ''
	`)
	if err != nil {
		return nil, fmt.Errorf("load field values: %w", err)
	}
	defer rows.Close()

	records := make([]FieldValueRecord, 0)
	for rows.Next() {
		var r FieldValueRecord
		if err := rows.Scan(&r.ID, &r.NoteID, &r.FieldID, &r.ModelID, &r.DeckID, &r.FieldName, &r.Text); err != nil {
			return nil, fmt.Errorf("scan field value: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate field values: %w", err)
	}
	return records, nil
}
