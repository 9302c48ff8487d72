package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

func (s *PostgresStore) CountDecks(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count decks: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) InsertDeck(ctx context.Context, deck Deck) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decks (id, slug, title, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, deck.ID, deck.Slug, deck.Title, deck.Description)
	if err != nil {
		return fmt.Errorf("insert deck: %w", err)
	}
	return nil
}

// InsertModel creates a model together with its fields and templates.
func (s *PostgresStore) InsertModel(ctx context.Context, model Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert model: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO models (id, name, primary_field_id)
		VALUES ($1, $2, NULLIF($3, ''))
	`, model.ID, model.Name, model.PrimaryFieldID); err != nil {
		return fmt.Errorf("insert model: %w", err)
	}

	for i, field := range model.Fields {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fields (id, model_id, name, position)
			VALUES ($1, $2, $3, $4)
		`, field.ID, model.ID, field.Name, i); err != nil {
			return fmt.Errorf("insert field %s: %w", field.ID, err)
		}
	}

	for _, template := range model.Templates {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO templates (id, model_id, name, front_side, back_side)
			VALUES ($1, $2, $3, $4, $5)
		`, template.ID, model.ID, template.Name, nullableJSON(template.FrontSide), nullableJSON(template.BackSide)); err != nil {
			return fmt.Errorf("insert template %s: %w", template.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert model: %w", err)
	}
	return nil
}

// InsertNote creates a note, one field value per entry of values (keyed by
// field id, value id first) and one flash card per template of the model.
func (s *PostgresStore) InsertNote(ctx context.Context, noteID, deckID, modelID string, values []FieldValue, cardIDs func(templateID string) string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert note: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO notes (id, deck_id, model_id)
		VALUES ($1, $2, $3)
	`, noteID, deckID, modelID); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}

	for _, value := range values {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO field_values (id, note_id, field_id, data, plain_text)
			VALUES ($1, $2, $3, $4, $5)
		`, value.ID, noteID, value.Field.ID, nullableJSON(value.Data), value.PlainText); err != nil {
			return fmt.Errorf("insert field value %s: %w", value.ID, err)
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM templates WHERE model_id=$1`, modelID)
	if err != nil {
		return fmt.Errorf("list templates for note: %w", err)
	}
	var templateIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan template id: %w", err)
		}
		templateIDs = append(templateIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate template ids: %w", err)
	}

	for _, templateID := range templateIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO flash_cards (id, note_id, template_id)
			VALUES ($1, $2, $3)
		`, cardIDs(templateID), noteID, templateID); err != nil {
			return fmt.Errorf("insert flash card: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert note: %w", err)
	}
	return nil
}

func nullableJSON(data json.RawMessage) any {
	if len(data) == 0 {
		return sql.NullString{}
	}
	return string(data)
}
