package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) GetDeck(ctx context.Context, deckID string) (Deck, error) {
	var deck Deck
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slug, title, description, created_at, updated_at
		FROM decks
		WHERE id=$1
	`, deckID).Scan(&deck.ID, &deck.Slug, &deck.Title, &deck.Description, &deck.CreatedAt, &deck.UpdatedAt)
	if err != nil {
		return Deck{}, err
	}
	return deck, nil
}

// GetModel loads a model with its fields and templates.
func (s *PostgresStore) GetModel(ctx context.Context, modelID string) (Model, error) {
	var model Model
	var primary sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, primary_field_id, updated_at
		FROM models
		WHERE id=$1
	`, modelID).Scan(&model.ID, &model.Name, &primary, &model.UpdatedAt)
	if err != nil {
		return Model{}, err
	}
	model.PrimaryFieldID = primary.String

	fields, err := s.listFields(ctx, modelID)
	if err != nil {
		return Model{}, err
	}
	model.Fields = fields

	templates, err := s.listTemplates(ctx, modelID)
	if err != nil {
		return Model{}, err
	}
	model.Templates = templates
	return model, nil
}

func (s *PostgresStore) listFields(ctx context.Context, modelID string) ([]Field, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model_id, name, position
		FROM fields
		WHERE model_id=$1
		ORDER BY position ASC, id ASC
	`, modelID)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	defer rows.Close()

	items := make([]Field, 0)
	for rows.Next() {
		var item Field
		if err := rows.Scan(&item.ID, &item.ModelID, &item.Name, &item.Position); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fields: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) listTemplates(ctx context.Context, modelID string) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model_id, name, front_side, back_side, updated_at
		FROM templates
		WHERE model_id=$1
		ORDER BY created_at ASC, id ASC
	`, modelID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	items := make([]Template, 0)
	for rows.Next() {
		item, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (Template, error) {
	var item Template
	var front, back []byte
	if err := row.Scan(&item.ID, &item.ModelID, &item.Name, &front, &back, &item.UpdatedAt); err != nil {
		return Template{}, fmt.Errorf("scan template: %w", err)
	}
	item.FrontSide = rawOrNil(front)
	item.BackSide = rawOrNil(back)
	return item, nil
}

func (s *PostgresStore) GetTemplate(ctx context.Context, templateID string) (Template, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, model_id, name, front_side, back_side, updated_at
		FROM templates
		WHERE id=$1
	`, templateID)
	item, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, sql.ErrNoRows
	}
	return item, err
}

// UpdateTemplateSide replaces one side of a template and returns the row.
func (s *PostgresStore) UpdateTemplateSide(ctx context.Context, templateID string, side Side, data json.RawMessage) (Template, error) {
	query := fmt.Sprintf(`
		UPDATE templates
		SET %s=$2, updated_at=NOW()
		WHERE id=$1
		RETURNING id, model_id, name, front_side, back_side, updated_at
	`, side.column())
	item, err := scanTemplate(s.db.QueryRowContext(ctx, query, templateID, string(data)))
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, sql.ErrNoRows
	}
	if err != nil {
		return Template{}, fmt.Errorf("update template %s side: %w", side, err)
	}
	return item, nil
}

// GetNote loads a note with its deck, model, field values and flash cards.
func (s *PostgresStore) GetNote(ctx context.Context, noteID string) (Note, error) {
	var note Note
	var deckID, modelID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, deck_id, model_id, created_at, updated_at
		FROM notes
		WHERE id=$1
	`, noteID).Scan(&note.ID, &deckID, &modelID, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return Note{}, err
	}

	if note.Deck, err = s.GetDeck(ctx, deckID); err != nil {
		return Note{}, fmt.Errorf("load deck: %w", err)
	}
	if note.Model, err = s.GetModel(ctx, modelID); err != nil {
		return Note{}, fmt.Errorf("load model: %w", err)
	}
	if note.Values, err = s.listFieldValues(ctx, noteID); err != nil {
		return Note{}, err
	}
	if note.FlashCards, err = s.listFlashCards(ctx, noteID); err != nil {
		return Note{}, err
	}
	return note, nil
}

const fieldValueColumns = `
	fv.id, fv.note_id, n.model_id, n.deck_id,
	f.id, f.model_id, f.name, f.position,
	fv.data, fv.plain_text, fv.updated_at
`

func scanFieldValue(row scanner) (FieldValue, error) {
	var item FieldValue
	var data []byte
	err := row.Scan(
		&item.ID, &item.NoteID, &item.ModelID, &item.DeckID,
		&item.Field.ID, &item.Field.ModelID, &item.Field.Name, &item.Field.Position,
		&data, &item.PlainText, &item.UpdatedAt,
	)
	if err != nil {
		return FieldValue{}, err
	}
	item.Data = rawOrNil(data)
	return item, nil
}

func (s *PostgresStore) listFieldValues(ctx context.Context, noteID string) ([]FieldValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+fieldValueColumns+`
		FROM field_values fv
		JOIN notes n ON n.id = fv.note_id
		JOIN fields f ON f.id = fv.field_id
		WHERE fv.note_id=$1
		ORDER BY f.position ASC, f.id ASC
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("list field values: %w", err)
	}
	defer rows.Close()

	items := make([]FieldValue, 0)
	for rows.Next() {
		item, err := scanFieldValue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan field value: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate field values: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetFieldValue(ctx context.Context, fieldValueID string) (FieldValue, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+fieldValueColumns+`
		FROM field_values fv
		JOIN notes n ON n.id = fv.note_id
		JOIN fields f ON f.id = fv.field_id
		WHERE fv.id=$1
	`, fieldValueID)
	return scanFieldValue(row)
}

// UpdateFieldValue stores data and its plain text projection.
func (s *PostgresStore) UpdateFieldValue(ctx context.Context, fieldValueID string, data json.RawMessage, plainText string) (FieldValue, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE field_values
		SET data=$2, plain_text=$3, updated_at=NOW()
		WHERE id=$1
	`, fieldValueID, string(data), plainText)
	if err != nil {
		return FieldValue{}, fmt.Errorf("update field value: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return FieldValue{}, sql.ErrNoRows
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE notes SET updated_at=NOW()
		WHERE id=(SELECT note_id FROM field_values WHERE id=$1)
	`, fieldValueID); err != nil {
		return FieldValue{}, fmt.Errorf("touch note: %w", err)
	}
	return s.GetFieldValue(ctx, fieldValueID)
}

func (s *PostgresStore) listFlashCards(ctx context.Context, noteID string) ([]FlashCard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fc.id, fc.note_id, fc.active, fc.state, fc.lapses, fc.due,
			t.id, t.model_id, t.name, t.front_side, t.back_side, t.updated_at
		FROM flash_cards fc
		JOIN templates t ON t.id = fc.template_id
		WHERE fc.note_id=$1
		ORDER BY t.created_at ASC, t.id ASC
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("list flash cards: %w", err)
	}
	defer rows.Close()

	items := make([]FlashCard, 0)
	for rows.Next() {
		var item FlashCard
		var due sql.NullTime
		var front, back []byte
		if err := rows.Scan(
			&item.ID, &item.NoteID, &item.Active, &item.State, &item.Lapses, &due,
			&item.Template.ID, &item.Template.ModelID, &item.Template.Name, &front, &back, &item.Template.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan flash card: %w", err)
		}
		if due.Valid {
			value := due.Time
			item.Due = &value
		}
		item.Template.FrontSide = rawOrNil(front)
		item.Template.BackSide = rawOrNil(back)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flash cards: %w", err)
	}
	return items, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func rawOrNil(data []byte) json.RawMessage {
	if len(data) == 0 {
		return nil
	}
	return json.RawMessage(data)
}
