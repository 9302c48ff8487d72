package app

import (
	"context"
	"encoding/json"
	"fmt"

	"cramkle/app/internal/content"
	"cramkle/app/internal/editor"
	"cramkle/app/internal/store"
	"cramkle/app/internal/util"
)

// Bootstrap seeds a demo deck with a basic model and one note when the
// database holds no decks yet.
func (s *Service) Bootstrap(ctx context.Context) error {
	count, err := s.store.CountDecks(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	deck := store.Deck{
		ID:          util.NewID("deck"),
		Slug:        "capitals",
		Title:       "Capitals",
		Description: "European capitals",
	}
	if err := s.store.InsertDeck(ctx, deck); err != nil {
		return err
	}

	front := store.Field{ID: util.NewID("field"), Name: "Front"}
	back := store.Field{ID: util.NewID("field"), Name: "Back"}
	mentionables := []editor.Mentionable{{ID: front.ID, Name: front.Name}, {ID: back.ID, Name: back.Name}}

	frontSide, err := templateSide(mentionables, "", front.ID)
	if err != nil {
		return err
	}
	backSide, err := templateSide(mentionables, "Answer: ", back.ID)
	if err != nil {
		return err
	}

	model := store.Model{
		ID:             util.NewID("model"),
		Name:           "Basic",
		PrimaryFieldID: front.ID,
		Fields:         []store.Field{front, back},
		Templates: []store.Template{{
			ID:        util.NewID("tpl"),
			Name:      "Card 1",
			FrontSide: frontSide,
			BackSide:  backSide,
		}},
	}
	if err := s.store.InsertModel(ctx, model); err != nil {
		return err
	}

	question := paragraph("What is the capital of Portugal?")
	answer := paragraph("Lisbon")
	questionData, err := question.Marshal()
	if err != nil {
		return err
	}
	answerData, err := answer.Marshal()
	if err != nil {
		return err
	}

	values := []store.FieldValue{
		{ID: util.NewID("fv"), Field: front, Data: questionData, PlainText: question.PlainText()},
		{ID: util.NewID("fv"), Field: back, Data: answerData, PlainText: answer.PlainText()},
	}
	noteID := util.NewID("note")
	if err := s.store.InsertNote(ctx, noteID, deck.ID, model.ID, values, func(string) string { return util.NewID("card") }); err != nil {
		return err
	}

	s.logger.Info().Str("deck_id", deck.ID).Str("note_id", noteID).Msg("seeded demo deck")
	return nil
}

// templateSide builds a template side reading prefix followed by a mention
// of fieldID.
func templateSide(mentionables []editor.Mentionable, prefix, fieldID string) (json.RawMessage, error) {
	surface := editor.New(content.Empty(), editor.WithMentionables(mentionables))
	surface.InsertText(prefix)
	if err := surface.InsertMention(fieldID); err != nil {
		return nil, fmt.Errorf("seed template side: %w", err)
	}
	return surface.Content().Marshal()
}

func paragraph(text string) content.Raw {
	raw := content.Empty()
	raw.Blocks[0].Text = text
	return raw
}
