package export

import (
	"html/template"

	"cramkle/app/internal/content"
	"cramkle/app/internal/store"
)

// Card is one flashcard of a note with both sides rendered.
type Card struct {
	ID           string
	TemplateID   string
	TemplateName string
	Active       bool
	Front        content.Raw
	Back         content.Raw
}

// FrontHTML renders the front side.
func (c Card) FrontHTML() template.HTML {
	return template.HTML(content.ToHTML(c.Front))
}

// BackHTML renders the back side.
func (c Card) BackHTML() template.HTML {
	return template.HTML(content.ToHTML(c.Back))
}

// FieldValues maps the field id of every value of note to its content.
func FieldValues(note store.Note) map[string]content.Raw {
	values := make(map[string]content.Raw, len(note.Values))
	for _, value := range note.Values {
		values[value.Field.ID] = content.Parse(value.Data)
	}
	return values
}

// Cards substitutes the note field values into every flash card template.
func Cards(note store.Note) []Card {
	values := FieldValues(note)
	cards := make([]Card, 0, len(note.FlashCards))
	for _, card := range note.FlashCards {
		cards = append(cards, Card{
			ID:           card.ID,
			TemplateID:   card.Template.ID,
			TemplateName: card.Template.Name,
			Active:       card.Active,
			Front:        content.Substitute(content.Parse(card.Template.FrontSide), values),
			Back:         content.Substitute(content.Parse(card.Template.BackSide), values),
		})
	}
	return cards
}
