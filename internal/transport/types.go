package transport

import (
	"time"

	"cramkle/app/internal/content"
)

type Deck struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

type Field struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FieldValue struct {
	ID        string      `json:"id"`
	Field     Field       `json:"field"`
	Content   content.Raw `json:"content"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type TemplateRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FlashCard holds both sides of a card with field values substituted.
type FlashCard struct {
	ID       string      `json:"id"`
	Active   bool        `json:"active"`
	State    string      `json:"state"`
	Lapses   int         `json:"lapses"`
	Due      *time.Time  `json:"due"`
	Template TemplateRef `json:"template"`
	Front    content.Raw `json:"front"`
	Back     content.Raw `json:"back"`
}

type NoteModel struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	PrimaryFieldID string  `json:"primaryFieldId"`
	Fields         []Field `json:"fields"`
}

type Note struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Deck       Deck         `json:"deck"`
	Model      NoteModel    `json:"model"`
	Values     []FieldValue `json:"values"`
	FlashCards []FlashCard  `json:"flashCards"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

type Template struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	FrontSide content.Raw `json:"frontSide"`
	BackSide  content.Raw `json:"backSide"`
}

type Model struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	PrimaryFieldID string     `json:"primaryFieldId"`
	Fields         []Field    `json:"fields"`
	Templates      []Template `json:"templates"`
}

// Template returns the template with id.
func (m Model) Template(id string) (Template, bool) {
	for _, template := range m.Templates {
		if template.ID == id {
			return template, true
		}
	}
	return Template{}, false
}
