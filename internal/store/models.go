package store

import (
	"encoding/json"
	"fmt"
	"time"
)

type Deck struct {
	ID          string
	Slug        string
	Title       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Field struct {
	ID       string
	ModelID  string
	Name     string
	Position int
}

// Template holds the raw content of both sides. A nil side was never saved.
type Template struct {
	ID        string
	ModelID   string
	Name      string
	FrontSide json.RawMessage
	BackSide  json.RawMessage
	UpdatedAt time.Time
}

type Model struct {
	ID             string
	Name           string
	PrimaryFieldID string
	Fields         []Field
	Templates      []Template
	UpdatedAt      time.Time
}

type FieldValue struct {
	ID        string
	NoteID    string
	ModelID   string
	DeckID    string
	Field     Field
	Data      json.RawMessage
	PlainText string
	UpdatedAt time.Time
}

type FlashCard struct {
	ID       string
	NoteID   string
	Template Template
	Active   bool
	State    string
	Lapses   int
	Due      *time.Time
}

type Note struct {
	ID         string
	Deck       Deck
	Model      Model
	Values     []FieldValue
	FlashCards []FlashCard
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Side names one face of a template.
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

func ParseSide(value string) (Side, error) {
	switch Side(value) {
	case SideFront, SideBack:
		return Side(value), nil
	}
	return "", fmt.Errorf("unknown template side %q", value)
}

func (s Side) column() string {
	if s == SideBack {
		return "back_side"
	}
	return "front_side"
}

// Content returns the raw content of side.
func (t Template) Content(side Side) json.RawMessage {
	if side == SideBack {
		return t.BackSide
	}
	return t.FrontSide
}

type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}
