package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cramkle/app/internal/config"
	"cramkle/app/internal/content"
	"cramkle/app/internal/export"
	"cramkle/app/internal/search"
	"cramkle/app/internal/store"
)

const (
	frontSide  = `{"blocks":[{"key":"t1","type":"unstyled","text":"Front","depth":0,"inlineStyleRanges":[],"entityRanges":[{"key":0,"offset":0,"length":5}],"data":{}}],"entityMap":{"0":{"type":"MENTION","mutability":"IMMUTABLE","data":{"id":"field-front","name":"Front"}}}}`
	frontValue = `{"blocks":[{"key":"v1","type":"unstyled","text":"Lisbon","depth":0,"inlineStyleRanges":[],"entityRanges":[],"data":{}}],"entityMap":{}}`
)

// fakeStore keeps one note in memory.
type fakeStore struct {
	mu        sync.Mutex
	note      store.Note
	pingErr   error
	decks     []store.Deck
	models    []store.Model
	notes     []string
	noteValue []store.FieldValue
}

func newFakeStore() *fakeStore {
	front := store.Field{ID: "field-front", ModelID: "model-1", Name: "Front"}
	back := store.Field{ID: "field-back", ModelID: "model-1", Name: "Back", Position: 1}
	template := store.Template{ID: "tpl-1", ModelID: "model-1", Name: "Card 1", FrontSide: json.RawMessage(frontSide)}
	return &fakeStore{note: store.Note{
		ID:   "note-1",
		Deck: store.Deck{ID: "deck-1", Slug: "capitals", Title: "Capitals"},
		Model: store.Model{
			ID:             "model-1",
			Name:           "Basic",
			PrimaryFieldID: "field-front",
			Fields:         []store.Field{front, back},
			Templates:      []store.Template{template},
		},
		Values: []store.FieldValue{
			{ID: "fv-front", NoteID: "note-1", ModelID: "model-1", DeckID: "deck-1", Field: front, Data: json.RawMessage(frontValue), PlainText: "Lisbon"},
			{ID: "fv-back", NoteID: "note-1", ModelID: "model-1", DeckID: "deck-1", Field: back},
		},
		FlashCards: []store.FlashCard{{ID: "card-1", NoteID: "note-1", Template: template, Active: true, State: "NEW"}},
	}}
}

func (f *fakeStore) GetNote(_ context.Context, id string) (store.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.note.ID {
		return store.Note{}, sql.ErrNoRows
	}
	return f.note, nil
}

func (f *fakeStore) GetModel(_ context.Context, id string) (store.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.note.Model.ID {
		return store.Model{}, sql.ErrNoRows
	}
	return f.note.Model, nil
}

func (f *fakeStore) GetTemplate(_ context.Context, id string) (store.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, template := range f.note.Model.Templates {
		if template.ID == id {
			return template, nil
		}
	}
	return store.Template{}, sql.ErrNoRows
}

func (f *fakeStore) GetFieldValue(_ context.Context, id string) (store.FieldValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, value := range f.note.Values {
		if value.ID == id {
			return value, nil
		}
	}
	return store.FieldValue{}, sql.ErrNoRows
}

func (f *fakeStore) UpdateFieldValue(_ context.Context, id string, data json.RawMessage, plainText string) (store.FieldValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, value := range f.note.Values {
		if value.ID == id {
			value.Data = append(json.RawMessage(nil), data...)
			value.PlainText = plainText
			value.UpdatedAt = time.Now()
			f.note.Values[i] = value
			return value, nil
		}
	}
	return store.FieldValue{}, sql.ErrNoRows
}

func (f *fakeStore) UpdateTemplateSide(_ context.Context, id string, side store.Side, data json.RawMessage) (store.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, template := range f.note.Model.Templates {
		if template.ID != id {
			continue
		}
		if side == store.SideBack {
			template.BackSide = append(json.RawMessage(nil), data...)
		} else {
			template.FrontSide = append(json.RawMessage(nil), data...)
		}
		f.note.Model.Templates[i] = template
		for j := range f.note.FlashCards {
			if f.note.FlashCards[j].Template.ID == id {
				f.note.FlashCards[j].Template = template
			}
		}
		return template, nil
	}
	return store.Template{}, sql.ErrNoRows
}

func (f *fakeStore) CountDecks(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.decks), nil
}

func (f *fakeStore) InsertDeck(_ context.Context, deck store.Deck) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decks = append(f.decks, deck)
	return nil
}

func (f *fakeStore) InsertModel(_ context.Context, model store.Model) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, model)
	return nil
}

func (f *fakeStore) InsertNote(_ context.Context, noteID, _, _ string, values []store.FieldValue, cardIDs func(string) string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, noteID)
	f.noteValue = append(f.noteValue, values...)
	_ = cardIDs("tpl")
	return nil
}

func (f *fakeStore) Ping(context.Context) error {
	return f.pingErr
}

type fakeRevisions struct {
	mu      sync.Mutex
	commits []store.CommitInfo
	saved   []content.Raw
	err     error
}

func (f *fakeRevisions) Commit(_ string, _ store.Side, raw content.Raw, author, message string) (store.CommitInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return store.CommitInfo{}, f.err
	}
	info := store.CommitInfo{Hash: "abc1234", Author: author, Message: message + "\n", CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	f.commits = append([]store.CommitInfo{info}, f.commits...)
	f.saved = append(f.saved, raw)
	return info, nil
}

func (f *fakeRevisions) History(_ string, _ store.Side, limit int) ([]store.CommitInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > 0 && len(f.commits) > limit {
		return append([]store.CommitInfo(nil), f.commits[:limit]...), nil
	}
	return append([]store.CommitInfo(nil), f.commits...), nil
}

type fakeSearch struct {
	mu      sync.Mutex
	queries []search.Query
	indexed []search.FieldValueRecord
}

func (f *fakeSearch) Search(_ context.Context, q search.Query) search.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return search.Response{
		Results: []search.Result{{ID: "fv-front", NoteID: "note-1", FieldName: "Front", Snippet: "<mark>Lisbon</mark>"}},
		Total:   1,
		Query:   q.Text,
	}
}

func (f *fakeSearch) IndexFieldValue(record search.FieldValueRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, record)
}

type testDeps struct {
	store     *fakeStore
	revisions *fakeRevisions
	search    *fakeSearch
}

func newTestService() (*Service, testDeps) {
	deps := testDeps{store: newFakeStore(), revisions: &fakeRevisions{}, search: &fakeSearch{}}
	svc := &Service{
		cfg:       config.APIConfig{},
		store:     deps.store,
		revisions: deps.revisions,
		search:    deps.search,
		export:    export.NewService(deps.store),
		logger:    zerolog.Nop(),
	}
	return svc, deps
}
