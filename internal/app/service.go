package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"cramkle/app/internal/config"
	"cramkle/app/internal/content"
	"cramkle/app/internal/export"
	"cramkle/app/internal/revisions"
	"cramkle/app/internal/search"
	"cramkle/app/internal/store"
)

type dataStore interface {
	GetNote(context.Context, string) (store.Note, error)
	GetModel(context.Context, string) (store.Model, error)
	GetTemplate(context.Context, string) (store.Template, error)
	GetFieldValue(context.Context, string) (store.FieldValue, error)
	UpdateFieldValue(context.Context, string, json.RawMessage, string) (store.FieldValue, error)
	UpdateTemplateSide(context.Context, string, store.Side, json.RawMessage) (store.Template, error)
	CountDecks(context.Context) (int, error)
	InsertDeck(context.Context, store.Deck) error
	InsertModel(context.Context, store.Model) error
	InsertNote(context.Context, string, string, string, []store.FieldValue, func(string) string) error
	Ping(ctx context.Context) error
}

type revisionService interface {
	Commit(string, store.Side, content.Raw, string, string) (store.CommitInfo, error)
	History(string, store.Side, int) ([]store.CommitInfo, error)
}

type searchService interface {
	Search(context.Context, search.Query) search.Response
	IndexFieldValue(search.FieldValueRecord)
}

type exportService interface {
	Export(context.Context, export.Request) (*export.Result, error)
}

type Service struct {
	cfg       config.APIConfig
	store     dataStore
	revisions revisionService
	search    searchService
	export    exportService
	logger    zerolog.Logger
}

// New wires the service. revisionsService and searchService may be nil.
func New(cfg config.APIConfig, dataStore *store.PostgresStore, revisionsService *revisions.Service, searchService *search.Service, logger zerolog.Logger) *Service {
	pdf := export.NewChromePDF()
	pdf.ExecPath = cfg.ChromePath
	pdf.Paper = export.ParsePaper(cfg.PDFPaper)
	if cfg.PDFTimeout > 0 {
		pdf.Timeout = cfg.PDFTimeout
	}
	s := &Service{
		cfg:    cfg,
		store:  dataStore,
		export: export.NewService(dataStore, export.WithPDFRenderer(pdf.Render)),
		logger: logger,
	}
	if revisionsService != nil {
		s.revisions = revisionsService
	}
	if searchService != nil {
		s.search = searchService
	}
	return s
}

const defaultAuthor = "Cramkle"

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) GetNote(ctx context.Context, noteID string) (map[string]any, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	return notePayload(note), nil
}

func (s *Service) GetModel(ctx context.Context, modelID string) (map[string]any, error) {
	model, err := s.store.GetModel(ctx, modelID)
	if err != nil {
		return nil, err
	}
	return modelPayload(model), nil
}

// SaveFieldValue normalizes raw, persists it and returns the persisted content.
func (s *Service) SaveFieldValue(ctx context.Context, fieldValueID string, raw json.RawMessage) (map[string]any, error) {
	normalized, data, err := normalizeContent(raw)
	if err != nil {
		return nil, err
	}

	value, err := s.store.UpdateFieldValue(ctx, fieldValueID, data, normalized.PlainText())
	if err != nil {
		return nil, err
	}

	if s.search != nil {
		s.search.IndexFieldValue(search.FieldValueRecord{
			ID:        value.ID,
			NoteID:    value.NoteID,
			FieldID:   value.Field.ID,
			ModelID:   value.ModelID,
			DeckID:    value.DeckID,
			FieldName: value.Field.Name,
			Text:      value.PlainText,
		})
	}

	return map[string]any{
		"id":        value.ID,
		"content":   content.Parse(value.Data),
		"updatedAt": value.UpdatedAt,
	}, nil
}

// SaveTemplateSide persists one side of a template and records a revision.
func (s *Service) SaveTemplateSide(ctx context.Context, templateID, sideName string, raw json.RawMessage, author string) (map[string]any, error) {
	side, err := store.ParseSide(sideName)
	if err != nil {
		return nil, errUnknownSide(sideName)
	}
	normalized, data, err := normalizeContent(raw)
	if err != nil {
		return nil, err
	}

	template, err := s.store.UpdateTemplateSide(ctx, templateID, side, data)
	if err != nil {
		return nil, err
	}

	persisted := content.Parse(template.Content(side))
	payload := map[string]any{
		"id":        template.ID,
		"side":      string(side),
		"content":   persisted,
		"updatedAt": template.UpdatedAt,
	}

	if s.revisions != nil {
		if strings.TrimSpace(author) == "" {
			author = defaultAuthor
		}
		commit, err := s.revisions.Commit(template.ID, side, normalized, author, "Update "+template.Name+" "+string(side))
		switch {
		case err == nil, errors.Is(err, revisions.ErrUnchanged):
			payload["revision"] = commit.Hash
		default:
			s.logger.Warn().Err(err).Str("template_id", template.ID).Str("side", string(side)).Msg("record template revision")
		}
	}
	return payload, nil
}

func (s *Service) TemplateHistory(ctx context.Context, templateID, sideName string, limit int) (map[string]any, error) {
	side, err := store.ParseSide(sideName)
	if err != nil {
		return nil, errUnknownSide(sideName)
	}
	if _, err := s.store.GetTemplate(ctx, templateID); err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0)
	if s.revisions != nil {
		history, err := s.revisions.History(templateID, side, limit)
		if err != nil {
			return nil, err
		}
		for _, commit := range history {
			items = append(items, map[string]any{
				"hash":      commit.Hash,
				"message":   strings.TrimSpace(commit.Message),
				"author":    commit.Author,
				"createdAt": commit.CreatedAt,
			})
		}
	}
	return map[string]any{"templateId": templateID, "side": string(side), "items": items}, nil
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

func (s *Service) ExportNote(ctx context.Context, noteID, format string) (*export.Result, error) {
	parsed, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return s.export.Export(ctx, export.Request{NoteID: noteID, Format: parsed})
}

// normalizeContent validates a raw content payload and returns its normalized
// form together with the serialized bytes to persist.
func normalizeContent(raw json.RawMessage) (content.Raw, json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return content.Raw{}, nil, errContentRequired()
	}
	var decoded content.Raw
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return content.Raw{}, nil, errInvalidContent(err)
	}
	normalized := content.Normalize(decoded)
	data, err := normalized.Marshal()
	if err != nil {
		return content.Raw{}, nil, err
	}
	return normalized, data, nil
}

func notePayload(note store.Note) map[string]any {
	fields := make([]map[string]any, 0, len(note.Model.Fields))
	for _, field := range note.Model.Fields {
		fields = append(fields, fieldPayload(field))
	}

	values := make([]map[string]any, 0, len(note.Values))
	for _, value := range note.Values {
		values = append(values, map[string]any{
			"id":        value.ID,
			"field":     fieldPayload(value.Field),
			"content":   content.Parse(value.Data),
			"updatedAt": value.UpdatedAt,
		})
	}

	cards := export.Cards(note)
	flashCards := make([]map[string]any, 0, len(cards))
	for i, card := range cards {
		source := note.FlashCards[i]
		flashCards = append(flashCards, map[string]any{
			"id":       card.ID,
			"active":   card.Active,
			"state":    source.State,
			"lapses":   source.Lapses,
			"due":      source.Due,
			"template": map[string]any{"id": card.TemplateID, "name": card.TemplateName},
			"front":    card.Front,
			"back":     card.Back,
		})
	}

	return map[string]any{
		"id":    note.ID,
		"title": export.NoteTitle(note),
		"deck": map[string]any{
			"id":    note.Deck.ID,
			"slug":  note.Deck.Slug,
			"title": note.Deck.Title,
		},
		"model": map[string]any{
			"id":             note.Model.ID,
			"name":           note.Model.Name,
			"primaryFieldId": note.Model.PrimaryFieldID,
			"fields":         fields,
		},
		"values":     values,
		"flashCards": flashCards,
		"updatedAt":  note.UpdatedAt,
	}
}

func modelPayload(model store.Model) map[string]any {
	fields := make([]map[string]any, 0, len(model.Fields))
	for _, field := range model.Fields {
		fields = append(fields, fieldPayload(field))
	}
	templates := make([]map[string]any, 0, len(model.Templates))
	for _, template := range model.Templates {
		templates = append(templates, map[string]any{
			"id":        template.ID,
			"name":      template.Name,
			"frontSide": content.Parse(template.FrontSide),
			"backSide":  content.Parse(template.BackSide),
		})
	}
	return map[string]any{
		"id":             model.ID,
		"name":           model.Name,
		"primaryFieldId": model.PrimaryFieldID,
		"fields":         fields,
		"templates":      templates,
	}
}

func fieldPayload(field store.Field) map[string]any {
	return map[string]any{"id": field.ID, "name": field.Name}
}
