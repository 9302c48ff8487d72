package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cramkle/app/internal/content"
	"cramkle/app/internal/store"
)

// DataStore loads the note being exported.
type DataStore interface {
	GetNote(ctx context.Context, id string) (store.Note, error)
}

// PDFRenderer turns a rendered HTML document into a PDF.
type PDFRenderer func(ctx context.Context, html, title string) (*Result, error)

// Service provides flashcard export functionality
type Service struct {
	store DataStore
	pdf   PDFRenderer
	now   func() time.Time
}

type Option func(*Service)

// WithPDFRenderer replaces the headless Chrome renderer.
func WithPDFRenderer(renderer PDFRenderer) Option {
	return func(s *Service) { s.pdf = renderer }
}

// NewService creates a new export service
func NewService(store DataStore, opts ...Option) *Service {
	s := &Service{store: store, pdf: NewChromePDF().Render, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export renders every flashcard of the note in the requested format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	note, err := s.store.GetNote(ctx, req.NoteID)
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}

	title := NoteTitle(note)
	html, err := RenderFlashcardsHTML(TemplateData{
		Title:      title,
		ModelName:  note.Model.Name,
		ExportedAt: s.now(),
		Cards:      Cards(note),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: render template: %v", ErrContentUnavailable, err)
	}

	switch req.Format {
	case FormatPDF:
		return s.pdf(ctx, html, title)
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}

// NoteTitle is the plain text of the note primary field, falling back to the
// first non-empty value and then to the deck title.
func NoteTitle(note store.Note) string {
	var fallback string
	for _, value := range note.Values {
		text := strings.TrimSpace(content.Parse(value.Data).PlainText())
		if text == "" {
			continue
		}
		firstLine, _, _ := strings.Cut(text, "\n")
		if value.Field.ID == note.Model.PrimaryFieldID {
			return firstLine
		}
		if fallback == "" {
			fallback = firstLine
		}
	}
	if fallback != "" {
		return fallback
	}
	return note.Deck.Title
}
