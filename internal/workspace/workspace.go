// Package workspace wires the editors of a page: a note page edits the
// values of a note, a model page edits both sides of one template. Each
// editor surface feeds its own autosave controller.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cramkle/app/internal/autosave"
	"cramkle/app/internal/content"
	"cramkle/app/internal/editor"
	"cramkle/app/internal/transport"
)

var (
	ErrTemplateNotFound = errors.New("workspace: template not found")
	ErrClosed           = errors.New("workspace: closed")
)

// Client loads page data and persists snapshots. *transport.Client
// satisfies it.
type Client interface {
	autosave.Persister
	GetNote(ctx context.Context, noteID string) (transport.Note, error)
	GetModel(ctx context.Context, modelID string) (transport.Model, error)
}

// Editor is one editable slot of the page.
type Editor struct {
	Target     autosave.Target
	Label      string
	Surface    *editor.Surface
	Controller *autosave.Controller
}

type Workspace struct {
	Title string

	registry *autosave.Registry
	editors  []*Editor

	mu     sync.Mutex
	closed bool
}

// OpenNote loads a note and opens one editor per field value.
func OpenNote(ctx context.Context, client Client, noteID string, opts ...autosave.Option) (*Workspace, error) {
	note, err := client.GetNote(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("load note %s: %w", noteID, err)
	}

	ws := newWorkspace(note.Title, client, opts)
	for _, value := range note.Values {
		ws.add(autosave.FieldValue(value.ID), value.Field.Name, value.Content, nil)
	}
	return ws, nil
}

// OpenModel loads a model and opens editors for the front and back sides of
// templateID, or of the first template when templateID is empty. The model
// fields are offered as mentions.
func OpenModel(ctx context.Context, client Client, modelID, templateID string, opts ...autosave.Option) (*Workspace, error) {
	model, err := client.GetModel(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelID, err)
	}

	if templateID == "" && len(model.Templates) > 0 {
		templateID = model.Templates[0].ID
	}
	template, ok := model.Template(templateID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
	}

	mentionables := make([]editor.Mentionable, 0, len(model.Fields))
	for _, field := range model.Fields {
		mentionables = append(mentionables, editor.Mentionable{ID: field.ID, Name: field.Name})
	}

	ws := newWorkspace(model.Name+" / "+template.Name, client, opts)
	ws.add(autosave.TemplateFront(template.ID), "Front side", template.FrontSide, mentionables)
	ws.add(autosave.TemplateBack(template.ID), "Back side", template.BackSide, mentionables)
	return ws, nil
}

func newWorkspace(title string, persister autosave.Persister, opts []autosave.Option) *Workspace {
	return &Workspace{
		Title:    title,
		registry: autosave.NewRegistry(persister, opts...),
	}
}

// add opens the controller of target and a surface whose edits feed it.
func (w *Workspace) add(target autosave.Target, label string, initial content.Raw, mentionables []editor.Mentionable) {
	controller := w.registry.Open(target)
	surface := editor.New(initial,
		editor.WithMentionables(mentionables),
		editor.WithOnChange(controller.ContentChanged),
	)
	w.editors = append(w.editors, &Editor{
		Target:     target,
		Label:      label,
		Surface:    surface,
		Controller: controller,
	})
}

// Editors returns the editors in page order.
func (w *Workspace) Editors() []*Editor {
	return append([]*Editor(nil), w.editors...)
}

func (w *Workspace) Editor(target autosave.Target) (*Editor, bool) {
	for _, e := range w.editors {
		if e.Target == target {
			return e, true
		}
	}
	return nil, false
}

// Outcomes returns the current save outcome of every editor.
func (w *Workspace) Outcomes() []autosave.Outcome {
	out := make([]autosave.Outcome, 0, len(w.editors))
	for _, e := range w.editors {
		out = append(out, e.Controller.Outcome())
	}
	return out
}

// RetryFailed retries every failed editor and returns how many requests
// were dispatched.
func (w *Workspace) RetryFailed() (int, error) {
	if w.isClosed() {
		return 0, ErrClosed
	}
	n := 0
	for _, e := range w.editors {
		if e.Controller.Retry() {
			n++
		}
	}
	return n, nil
}

// Close tears down every controller. Pending delays never fire afterwards.
func (w *Workspace) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	w.registry.CloseAll()
}

// Wait blocks until the requests already sent by the editors have returned.
func (w *Workspace) Wait() {
	for _, e := range w.editors {
		e.Controller.Wait()
	}
}

func (w *Workspace) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}
