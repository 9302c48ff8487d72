package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cramkle/app/internal/content"
	"cramkle/app/internal/editor"
	"cramkle/app/internal/revisions"
	"cramkle/app/internal/search"
	"cramkle/app/internal/store"
)

func TestSaveTemplateSideKeepsUnchangedRevision(t *testing.T) {
	svc, deps := newTestService()
	deps.revisions.err = revisions.ErrUnchanged

	payload, err := svc.SaveTemplateSide(context.Background(), "tpl-1", "front", json.RawMessage(frontValue), "")
	if err != nil {
		t.Fatalf("SaveTemplateSide() error = %v", err)
	}
	if _, ok := payload["revision"]; !ok {
		t.Fatal("expected head revision for unchanged content")
	}
}

func TestSaveTemplateSideIgnoresRevisionFailure(t *testing.T) {
	svc, deps := newTestService()
	deps.revisions.err = errors.New("disk full")

	payload, err := svc.SaveTemplateSide(context.Background(), "tpl-1", "back", json.RawMessage(frontValue), "")
	if err != nil {
		t.Fatalf("SaveTemplateSide() error = %v", err)
	}
	if _, ok := payload["revision"]; ok {
		t.Fatal("expected no revision when commit fails")
	}
	persisted := payload["content"].(content.Raw)
	if persisted.PlainText() != "Lisbon" {
		t.Fatalf("unexpected persisted content %q", persisted.PlainText())
	}
}

func TestNormalizeContent(t *testing.T) {
	raw, data, err := normalizeContent(json.RawMessage(`{"blocks":[]}`))
	if err != nil {
		t.Fatalf("normalizeContent() error = %v", err)
	}
	if len(raw.Blocks) != 1 || !raw.IsEmpty() {
		t.Fatalf("expected empty document, got %+v", raw)
	}
	if !strings.Contains(string(data), `"entityMap":{}`) {
		t.Fatalf("unexpected serialized content %s", data)
	}

	_, _, err = normalizeContent(json.RawMessage(`[1,2]`))
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != CodeInvalidContent {
		t.Fatalf("expected INVALID_CONTENT, got %v", err)
	}
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) {
		t.Errorf("expected decode error to be kept, got %v", err)
	}
	if status, code, message, _ := mapError(err); status != 422 || code != CodeInvalidContent || message != "content is not a valid document" {
		t.Errorf("mapError() = %d %s %q", status, code, message)
	}

	_, _, err = normalizeContent(json.RawMessage(` null `))
	if !errors.As(err, &domainErr) || domainErr.Code != CodeValidation || domainErr.Unwrap() != nil {
		t.Fatalf("expected VALIDATION_ERROR without cause, got %v", err)
	}
}

func TestDomainErrorMessage(t *testing.T) {
	if got := errUnknownSide("middle").Error(); got != "NOT_FOUND: Unknown template side" {
		t.Errorf("Error() = %q", got)
	}
	if got := errInvalidContent(errors.New("bad")).Error(); got != "INVALID_CONTENT: content is not a valid document: bad" {
		t.Errorf("Error() = %q", got)
	}
	var nilErr *DomainError
	if nilErr.Error() != "" || nilErr.Unwrap() != nil {
		t.Error("nil DomainError should be empty")
	}
}

func TestBootstrapSeedsOnce(t *testing.T) {
	svc, deps := newTestService()
	ctx := context.Background()

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if len(deps.store.decks) != 1 || len(deps.store.models) != 1 || len(deps.store.notes) != 1 {
		t.Fatalf("unexpected seed %+v", deps.store)
	}

	model := deps.store.models[0]
	if model.PrimaryFieldID != model.Fields[0].ID || len(model.Templates) != 1 {
		t.Fatalf("unexpected model %+v", model)
	}
	back := content.Parse(model.Templates[0].BackSide)
	mentions := editor.FindMentions(back)
	if len(mentions) != 1 || mentions[0].ID != model.Fields[1].ID || mentions[0].Offset != len("Answer: ") {
		t.Fatalf("unexpected back side mentions %+v", mentions)
	}
	if back.PlainText() != "Answer: Back" {
		t.Fatalf("unexpected back side text %q", back.PlainText())
	}
	if deps.store.noteValue[1].PlainText != "Lisbon" {
		t.Fatalf("unexpected seeded values %+v", deps.store.noteValue)
	}

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("second Bootstrap() error = %v", err)
	}
	if len(deps.store.decks) != 1 {
		t.Fatalf("expected bootstrap to be idempotent, got %d decks", len(deps.store.decks))
	}
}

func TestSearchWithoutServiceReturnsEmptyResponse(t *testing.T) {
	svc, _ := newTestService()
	svc.search = nil
	resp := svc.Search(context.Background(), searchQuery("lisbon"))
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestNotePayloadWithoutValues(t *testing.T) {
	payload := notePayload(store.Note{ID: "note-2", Deck: store.Deck{Title: "Empty"}})
	if payload["title"] != "Empty" {
		t.Fatalf("expected deck title fallback, got %v", payload["title"])
	}
	if cards := payload["flashCards"].([]map[string]any); len(cards) != 0 {
		t.Fatalf("expected no cards, got %v", cards)
	}
}

func searchQuery(text string) search.Query {
	return search.Query{Text: text}
}
