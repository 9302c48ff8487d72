package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serve(t *testing.T, svc *Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	NewHTTPServer(svc, "*").Handler().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	svc, _ := newTestService()
	rr := serve(t, svc, http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ok := decode(t, rr)["ok"]; ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestReadyEndpoint(t *testing.T) {
	svc, deps := newTestService()
	rr := serve(t, svc, http.MethodGet, "/api/ready", "")
	if rr.Code != http.StatusOK || decode(t, rr)["status"] != "ready" {
		t.Fatalf("expected ready, got %d %s", rr.Code, rr.Body.String())
	}

	deps.store.pingErr = errors.New("connection refused")
	rr = serve(t, svc, http.MethodGet, "/api/ready", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	payload := decode(t, rr)
	checks := payload["checks"].(map[string]any)
	database := checks["database"].(map[string]any)
	if payload["ok"] != false || database["error"] != "connection refused" {
		t.Fatalf("unexpected ready payload %v", payload)
	}
}

func TestGetNote(t *testing.T) {
	svc, _ := newTestService()
	rr := serve(t, svc, http.MethodGet, "/api/notes/note-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	payload := decode(t, rr)
	if payload["title"] != "Lisbon" {
		t.Fatalf("unexpected title %v", payload["title"])
	}
	values := payload["values"].([]any)
	if len(values) != 2 {
		t.Fatalf("expected two values, got %d", len(values))
	}
	cards := payload["flashCards"].([]any)
	card := cards[0].(map[string]any)
	front := card["front"].(map[string]any)
	block := front["blocks"].([]any)[0].(map[string]any)
	if block["text"] != "Lisbon" {
		t.Fatalf("expected substituted front side, got %v", block["text"])
	}
	if card["state"] != "NEW" {
		t.Fatalf("unexpected card %v", card)
	}
}

func TestNotFoundRoutes(t *testing.T) {
	svc, _ := newTestService()
	for _, path := range []string{"/api/notes/missing", "/api/models/missing", "/api/unknown/x", "/nope"} {
		rr := serve(t, svc, http.MethodGet, path, "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, rr.Code)
		}
		if code := decode(t, rr)["code"]; code != "NOT_FOUND" {
			t.Errorf("GET %s: expected NOT_FOUND code, got %v", path, code)
		}
	}
}

func TestGetModel(t *testing.T) {
	svc, _ := newTestService()
	rr := serve(t, svc, http.MethodGet, "/api/models/model-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	payload := decode(t, rr)
	templates := payload["templates"].([]any)
	template := templates[0].(map[string]any)
	if template["id"] != "tpl-1" {
		t.Fatalf("unexpected template %v", template)
	}
	if _, ok := template["backSide"].(map[string]any); !ok {
		t.Fatalf("expected unsaved back side rendered as an empty document, got %v", template["backSide"])
	}
}

func TestPutFieldValueNormalizesAndIndexes(t *testing.T) {
	svc, deps := newTestService()
	body := `{"content":{"blocks":[{"key":"k1","text":"Porto","inlineStyleRanges":[{"style":"BOLD","offset":3,"length":10},{"style":"ITALIC","offset":0,"length":2}]}]}}`
	rr := serve(t, svc, http.MethodPut, "/api/field-values/fv-back", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	payload := decode(t, rr)
	if payload["id"] != "fv-back" {
		t.Fatalf("unexpected id %v", payload["id"])
	}
	block := payload["content"].(map[string]any)["blocks"].([]any)[0].(map[string]any)
	if block["type"] != "unstyled" {
		t.Fatalf("expected default block type, got %v", block["type"])
	}
	ranges := block["inlineStyleRanges"].([]any)
	if len(ranges) != 1 || ranges[0].(map[string]any)["style"] != "ITALIC" {
		t.Fatalf("expected out of range style to be dropped, got %v", ranges)
	}
	if _, ok := payload["content"].(map[string]any)["entityMap"].(map[string]any); !ok {
		t.Fatalf("expected entity map in persisted content")
	}

	if len(deps.search.indexed) != 1 || deps.search.indexed[0].Text != "Porto" || deps.search.indexed[0].FieldName != "Back" {
		t.Fatalf("unexpected indexed records %+v", deps.search.indexed)
	}
}

func TestPutFieldValueValidation(t *testing.T) {
	svc, _ := newTestService()
	cases := []struct {
		name string
		path string
		body string
		code int
		err  string
	}{
		{"missing content", "/api/field-values/fv-back", `{}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"null content", "/api/field-values/fv-back", `{"content":null}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"not a document", "/api/field-values/fv-back", `{"content":"text"}`, http.StatusUnprocessableEntity, "INVALID_CONTENT"},
		{"broken json", "/api/field-values/fv-back", `{"content":`, http.StatusBadRequest, "INVALID_BODY"},
		{"unknown value", "/api/field-values/missing", `{"content":` + frontValue + `}`, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(t, svc, http.MethodPut, tc.path, tc.body)
			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rr.Code, rr.Body.String())
			}
			if code := decode(t, rr)["code"]; code != tc.err {
				t.Fatalf("expected %s, got %v", tc.err, code)
			}
		})
	}
}

func TestPutTemplateSideRecordsRevision(t *testing.T) {
	svc, deps := newTestService()
	req := httptest.NewRequest(http.MethodPut, "/api/templates/tpl-1/back", strings.NewReader(`{"content":`+frontValue+`}`))
	req.Header.Set("X-Cramkle-Author", "Avery")
	rr := httptest.NewRecorder()
	NewHTTPServer(svc, "*").Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	payload := decode(t, rr)
	if payload["side"] != "back" || payload["revision"] != "abc1234" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if len(deps.revisions.commits) != 1 || deps.revisions.commits[0].Author != "Avery" {
		t.Fatalf("unexpected commits %+v", deps.revisions.commits)
	}

	rr = serve(t, svc, http.MethodGet, "/api/templates/tpl-1/back/history?limit=5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	items := decode(t, rr)["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["message"] != "Update Card 1 back" {
		t.Fatalf("unexpected history %v", items)
	}
}

func TestPutTemplateSideWithoutRevisions(t *testing.T) {
	svc, _ := newTestService()
	svc.revisions = nil
	rr := serve(t, svc, http.MethodPut, "/api/templates/tpl-1/front", `{"content":`+frontValue+`}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if _, ok := decode(t, rr)["revision"]; ok {
		t.Fatal("expected no revision without a revision service")
	}
}

func TestTemplateRoutesRejectUnknownSideAndTemplate(t *testing.T) {
	svc, _ := newTestService()
	rr := serve(t, svc, http.MethodPut, "/api/templates/tpl-1/middle", `{"content":`+frontValue+`}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown side, got %d", rr.Code)
	}
	rr = serve(t, svc, http.MethodGet, "/api/templates/missing/front/history", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown template, got %d", rr.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	svc, deps := newTestService()
	rr := serve(t, svc, http.MethodGet, "/api/search", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without q, got %d", rr.Code)
	}

	rr = serve(t, svc, http.MethodGet, "/api/search?q=lisbon&deckId=deck-1&limit=5&offset=10", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if total := decode(t, rr)["total"]; total != float64(1) {
		t.Fatalf("unexpected total %v", total)
	}
	q := deps.search.queries[0]
	if q.Text != "lisbon" || q.DeckID != "deck-1" || q.Limit != 5 || q.Offset != 10 {
		t.Fatalf("unexpected query %+v", q)
	}
}

func TestExportEndpoint(t *testing.T) {
	svc, _ := newTestService()
	rr := serve(t, svc, http.MethodGet, "/api/notes/note-1/export?format=html", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), `filename="Lisbon.html"`) {
		t.Fatalf("unexpected disposition %q", rr.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rr.Body.String(), "Card 1") {
		t.Fatalf("expected card in export body")
	}

	rr = serve(t, svc, http.MethodGet, "/api/notes/note-1/export?format=docx", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unsupported format, got %d", rr.Code)
	}
	rr = serve(t, svc, http.MethodGet, "/api/notes/missing/export?format=html", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown note, got %d", rr.Code)
	}
}

func TestOptionsPreflight(t *testing.T) {
	svc, _ := newTestService()
	rr := serve(t, svc, http.MethodOptions, "/api/field-values/fv-1", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}
