package export

import (
	"bytes"
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var flashcardsTemplate = template.Must(template.New("flashcards.html").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).ParseFS(templateFS, "templates/flashcards.html"))

// TemplateData holds data for flashcard document rendering
type TemplateData struct {
	Title      string
	ModelName  string
	ExportedAt time.Time
	Cards      []Card
}

// RenderFlashcardsHTML renders the flashcard document template.
func RenderFlashcardsHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := flashcardsTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
