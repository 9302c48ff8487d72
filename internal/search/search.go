package search

// Result is a single field value hit returned to the caller.
type Result struct {
	ID        string `json:"id"`
	NoteID    string `json:"noteId"`
	FieldID   string `json:"fieldId"`
	ModelID   string `json:"modelId"`
	DeckID    string `json:"deckId"`
	FieldName string `json:"fieldName"`
	Snippet   string `json:"snippet"`
}

// Query describes a search request. Empty filters match everything.
type Query struct {
	Text    string
	NoteID  string
	ModelID string
	DeckID  string
	Limit   int
	Offset  int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// FieldValueRecord is the data we index for a field value.
type FieldValueRecord struct {
	ID        string `json:"id"`
	NoteID    string `json:"noteId"`
	FieldID   string `json:"fieldId"`
	ModelID   string `json:"modelId"`
	DeckID    string `json:"deckId"`
	FieldName string `json:"fieldName"`
	Text      string `json:"text"`
}

const defaultLimit = 20

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}
