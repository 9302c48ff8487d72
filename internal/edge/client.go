package edge

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

//go:embed templates/index.html
var templatesFS embed.FS

var defaultIndex = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

const indexName = "index.html"

type indexData struct {
	Nonce   string
	Lang    string
	Version string
}

// clientHandler serves bundle assets and renders index.html for every path
// that does not name an asset. ETags are never emitted.
type clientHandler struct {
	source  Source
	version string
	logger  zerolog.Logger

	mu    sync.Mutex
	index *template.Template
}

func newClientHandler(source Source, version string, logger zerolog.Logger) *clientHandler {
	return &clientHandler{source: source, version: version, logger: logger}
}

func (h *clientHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Path
	if name != "/" && name != "/"+indexName && h.source != nil {
		served, err := h.serveAsset(w, r, name)
		if served {
			return
		}
		if err != nil {
			h.logger.Error().Err(err).Str("path", name).Msg("serve asset")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if path.Ext(name) != "" {
			http.NotFound(w, r)
			return
		}
	}
	h.serveIndex(w, r)
}

// serveAsset writes the named asset. It reports false with a nil error when
// the source has no such asset.
func (h *clientHandler) serveAsset(w http.ResponseWriter, r *http.Request, name string) (bool, error) {
	body, info, err := h.source.Open(r.Context(), name)
	if errors.Is(err, ErrAssetNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := w.Header()
	header.Set("Content-Type", contentType)
	header.Set("Cache-Control", "public, max-age=3600")
	if info.Size > 0 {
		header.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return true, nil
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn().Err(err).Str("path", name).Msg("write asset")
	}
	return true, nil
}

func (h *clientHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	tpl := h.indexTemplate(r.Context())

	var buf bytes.Buffer
	data := indexData{
		Nonce:   r.Header.Get(nonceHeader),
		Lang:    r.Header.Get(languageHeader),
		Version: h.version,
	}
	if err := tpl.Execute(&buf, data); err != nil {
		h.logger.Error().Err(err).Msg("render index")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/html; charset=utf-8")
	header.Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(buf.Bytes())
}

// indexTemplate loads index.html from the source once. Until the source has
// one the embedded page is used and loading is retried on the next request.
func (h *clientHandler) indexTemplate(ctx context.Context) *template.Template {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index != nil {
		return h.index
	}
	if h.source == nil {
		return defaultIndex
	}

	body, _, err := h.source.Open(ctx, indexName)
	if err != nil {
		if !errors.Is(err, ErrAssetNotFound) {
			h.logger.Warn().Err(err).Msg("load index template")
		}
		return defaultIndex
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("read index template")
		return defaultIndex
	}
	tpl, err := template.New(indexName).Parse(string(data))
	if err != nil {
		h.logger.Warn().Err(err).Msg("parse index template")
		return defaultIndex
	}
	h.index = tpl
	return tpl
}
