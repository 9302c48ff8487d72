// Package edge is the HTTP server in front of the client bundle. It proxies
// API traffic to the backing process, sets security headers, negotiates the
// interface language and exposes health and metrics endpoints.
package edge

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"cramkle/app/internal/config"
)

const (
	nonceHeader    = "X-Cramkle-Nonce"
	languageHeader = "X-Cramkle-Lang"
)

type Server struct {
	cfg       config.EdgeConfig
	logger    zerolog.Logger
	metrics   *metrics
	languages *languages
	client    *clientHandler
	proxy     http.Handler
}

// New builds the edge server serving the client bundle from source.
func New(cfg config.EdgeConfig, source Source, logger zerolog.Logger) (*Server, error) {
	target, err := url.Parse(cfg.APIURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", cfg.APIURL)
	}
	langs, err := newLanguages(cfg.Languages, cfg.LanguageCookie)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:       cfg,
		logger:    logger,
		metrics:   newMetrics(cfg.Version),
		languages: langs,
		client:    newClientHandler(source, cfg.Version, logger),
		proxy:     newProxy(target, cfg.CookieDomainRewrite, logger),
	}, nil
}

// Handler returns the router. Routes are matched in the order they were
// registered: health, metrics, the API proxy, then the client bundle.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.observe)
	r.Use(s.security)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/metrics", s.metrics.handler()).Methods(http.MethodGet)

	prefix := "/" + strings.Trim(s.cfg.ProxyPrefix, "/")
	r.Path(prefix).Handler(s.proxy)
	r.PathPrefix(prefix + "/").Handler(s.proxy)

	r.PathPrefix("/").Handler(s.languages.middleware(s.client))
	return r
}

// observe records the request duration histogram and writes the access log.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(writer, r)

		elapsed := time.Since(started)
		s.metrics.observe(r.Method, routeTemplate(r), writer.status, elapsed)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("request")
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the flusher of the proxy stream.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
