package edge

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

var helmetHeaders = map[string]string{
	"X-DNS-Prefetch-Control":            "off",
	"X-Frame-Options":                   "SAMEORIGIN",
	"Strict-Transport-Security":         "max-age=15552000; includeSubDomains",
	"X-Download-Options":                "noopen",
	"X-Content-Type-Options":            "nosniff",
	"X-Permitted-Cross-Domain-Policies": "none",
	"Referrer-Policy":                   "no-referrer",
	"X-XSS-Protection":                  "0",
}

// security sets the helmet headers and a per-request script nonce in
// production. The nonce is handed to downstream handlers as a request
// header; outside production that header is stripped.
func (s *Server) security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.Production {
			r.Header.Del(nonceHeader)
			next.ServeHTTP(w, r)
			return
		}

		nonce := newNonce()
		r.Header.Set(nonceHeader, nonce)

		header := w.Header()
		for key, value := range helmetHeaders {
			header.Set(key, value)
		}
		header.Set("Content-Security-Policy", contentSecurityPolicy(nonce))
		next.ServeHTTP(w, r)
	})
}

func newNonce() string {
	return base64.StdEncoding.EncodeToString([]byte(uuid.NewString()))
}

func contentSecurityPolicy(nonce string) string {
	directives := []string{
		"default-src 'self'",
		"connect-src 'self' *.sentry.io",
		"base-uri 'self'",
		"block-all-mixed-content",
		"font-src 'self' https: data:",
		"frame-ancestors 'self'",
		"img-src 'self' data:",
		"object-src 'none'",
		"script-src 'self' 'nonce-" + nonce + "'",
		"script-src-attr 'none'",
		"style-src 'self' https: 'unsafe-inline'",
		"upgrade-insecure-requests",
	}
	return strings.Join(directives, ";")
}
