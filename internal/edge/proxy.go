package edge

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// newProxy forwards requests to target with path and query unchanged. The
// outgoing Host is the target host and Set-Cookie domains are rewritten
// through rewrite.
func newProxy(target *url.URL, rewrite map[string]string, logger zerolog.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host
		},
		ModifyResponse: func(resp *http.Response) error {
			rewriteSetCookies(resp.Header, rewrite)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error().Err(err).Str("path", r.URL.Path).Str("target", target.Host).Msg("proxy request")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"code":"BAD_GATEWAY","error":"API unavailable"}`))
		},
	}
}

func rewriteSetCookies(header http.Header, rewrite map[string]string) {
	if len(rewrite) == 0 {
		return
	}
	cookies := header.Values("Set-Cookie")
	if len(cookies) == 0 {
		return
	}
	header.Del("Set-Cookie")
	for _, cookie := range cookies {
		header.Add("Set-Cookie", rewriteCookieDomain(cookie, rewrite))
	}
}

// rewriteCookieDomain replaces the Domain attribute of a Set-Cookie value.
// A "*" key matches any domain and an empty replacement drops the attribute.
func rewriteCookieDomain(cookie string, rewrite map[string]string) string {
	parts := strings.Split(cookie, ";")
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			name, value, _ := strings.Cut(strings.TrimSpace(part), "=")
			if strings.EqualFold(name, "domain") {
				replacement, ok := rewrite[value]
				if !ok {
					replacement, ok = rewrite["*"]
				}
				if ok {
					if replacement == "" {
						continue
					}
					part = " " + name + "=" + replacement
				}
			}
		}
		out = append(out, part)
	}
	return strings.Join(out, ";")
}
