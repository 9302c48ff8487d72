package edge

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type languages struct {
	names   []string
	matcher language.Matcher
	cookie  string
}

func newLanguages(names []string, cookie string) (*languages, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no supported languages configured")
	}
	tags := make([]language.Tag, 0, len(names))
	for _, name := range names {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("parse language %q: %w", name, err)
		}
		tags = append(tags, tag)
	}
	return &languages{names: names, matcher: language.NewMatcher(tags), cookie: cookie}, nil
}

// negotiate picks the language cookie when it names a supported language,
// then the best Accept-Language match, then the first supported language.
func (l *languages) negotiate(r *http.Request) string {
	if l.cookie != "" {
		if c, err := r.Cookie(l.cookie); err == nil {
			for _, name := range l.names {
				if strings.EqualFold(c.Value, name) {
					return name
				}
			}
		}
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		tags, _, err := language.ParseAcceptLanguage(accept)
		if err == nil && len(tags) > 0 {
			if _, index, confidence := l.matcher.Match(tags...); confidence != language.No {
				return l.names[index]
			}
		}
	}
	return l.names[0]
}

func (l *languages) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Set(languageHeader, l.negotiate(r))
		next.ServeHTTP(w, r)
	})
}
