package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ayush/exam-bank/backend/internal/respond"
)

// CSRF returns middleware that checks the Origin (or Referer) header of
// state-changing requests against allowedOrigins.
func CSRF(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[normalizeOrigin(o)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if origin := r.Header.Get("Origin"); origin != "" {
				if !allowed[normalizeOrigin(origin)] {
					respond.Fail(w, http.StatusForbidden, "CSRF validation failed: invalid origin")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if referer := r.Header.Get("Referer"); referer != "" {
				if !allowed[normalizeOrigin(refererOrigin(referer))] {
					respond.Fail(w, http.StatusForbidden, "CSRF validation failed: invalid referer")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			respond.Fail(w, http.StatusForbidden, "CSRF validation failed: missing origin")
		})
	}
}

func normalizeOrigin(o string) string {
	return strings.TrimSuffix(strings.ToLower(o), "/")
}

// refererOrigin reduces a full URL to scheme://host[:port].
func refererOrigin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
