package viewer

import (
	"net/http"
	"strings"
)

// noCache disables all browser caching so live documents always refetch.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		// Prevent conditional caching
		w.Header().Del("ETag")
		w.Header().Del("Last-Modified")

		next.ServeHTTP(w, r)
	})
}

// noCachePrefixes applies noCache to requests under any of the prefixes.
func noCachePrefixes(next http.Handler, prefixes ...string) http.Handler {
	wrapped := noCache(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, p := range prefixes {
			if strings.HasPrefix(r.URL.Path, p) {
				wrapped.ServeHTTP(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
