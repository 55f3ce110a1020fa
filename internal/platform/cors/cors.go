package cors

import (
	"net/http"
)

const (
	allowOrigin   = "*"
	allowMethods  = "GET, POST, OPTIONS"
	allowHeaders  = "Content-Type"
	exposeHeaders = "Content-Disposition"
)

// SetHeaders writes the permissive cross-origin headers used on every response.
// Headers are set unconditionally, whether or not the request carries an Origin.
func SetHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", allowOrigin)
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
	h.Set("Access-Control-Expose-Headers", exposeHeaders)
}

// Middleware sets the CORS headers before any other processing and answers
// every OPTIONS request with 200 and an empty body.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetHeaders(w.Header())
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
