// Package requesttime captures one timestamp per request so every write made
// while serving it agrees on "now".
package requesttime

import (
	"net/http"
	"time"

	"aip/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
