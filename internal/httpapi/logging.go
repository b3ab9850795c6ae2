package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// requestLogger logs one line per request at info level (debug for health and metrics probes).
func requestLogger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			ev := l.Info()
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				ev = l.Debug()
			}
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				ev = ev.Str("request_id", rid)
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("dur", time.Since(start)).
				Msg("request")
		})
	}
}
