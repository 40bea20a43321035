package middleware

import (
	"net/http"
	"time"
)

// RequestRecorder receives one observation per finished request.
type RequestRecorder interface {
	Record(method string, status int, duration time.Duration)
}

func Metrics(recorder RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)
			recorder.Record(r.Method, sr.status, time.Since(start))
		})
	}
}
