package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"workforce/internal/requestctx"
	"workforce/internal/transport/http/shared"
)

const maxRequestIDLength = 128

// RequestID propagates a caller supplied X-Request-ID or mints one, and
// records it with the client address for logs and audit rows.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if reqID == "" || len(reqID) > maxRequestIDLength {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := requestctx.With(r.Context(), requestctx.Meta{RequestID: reqID, ClientIP: shared.ClientIP(r)})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}
