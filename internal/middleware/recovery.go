// File: internal/middleware/recovery.go
package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"

	"badgehub/internal/contextutils"

	"go.uber.org/zap"
)

// Recovery converts panics into 500 responses instead of dropped
// connections, logging the stack for diagnosis.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					stack := make([]byte, 8192)
					stack = stack[:runtime.Stack(stack, false)]

					logger.Error("panic recovered",
						zap.String("request_id", contextutils.GetRequestID(r.Context())),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec),
						zap.String("stack", string(stack)),
					)

					writePanicResponse(w, r)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writePanicResponse(w http.ResponseWriter, r *http.Request) {
	// Headers may already be gone if the handler panicked mid-write.
	defer func() { _ = recover() }()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error": map[string]string{
			"type":    "INTERNAL_ERROR",
			"message": "An internal error occurred",
		},
		"request_id": contextutils.GetRequestID(r.Context()),
	})
}
