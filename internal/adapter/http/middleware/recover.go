package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
)

func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				err := fmt.Errorf("panic: %v", p)
				m.log.Error(wrap.WithAction(r.Context(), "panic_recovered"), "handler panicked", err, "stack", string(debug.Stack()))

				w.Header().Set("Connection", "close")
				errorResponse(w, http.StatusInternalServerError, internalErrorMessage)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
