package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/domain/types"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
)

// RequestID reuses the incoming X-Request-ID or generates one, echoes it back
// and puts it into the context and the log context.
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(types.RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}

		w.Header().Set(types.RequestIDHeader, id)

		ctx := types.WithRequestIDContext(r.Context(), id)
		ctx = wrap.WithRequestID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
