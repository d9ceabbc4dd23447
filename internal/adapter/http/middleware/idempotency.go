package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/iho/chainledger/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	idempotencyTTL       = 24 * time.Hour

	// inFlightMarker is the placeholder the store writes while the
	// first request is still being handled.
	inFlightMarker = "processing"
)

// IdempotencyMiddleware replays cached responses for repeated mutating
// requests carrying the same key. The stored key is scoped to method,
// path and acting user so a key cannot replay across endpoints or
// actors.
type IdempotencyMiddleware struct {
	store usecase.IdempotencyStore
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{store: store}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		scoped := scopedKey(r, key)

		exists, cachedResponse, err := m.store.CheckAndSet(r.Context(), scoped, nil, idempotencyTTL)
		if err != nil {
			http.Error(w, "idempotency check failed", http.StatusInternalServerError)
			return
		}

		if exists {
			// The placeholder means the first request is still being
			// handled; replaying it would hand back the marker itself.
			if string(cachedResponse) == inFlightMarker {
				http.Error(w, "request with this idempotency key is in flight", http.StatusConflict)
				return
			}
			if len(cachedResponse) > 0 {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Replay", "true")
				w.Write(cachedResponse)
				return
			}
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode >= 200 && recorder.statusCode < 300 {
			m.store.Update(r.Context(), scoped, recorder.body.Bytes(), idempotencyTTL)
		}
	})
}

func scopedKey(r *http.Request, key string) string {
	actor := ""
	if user, ok := GetUserFromContext(r.Context()); ok {
		actor = user.ID
	}
	return r.Method + ":" + r.URL.Path + ":" + actor + ":" + key
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
