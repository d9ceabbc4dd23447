package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/iho/chainledger/internal/domain"
	"github.com/iho/chainledger/internal/usecase/mocks"
)

func TestIdempotencyMiddleware(t *testing.T) {
	newRequest := func(key string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", strings.NewReader(`{}`))
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		user := &domain.User{ID: "user-1", Role: domain.RoleAccountant}
		return req.WithContext(context.WithValue(req.Context(), UserContextKey, user))
	}

	t.Run("first request runs the handler and stores the response", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIdempotencyStore(ctrl)

		scoped := "POST:/api/v1/entries:user-1:abc"
		store.EXPECT().CheckAndSet(gomock.Any(), scoped, gomock.Nil(), idempotencyTTL).Return(false, nil, nil)
		store.EXPECT().Update(gomock.Any(), scoped, []byte(`{"entry_number":"JE-1"}`), idempotencyTTL).Return(nil)

		m := NewIdempotencyMiddleware(store)
		h := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"entry_number":"JE-1"}`))
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newRequest("abc"))

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
	})

	t.Run("repeat request replays without running the handler", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIdempotencyStore(ctrl)

		cached := []byte(`{"entry_number":"JE-1"}`)
		store.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Nil(), idempotencyTTL).Return(true, cached, nil)

		m := NewIdempotencyMiddleware(store)
		h := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run on replay")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newRequest("abc"))

		if rec.Header().Get("X-Idempotency-Replay") != "true" {
			t.Error("expected replay marker header")
		}
		if rec.Body.String() != string(cached) {
			t.Errorf("expected cached body, got %s", rec.Body.String())
		}
	})

	t.Run("duplicate racing an in-flight request gets a conflict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIdempotencyStore(ctrl)

		store.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Nil(), idempotencyTTL).
			Return(true, []byte(inFlightMarker), nil)

		m := NewIdempotencyMiddleware(store)
		h := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run while the first request is in flight")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newRequest("abc"))

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		if rec.Header().Get("X-Idempotency-Replay") == "true" {
			t.Fatal("the placeholder must never be replayed as a response")
		}
	})

	t.Run("failed responses are not stored", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIdempotencyStore(ctrl)

		store.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Nil(), idempotencyTTL).Return(false, nil, nil)

		m := NewIdempotencyMiddleware(store)
		h := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newRequest("abc"))

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("requests without a key pass through", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIdempotencyStore(ctrl)

		m := NewIdempotencyMiddleware(store)
		called := false
		h := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newRequest(""))

		if !called {
			t.Error("expected handler to run")
		}
	})

	t.Run("GET bypasses idempotency entirely", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIdempotencyStore(ctrl)

		m := NewIdempotencyMiddleware(store)
		called := false
		h := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
		req.Header.Set(IdempotencyKeyHeader, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if !called {
			t.Error("expected handler to run")
		}
	})
}
