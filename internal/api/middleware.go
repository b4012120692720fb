package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/punchamoorthee/tuitionledger/internal/auth"
	"github.com/punchamoorthee/tuitionledger/internal/domain"
)

type ctxKey int

const (
	principalKey ctxKey = iota
	requestIDKey
)

const requestIDHeader = "X-Request-ID"

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func principalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}

// require resolves the bearer token through the gate before calling next.
// An empty role admits any authenticated principal.
func (h *Handler) require(role auth.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			h.fail(w, r, "authorize", domain.ErrInvalidToken)
			return
		}
		p, err := h.gate.Authorize(token, role)
		if err != nil {
			h.fail(w, r, "authorize", err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	}
}

func (h *Handler) admin(next http.HandlerFunc) http.HandlerFunc {
	return h.require(auth.RoleAdmin, next)
}

func (h *Handler) student(next http.HandlerFunc) http.HandlerFunc {
	return h.require(auth.RoleStudent, next)
}

func (h *Handler) anyone(next http.HandlerFunc) http.HandlerFunc {
	return h.require("", next)
}
