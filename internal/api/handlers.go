package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/punchamoorthee/tuitionledger/internal/auth"
	"github.com/punchamoorthee/tuitionledger/internal/domain"
	"github.com/punchamoorthee/tuitionledger/internal/models"
	"github.com/punchamoorthee/tuitionledger/internal/service"
	"go.uber.org/zap"
)

// Pinger reports whether the ledger store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	gate     *auth.Gate
	auth     *auth.Authenticator
	payments *service.PaymentService
	reports  *service.Reports
	registry *service.RegistryService
	db       Pinger
	loc      *time.Location
	logger   *zap.Logger
}

type Deps struct {
	Gate     *auth.Gate
	Auth     *auth.Authenticator
	Payments *service.PaymentService
	Reports  *service.Reports
	Registry *service.RegistryService
	DB       Pinger
	Location *time.Location
	Logger   *zap.Logger
}

func NewHandler(d Deps) *Handler {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		gate:     d.Gate,
		auth:     d.Auth,
		payments: d.Payments,
		reports:  d.Reports,
		registry: d.Registry,
		db:       d.DB,
		loc:      loc,
		logger:   d.Logger.With(zap.String("component", "http")),
	}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("Health check failed", zap.Error(err))
		h.respond(w, r, http.StatusServiceUnavailable, "database unreachable",
			models.HealthResponse{Status: "degraded", Database: "down"})
		return
	}
	h.respond(w, r, http.StatusOK, "ok", models.HealthResponse{Status: "ok", Database: "up"})
}

func (h *Handler) StudentLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.StudentLoginRequest
	if err := models.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "student_login", err)
		return
	}
	sess, err := h.auth.LoginStudent(r.Context(), req.Matricule, req.Password)
	if err != nil {
		h.fail(w, r, "student_login", err, zap.String("matricule", req.Matricule))
		return
	}
	h.respond(w, r, http.StatusOK, "login successful", sess)
}

func (h *Handler) AdminLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if err := models.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "admin_login", err)
		return
	}
	sess, err := h.auth.LoginAdmin(req.Username, req.Password)
	if err != nil {
		h.fail(w, r, "admin_login", err, zap.String("username", req.Username))
		return
	}
	h.respond(w, r, http.StatusOK, "login successful", sess)
}

func (h *Handler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.respondError(w, r, http.StatusNotFound, "NotFound", "endpoint not found")
}

func (h *Handler) MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	h.respondError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
}

// statusFor maps an error kind onto its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err with the request context and writes a client-safe error body.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error, fields ...zap.Field) {
	code := statusFor(err)
	fields = append(fields,
		zap.String("action", action),
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", code),
		zap.Error(err),
	)
	if p, ok := principalFrom(r.Context()); ok {
		fields = append(fields, zap.String("actor", p.Subject), zap.String("role", string(p.Role)))
	}

	if code == http.StatusInternalServerError {
		h.logger.Error("Request failed", fields...)
		h.respondError(w, r, code, "InternalError", "internal server error")
		return
	}
	h.logger.Warn("Request rejected", fields...)
	h.respondError(w, r, code, domain.CodeOf(err), domain.MessageOf(err))
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, code int, msg string, data any) {
	respondWithJSON(w, r, code, models.Envelope{
		Success: code < http.StatusBadRequest,
		Message: msg,
		Data:    data,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, code int, errCode, msg string) {
	if msg == "" {
		msg = http.StatusText(code)
	}
	respondWithJSON(w, r, code, models.Envelope{Success: false, Message: msg, Code: errCode})
}

func respondWithJSON(w http.ResponseWriter, r *http.Request, code int, payload interface{}) {
	countRequest(r, code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
