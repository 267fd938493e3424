package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paramvora-myacara/oz-listings-api/domains/admins/be/service"
	platformauth "github.com/paramvora-myacara/oz-listings-api/platform/go/auth"
	platformlogging "github.com/paramvora-myacara/oz-listings-api/platform/go/logging"
	"github.com/paramvora-myacara/oz-listings-api/platform/go/persistence"
	"github.com/paramvora-myacara/oz-listings-api/platform/go/problemdetails"
	"github.com/paramvora-myacara/oz-listings-api/platform/go/requesttrace"
)

const (
	problemTypeValidation   = "https://ozlistings.com/problems/validation-error"
	problemTypeUnauthorized = "https://ozlistings.com/problems/unauthorized"
	problemTypeConflict     = "https://ozlistings.com/problems/conflict"
	problemTypeInternal     = "https://ozlistings.com/problems/internal-error"
)

type operation string

const (
	loginOperation  operation = "adminsLogin"
	logoutOperation operation = "adminsLogout"
	meOperation     operation = "adminsMe"
)

// Handler wires the admins service to the HTTP surface.
type Handler struct {
	svc          service.Service
	logger       *zap.Logger
	cookieSecure bool
}

// New constructs a Handler instance. cookieSecure controls the Secure
// attribute on the session cookie; disable it only for local development.
func New(svc service.Service, logger *zap.Logger, cookieSecure bool) *Handler {
	if svc == nil {
		panic("admins service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger, cookieSecure: cookieSecure}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminPayload struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// Login serves POST /api/v1/admin/login. The session token travels both as an
// HttpOnly cookie and in the body, for browser and API clients respectively.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, http.StatusBadRequest, "Invalid request body", "request body must be valid JSON", problemTypeValidation, nil)
		return
	}

	session, err := h.svc.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeError(r.Context(), w, err, loginOperation)
		return
	}

	http.SetCookie(w, h.sessionCookie(session.Token, session.ExpiresAt))

	h.writeJSON(w, http.StatusOK, map[string]any{
		"admin":      toAdminPayload(session.Admin),
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
	})
}

// Logout serves POST /api/v1/admin/logout. Revokes the presented session and
// clears the cookie. Always succeeds for a client that had no session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, found := platformauth.ExtractSessionToken(r); found {
		if err := h.svc.Logout(r.Context(), token); err != nil {
			h.writeError(r.Context(), w, err, logoutOperation)
			return
		}
	}

	http.SetCookie(w, h.expiredSessionCookie())

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

// Me serves GET /api/v1/admin/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	profile, err := h.svc.Me(r.Context(), audit)
	if err != nil {
		h.writeError(r.Context(), w, err, meOperation)
		return
	}

	listings := profile.Listings
	if listings == nil {
		listings = []persistence.GrantedListing{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"admin":    toAdminPayload(profile.Admin),
		"listings": listings,
	})
}

func (h *Handler) sessionCookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     platformauth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) expiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     platformauth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func toAdminPayload(admin service.Admin) adminPayload {
	return adminPayload{
		ID:    admin.ID,
		Email: admin.Email,
		Role:  string(admin.Role),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, op operation) {
	status, title, detail, problemType, fields := h.classifyError(err)

	logger := h.loggerFrom(ctx)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("admins operation failed", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("admins request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	h.writeProblem(w, status, title, detail, problemType, fields)
}

func (h *Handler) classifyError(err error) (status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest,
			"Validation failed",
			"one or more fields are invalid",
			problemTypeValidation,
			validationErr.Fields
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized,
			"Unauthorized",
			"invalid email or password",
			problemTypeUnauthorized,
			nil
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized,
			"Unauthorized",
			"authentication required",
			problemTypeUnauthorized,
			nil
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict,
			"Conflict",
			"admin email already exists",
			problemTypeConflict,
			nil
	default:
		return http.StatusInternalServerError,
			"Internal server error",
			"an unexpected error occurred",
			problemTypeInternal,
			nil
	}
}

func (h *Handler) writeProblem(w http.ResponseWriter, status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	problem := problemdetails.ProblemDetails{
		Title:  title,
		Status: status,
		Detail: detail,
		Type:   problemType,
	}

	if len(fieldErrors) > 0 {
		copied := make(map[string][]string, len(fieldErrors))
		for field, messages := range fieldErrors {
			copied[field] = append([]string(nil), messages...)
		}
		problem.Errors = copied
	}

	problemdetails.Write(w, problem)
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
