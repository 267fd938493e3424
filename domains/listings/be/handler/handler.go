package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paramvora-myacara/oz-listings-api/domains/listings/be/service"
	platformlogging "github.com/paramvora-myacara/oz-listings-api/platform/go/logging"
	"github.com/paramvora-myacara/oz-listings-api/platform/go/problemdetails"
	"github.com/paramvora-myacara/oz-listings-api/platform/go/requesttrace"
)

const (
	problemTypeValidation   = "https://ozlistings.com/problems/validation-error"
	problemTypeUnauthorized = "https://ozlistings.com/problems/unauthorized"
	problemTypeNotFound     = "https://ozlistings.com/problems/not-found"
	problemTypeConflict     = "https://ozlistings.com/problems/conflict"
	problemTypeInternal     = "https://ozlistings.com/problems/internal-error"
)

type operation string

const (
	getOperation           operation = "listingsGet"
	listVersionsOperation  operation = "listingsListVersions"
	getVersionOperation    operation = "listingsGetVersion"
	createVersionOperation operation = "listingsCreateVersion"
	rollbackOperation      operation = "listingsRollback"
	createOperation        operation = "listingsCreate"
)

// Handler wires the listings service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("listings service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

type listingPayload struct {
	Slug                string          `json:"slug"`
	Title               string          `json:"title"`
	DeveloperWebsite    *string         `json:"developer_website,omitempty"`
	IsVerifiedOZProject bool            `json:"is_verified_oz_project"`
	HasVault            bool            `json:"has_vault"`
	IsDraft             bool            `json:"is_draft"`
	VersionNumber       int             `json:"version_number,omitempty"`
	Data                json.RawMessage `json:"data"`
	NewsLinks           json.RawMessage `json:"news_links"`
}

type versionMetaPayload struct {
	ID            uuid.UUID `json:"id"`
	VersionNumber int       `json:"version_number"`
	CreatedAt     time.Time `json:"created_at"`
	PublishedAt   time.Time `json:"published_at"`
	IsCurrent     bool      `json:"is_current"`
}

type versionPayload struct {
	ID            uuid.UUID       `json:"id"`
	VersionNumber int             `json:"version_number"`
	Data          json.RawMessage `json:"data"`
	NewsLinks     json.RawMessage `json:"news_links"`
	CreatedAt     time.Time       `json:"created_at"`
	PublishedAt   time.Time       `json:"published_at"`
}

type createdListingPayload struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	HasVault  bool      `json:"has_vault"`
	IsDraft   bool      `json:"is_draft"`
	CreatedAt time.Time `json:"created_at"`
}

type createVersionRequest struct {
	Data      json.RawMessage `json:"data"`
	NewsLinks json.RawMessage `json:"newsLinks"`
}

type rollbackRequest struct {
	VersionID string `json:"versionId"`
}

type createListingRequest struct {
	Slug      string          `json:"slug"`
	Title     string          `json:"title"`
	HasVault  *bool           `json:"hasVault"`
	Data      json.RawMessage `json:"data"`
	NewsLinks json.RawMessage `json:"newsLinks"`
}

// GetListing serves GET /api/v1/listings/{slug}.
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	published, metas, err := h.svc.GetPublished(r.Context(), audit, slug)
	if err != nil {
		h.writeError(r.Context(), w, err, getOperation)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"listing":  toListingPayload(published),
		"versions": toVersionMetaPayloads(metas),
	})
}

// ListVersions serves GET /api/v1/listings/{slug}/versions.
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	metas, err := h.svc.ListVersions(r.Context(), audit, slug)
	if err != nil {
		h.writeError(r.Context(), w, err, listVersionsOperation)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"versions": toVersionMetaPayloads(metas),
	})
}

// GetVersion serves GET /api/v1/listings/{slug}/versions/{versionId}.
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	versionID, err := uuid.Parse(chi.URLParam(r, "versionId"))
	if err != nil {
		h.writeProblem(w, http.StatusBadRequest, "Validation failed", "versionId must be a valid UUID", problemTypeValidation, nil)
		return
	}

	version, err := h.svc.GetVersion(r.Context(), audit, slug, versionID)
	if err != nil {
		h.writeError(r.Context(), w, err, getVersionOperation)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"version": toVersionPayload(version),
	})
}

// CreateVersion serves POST /api/v1/listings/{slug}/versions.
func (h *Handler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	var body createVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, http.StatusBadRequest, "Invalid request body", "request body must be valid JSON", problemTypeValidation, nil)
		return
	}

	version, err := h.svc.CreateVersion(r.Context(), audit, slug, service.CreateVersionInput{
		Data:      body.Data,
		NewsLinks: body.NewsLinks,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, createVersionOperation)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"version": toVersionPayload(version),
	})
}

// Rollback serves POST /api/v1/listings/{slug}/rollback.
func (h *Handler) Rollback(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	var body rollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, http.StatusBadRequest, "Invalid request body", "request body must be valid JSON", problemTypeValidation, nil)
		return
	}
	if body.VersionID == "" {
		h.writeProblem(w, http.StatusBadRequest, "Validation failed", "versionId is required", problemTypeValidation, nil)
		return
	}

	versionID, err := uuid.Parse(body.VersionID)
	if err != nil {
		h.writeProblem(w, http.StatusBadRequest, "Validation failed", "versionId must be a valid UUID", problemTypeValidation, nil)
		return
	}

	result, err := h.svc.Rollback(r.Context(), audit, slug, versionID)
	if err != nil {
		h.writeError(r.Context(), w, err, rollbackOperation)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "rolled back to version " + strconv.Itoa(result.VersionNumber),
	})
}

// CreateListing serves POST /api/v1/admin/listings.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	var body createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, http.StatusBadRequest, "Invalid request body", "request body must be valid JSON", problemTypeValidation, nil)
		return
	}

	input := service.CreateListingInput{
		Slug:      body.Slug,
		Title:     body.Title,
		HasVault:  true,
		Data:      body.Data,
		NewsLinks: body.NewsLinks,
	}
	if body.HasVault != nil {
		input.HasVault = *body.HasVault
	}

	listing, err := h.svc.CreateListing(r.Context(), audit, input)
	if err != nil {
		h.writeError(r.Context(), w, err, createOperation)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"listing": createdListingPayload{
			ID:        listing.ID,
			Slug:      listing.Slug,
			Title:     listing.Title,
			HasVault:  listing.HasVault,
			IsDraft:   listing.IsDraft,
			CreatedAt: listing.CreatedAt,
		},
	})
}

func toListingPayload(published service.Published) listingPayload {
	return listingPayload{
		Slug:                published.Slug,
		Title:               published.Title,
		DeveloperWebsite:    published.DeveloperWebsite,
		IsVerifiedOZProject: published.IsVerifiedOZProject,
		HasVault:            published.HasVault,
		IsDraft:             published.IsDraft,
		VersionNumber:       published.VersionNumber,
		Data:                published.Data,
		NewsLinks:           published.NewsLinks,
	}
}

func toVersionMetaPayloads(metas []service.VersionMeta) []versionMetaPayload {
	payloads := make([]versionMetaPayload, 0, len(metas))
	for _, meta := range metas {
		payloads = append(payloads, versionMetaPayload{
			ID:            meta.ID,
			VersionNumber: meta.VersionNumber,
			CreatedAt:     meta.CreatedAt,
			PublishedAt:   meta.PublishedAt,
			IsCurrent:     meta.IsCurrent,
		})
	}
	return payloads
}

func toVersionPayload(version service.Version) versionPayload {
	return versionPayload{
		ID:            version.ID,
		VersionNumber: version.VersionNumber,
		Data:          version.Data,
		NewsLinks:     version.NewsLinks,
		CreatedAt:     version.CreatedAt,
		PublishedAt:   version.PublishedAt,
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
		logger.Error("listings operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("listings resource not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("listings request rejected", append(fieldsForLog, zap.Error(err))...)
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
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized,
			"Unauthorized",
			"not authorized to edit this listing",
			problemTypeUnauthorized,
			nil
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound,
			"Resource not found",
			"listing not found",
			problemTypeNotFound,
			nil
	case errors.Is(err, service.ErrVersionNotFound):
		return http.StatusNotFound,
			"Resource not found",
			"listing version not found",
			problemTypeNotFound,
			nil
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict,
			"Conflict",
			"listing version conflict",
			problemTypeConflict,
			nil
	case errors.Is(err, service.ErrSlugConflict):
		return http.StatusConflict,
			"Conflict",
			"listing slug already exists",
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
