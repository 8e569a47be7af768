package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/models"
	"github.com/matura-ai/matura-engine/pkg/repositories"
	"github.com/matura-ai/matura-engine/pkg/store"
)

// AppListResponse for GET /api/apps.
type AppListResponse struct {
	Apps  []*models.GeneratedApp `json:"apps"`
	Total int                    `json:"total"`
}

// UpdateAppRequest for PUT /api/apps/{id}. Omitted fields keep their
// current values.
type UpdateAppRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Code        *string `json:"code,omitempty"`
}

// CreateAppRequest for POST /api/apps. Used to import an app that was
// generated elsewhere or assembled by hand.
type CreateAppRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	IdeaText    string         `json:"idea_text,omitempty"`
	Schema      *models.Schema `json:"schema,omitempty"`
	Code        string         `json:"code"`
}

// AppsHandler handles stored generated apps.
type AppsHandler struct {
	apps   repositories.AppRepository
	tables *store.TableStore
	logger *zap.Logger
}

// NewAppsHandler creates a new AppsHandler.
func NewAppsHandler(apps repositories.AppRepository, tables *store.TableStore, logger *zap.Logger) *AppsHandler {
	return &AppsHandler{apps: apps, tables: tables, logger: logger}
}

// RegisterRoutes registers the app routes on the given mux.
func (h *AppsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/apps", h.List)
	mux.HandleFunc("POST /api/apps", h.Create)
	mux.HandleFunc("GET /api/apps/{id}", h.Get)
	mux.HandleFunc("PUT /api/apps/{id}", h.Update)
	mux.HandleFunc("DELETE /api/apps/{id}", h.Delete)
}

// List handles GET /api/apps. ?limit= bounds the result.
func (h *AppsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			_ = ErrorResponse(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	apps, err := h.apps.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list apps", zap.Error(err))
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, &AppListResponse{Apps: apps, Total: len(apps)})
}

// Create handles POST /api/apps.
func (h *AppsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	if req.Name == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}
	if req.Code == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "validation_error", "code is required")
		return
	}
	if req.Schema != nil {
		req.Schema.EnsureBaseFields()
		if err := req.Schema.Validate(); err != nil {
			_ = WriteError(w, err)
			return
		}
	}

	app := &models.GeneratedApp{
		Name:        req.Name,
		Description: req.Description,
		IdeaText:    req.IdeaText,
		Schema:      req.Schema,
		Code:        req.Code,
	}
	if err := h.apps.Create(r.Context(), app); err != nil {
		h.logger.Error("failed to create app", zap.Error(err))
		_ = WriteError(w, err)
		return
	}

	if app.Schema != nil {
		if err := h.tables.RegisterSchema(app.Schema); err != nil {
			h.logger.Warn("failed to register table schema",
				zap.String("table", app.Schema.TableName),
				zap.Error(err))
		}
	}
	_ = WriteJSON(w, http.StatusCreated, app)
}

// Get handles GET /api/apps/{id}.
func (h *AppsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppID(w, r)
	if !ok {
		return
	}

	app, err := h.apps.Get(r.Context(), id)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	// Re-register the schema so the app's table serves CRUD traffic even
	// after a restart emptied the in-memory store.
	if app.Schema != nil {
		if err := h.tables.RegisterSchema(app.Schema); err != nil {
			h.logger.Warn("failed to re-register table schema",
				zap.String("table", app.Schema.TableName),
				zap.Error(err))
		}
	}
	_ = WriteJSON(w, http.StatusOK, app)
}

// Update handles PUT /api/apps/{id}. Only name, description and code are
// mutable; the schema stays bound to the generated code.
func (h *AppsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppID(w, r)
	if !ok {
		return
	}

	var req UpdateAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}

	app, err := h.apps.Get(r.Context(), id)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	if req.Name != nil {
		app.Name = *req.Name
	}
	if req.Description != nil {
		app.Description = *req.Description
	}
	if req.Code != nil {
		app.Code = *req.Code
	}

	if err := h.apps.Update(r.Context(), app); err != nil {
		h.logger.Error("failed to update app", zap.String("id", id.String()), zap.Error(err))
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, app)
}

// Delete handles DELETE /api/apps/{id}. The app's table and records stay
// in the dynamic store; other apps may share the table.
func (h *AppsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppID(w, r)
	if !ok {
		return
	}

	if err := h.apps.Delete(r.Context(), id); err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// parseAppID extracts and validates the {id} path segment.
func parseAppID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "validation_error", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
