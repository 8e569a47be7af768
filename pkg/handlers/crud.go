package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/models"
	"github.com/matura-ai/matura-engine/pkg/store"
)

// CRUDHandler serves the dynamic /api/crud/{table} contract that every
// generated app targets.
type CRUDHandler struct {
	tables *store.TableStore
	logger *zap.Logger
}

// NewCRUDHandler creates a new CRUDHandler.
func NewCRUDHandler(tables *store.TableStore, logger *zap.Logger) *CRUDHandler {
	return &CRUDHandler{tables: tables, logger: logger}
}

// RegisterRoutes registers the CRUD routes on the given mux.
func (h *CRUDHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/crud/{table}", h.List)
	mux.HandleFunc("POST /api/crud/{table}", h.Create)
	mux.HandleFunc("PUT /api/crud/{table}", h.Update)
	mux.HandleFunc("DELETE /api/crud/{table}", h.Delete)
}

// List handles GET /api/crud/{table}. With ?id= it returns one record.
func (h *CRUDHandler) List(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	if id := r.URL.Query().Get("id"); id != "" {
		record, err := h.tables.GetByID(table, id)
		if err != nil {
			_ = WriteError(w, err)
			return
		}
		_ = WriteJSON(w, http.StatusOK, record)
		return
	}

	records, err := h.tables.Get(table)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, records)
}

// Create handles POST /api/crud/{table}.
func (h *CRUDHandler) Create(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	record, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	stored, err := h.tables.Insert(table, record)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	h.logger.Debug("record created",
		zap.String("table", table),
		zap.String("id", stored.ID()))
	_ = WriteJSON(w, http.StatusCreated, stored)
}

// Update handles PUT /api/crud/{table}?id={id}.
func (h *CRUDHandler) Update(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	id := r.URL.Query().Get("id")
	if id == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "validation_error", "id query parameter is required")
		return
	}

	patch, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	updated, err := h.tables.Update(table, id, patch)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/crud/{table}?id={id}.
func (h *CRUDHandler) Delete(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	id := r.URL.Query().Get("id")
	if id == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "validation_error", "id query parameter is required")
		return
	}

	if err := h.tables.Delete(table, id); err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// decodeRecord parses a JSON object body into a record.
func decodeRecord(w http.ResponseWriter, r *http.Request) (models.Record, bool) {
	var record models.Record
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be a JSON object")
		return nil, false
	}
	return record, true
}
