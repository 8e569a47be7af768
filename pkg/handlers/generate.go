package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/apperrors"
	"github.com/matura-ai/matura-engine/pkg/config"
	"github.com/matura-ai/matura-engine/pkg/hybrid"
	"github.com/matura-ai/matura-engine/pkg/logging"
	"github.com/matura-ai/matura-engine/pkg/models"
	"github.com/matura-ai/matura-engine/pkg/repositories"
	"github.com/matura-ai/matura-engine/pkg/store"
)

// GenerateRequest is the body for both generation endpoints.
type GenerateRequest struct {
	Idea string `json:"idea"`
	// Mode selects the quality tier: quick, advanced or premium.
	// Empty selects the configured default.
	Mode string `json:"mode,omitempty"`
	// Name overrides the derived app name.
	Name string `json:"name,omitempty"`
	// UseDesignSystem enables the design synthesis stage (hybrid only).
	UseDesignSystem bool `json:"use_design_system,omitempty"`
	// EnhanceIdea runs a creative idea rewrite first (hybrid only).
	EnhanceIdea bool `json:"enhance_idea,omitempty"`
}

// GenerateResponse is the body returned by both generation endpoints.
type GenerateResponse struct {
	Success bool                     `json:"success"`
	App     *models.GeneratedApp     `json:"app"`
	Result  *models.GenerationResult `json:"result"`
	// Saved is false when generation succeeded but persistence failed;
	// the generated app is still returned.
	Saved bool `json:"saved"`
}

// GenerateHandler handles the generation endpoints.
type GenerateHandler struct {
	orchestrator *hybrid.Orchestrator
	apps         repositories.AppRepository
	tables       *store.TableStore
	pipeline     *config.PipelineConfig
	logger       *zap.Logger
}

// NewGenerateHandler creates a new GenerateHandler.
func NewGenerateHandler(
	orchestrator *hybrid.Orchestrator,
	apps repositories.AppRepository,
	tables *store.TableStore,
	pipeline *config.PipelineConfig,
	logger *zap.Logger,
) *GenerateHandler {
	return &GenerateHandler{
		orchestrator: orchestrator,
		apps:         apps,
		tables:       tables,
		pipeline:     pipeline,
		logger:       logger,
	}
}

// RegisterRoutes registers the generation routes on the given mux.
func (h *GenerateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/generate", h.Generate)
	mux.HandleFunc("POST /api/generate/hybrid", h.GenerateHybrid)
}

// Generate handles POST /api/generate: the plain pipeline with no design
// stage and no idea enhancement.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	req, tier, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	h.run(r.Context(), w, req, &hybrid.Request{
		Idea: req.Idea,
		Tier: tier,
	})
}

// GenerateHybrid handles POST /api/generate/hybrid: the full pipeline with
// optional design synthesis and idea enhancement.
func (h *GenerateHandler) GenerateHybrid(w http.ResponseWriter, r *http.Request) {
	req, tier, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	h.run(r.Context(), w, req, &hybrid.Request{
		Idea:            req.Idea,
		Tier:            tier,
		UseDesignSystem: req.UseDesignSystem,
		EnhanceIdea:     req.EnhanceIdea,
	})
}

// decodeRequest parses and validates the request body. Validation failures
// are answered before any provider call happens.
func (h *GenerateHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*GenerateRequest, models.QualityTier, bool) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return nil, "", false
	}
	if strings.TrimSpace(req.Idea) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "validation_error", "idea must not be empty")
		return nil, "", false
	}

	tier, ok := models.ParseTier(req.Mode, h.pipeline.DefaultTier)
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "validation_error", "mode must be quick, advanced or premium")
		return nil, "", false
	}
	return &req, tier, true
}

// run executes the pipeline and persists the result best-effort.
func (h *GenerateHandler) run(ctx context.Context, w http.ResponseWriter, req *GenerateRequest, pipelineReq *hybrid.Request) {
	result, err := h.orchestrator.Generate(ctx, pipelineReq)
	if err != nil {
		h.logger.Error("generation failed",
			zap.String("idea", logging.TruncateForLog(req.Idea, 120)),
			zap.Error(err))
		_ = WriteError(w, err)
		return
	}

	// Register the schema so /api/crud/{table} serves the app immediately.
	if err := h.tables.RegisterSchema(result.Schema); err != nil {
		h.logger.Warn("failed to register table schema",
			zap.String("table", result.Schema.TableName),
			zap.Error(err))
	}

	app := &models.GeneratedApp{
		Name:        req.Name,
		Description: result.Intent.PrimaryPurpose,
		IdeaText:    req.Idea,
		Schema:      result.Schema,
		Code:        result.Code,
	}
	if app.Name == "" {
		app.Name = strings.ReplaceAll(result.Schema.TableName, "_", " ")
	}

	saved := true
	if err := h.apps.Create(ctx, app); err != nil {
		// Persistence failures never discard a successful generation.
		var persistErr *apperrors.PersistenceError
		if !errors.As(err, &persistErr) {
			persistErr = apperrors.NewPersistenceError("create", err)
		}
		h.logger.Error("failed to persist generated app", zap.Error(persistErr))
		saved = false
	}

	_ = WriteJSON(w, http.StatusOK, &GenerateResponse{
		Success: true,
		App:     app,
		Result:  result,
		Saved:   saved,
	})
}
