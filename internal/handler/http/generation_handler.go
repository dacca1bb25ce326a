package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

const maxTriggerBody = 64 << 10

// Generator serves the generation endpoints
type Generator interface {
	Trigger(ctx context.Context, in models.GenerationTrigger, source models.TriggerSource) (*models.GenerationRequest, error)
	Status(ctx context.Context, id uuid.UUID) (*models.GenerationStatus, error)
}

// GenerateResponse is returned by POST /api/v1/generate
type GenerateResponse struct {
	RequestID uuid.UUID            `json:"request_id"`
	Status    models.RequestStatus `json:"status"`
	Path      string               `json:"path"`
	ErrorKind models.ErrorKind     `json:"error_kind,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// GenerationHandler handles artifact generation requests
type GenerationHandler struct {
	generator Generator
	logger    zerolog.Logger
}

// NewGenerationHandler creates a new generation HTTP handler
func NewGenerationHandler(generator Generator, logger zerolog.Logger) *GenerationHandler {
	return &GenerationHandler{
		generator: generator,
		logger:    logger.With().Str("component", "generation_handler").Logger(),
	}
}

// Generate handles POST /api/v1/generate. An open request for the same
// fingerprint is returned instead of a new one.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var in models.GenerationTrigger
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTriggerBody))
	if err := dec.Decode(&in); err != nil {
		errorResponse(w, r, h.logger, invalidInput("request body must be a JSON generation trigger"))
		return
	}

	req, err := h.generator.Trigger(r.Context(), in, models.SourceAPI)
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	status, err := h.generator.Status(r.Context(), req.ID)
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	code := http.StatusOK
	if status.Status.Open() {
		code = http.StatusAccepted
	}
	jsonResponse(w, h.logger, code, GenerateResponse{
		RequestID: status.RequestID,
		Status:    status.Status,
		Path:      status.Path,
		ErrorKind: status.ErrorKind,
		Error:     status.Error,
	})
}

// GetFile handles GET /api/v1/files/{request_id}
func (h *GenerationHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "request_id"))
	if err != nil {
		errorResponse(w, r, h.logger, invalidInput("request_id must be a UUID"))
		return
	}

	status, err := h.generator.Status(r.Context(), id)
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	jsonResponse(w, h.logger, http.StatusOK, status)
}
