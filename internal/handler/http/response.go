package http

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   models.ErrorKind `json:"error"`
	Message string           `json:"message"`
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindUpstreamUnavailable:
		return http.StatusBadGateway
	case models.KindUpstreamRejected:
		return http.StatusForbidden
	case models.KindUnsupportedMarket, models.KindInvalidInput, models.KindMalformedQuote, models.KindInsufficientQuotes:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, logger zerolog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// errorResponse writes err as a JSON error. Internal causes are logged and
// never sent to the client.
func errorResponse(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	kind := models.KindOf(err)
	status := statusFor(kind)

	event := logger.Debug()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("path", r.URL.Path).
		Str("error_kind", string(kind)).
		Int("status", status).
		Msg("request failed")

	jsonResponse(w, logger, status, ErrorResponse{Error: kind, Message: models.MessageOf(err)})
}

func invalidInput(msg string) error {
	return models.NewError(models.KindInvalidInput, msg, nil)
}
