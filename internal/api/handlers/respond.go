package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wonny/aegis-allocator/internal/archive"
	"github.com/wonny/aegis-allocator/internal/contracts"
)

// DefaultMaxBodyBytes 요청 본문 최대 크기
const DefaultMaxBodyBytes = 8 << 20

// ErrorResponse error body; Result carries the partial pipeline result when present
type ErrorResponse struct {
	Error  string      `json:"error"`
	Result interface{} `json:"result,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// StatusFor maps engine errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrInvalidConfig),
		errors.Is(err, contracts.ErrUnknownObjective),
		errors.Is(err, contracts.ErrInfeasibleConstraints),
		errors.Is(err, contracts.ErrMalformedScenario):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, archive.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads one JSON object, rejecting unknown fields and trailing data
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dest interface{}) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid request body: unexpected trailing data")
	}
	return nil
}
