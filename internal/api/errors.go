package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"batch-health/internal/cache"
	"batch-health/internal/config"
	"batch-health/internal/ingest"
	"batch-health/internal/render"
	"batch-health/internal/zones"

	"github.com/go-playground/validator/v10"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(code string, status int, err error) *AppError {
	return &AppError{Code: code, Message: err.Error(), StatusCode: status, Err: err}
}

// FromError maps domain errors to an HTTP-facing error.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var perr *ingest.ParseError
	if errors.As(err, &perr) {
		e := newAppError("PARSE_ERROR", http.StatusBadRequest, err)
		e.Details = map[string]any{
			"row":   perr.Row,
			"label": perr.Label,
			"field": perr.Field,
			"raw":   perr.Raw,
		}
		return e
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]map[string]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, map[string]string{
				"field": fe.Namespace(),
				"rule":  fe.Tag(),
			})
		}
		e := newAppError("VALIDATION_ERROR", http.StatusBadRequest, err)
		e.Details = map[string]any{"fields": fields}
		return e
	}

	switch {
	case errors.Is(err, zones.ErrInvalidBounds):
		return newAppError("INVALID_BOUNDS", http.StatusBadRequest, err)
	case errors.Is(err, zones.ErrEmptySeries):
		return newAppError("EMPTY_SERIES", http.StatusBadRequest, err)
	case errors.Is(err, render.ErrNothingToRender):
		return newAppError("EMPTY_SERIES", http.StatusBadRequest, err)
	case errors.Is(err, zones.ErrUnknownDirection), errors.Is(err, zones.ErrUnknownStrategy):
		return newAppError("INVALID_RULE", http.StatusBadRequest, err)
	case errors.Is(err, ingest.ErrMissingColumn), errors.Is(err, ingest.ErrNoHeader):
		return newAppError("INVALID_CSV", http.StatusBadRequest, err)
	case errors.Is(err, config.ErrUnknownRule):
		return newAppError("UNKNOWN_RULE", http.StatusNotFound, err)
	case errors.Is(err, cache.ErrReportNotFound):
		return newAppError("NOT_FOUND", http.StatusNotFound, err)
	}

	return &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "internal server error",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) *AppError {
	appErr := FromError(err)
	writeJSON(w, appErr.StatusCode, appErr)
	return appErr
}
