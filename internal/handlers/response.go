package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"coursehub-backend/internal/models"
	"coursehub-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
		Details: fields,
	}
}

// reconciliationDetails tells the admin UI exactly what was persisted before
// the failure so it does not resubmit applied changes.
type reconciliationDetails struct {
	Stage          string           `json:"stage"`
	FailedAt       *int             `json:"failed_at,omitempty"`
	AppliedLessons []*models.Lesson `json:"applied_lessons"`
}

func handleServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var (
		validationErr *services.ValidationError
		conflictErr   *services.ConflictError
		notFoundErr   *services.NotFoundError
		forbiddenErr  *services.ForbiddenError
		storeErr      *services.StoreError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validationErr.Fields, r))
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", conflictErr.Message, r))
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFoundErr.Message, r))
	case errors.As(err, &forbiddenErr):
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", forbiddenErr.Message, r))
	case errors.As(err, &storeErr):
		log.Error("store error", zap.String("op", storeErr.Op), zap.Error(storeErr.Err))
		writeJSON(w, http.StatusInternalServerError, errorResp("STORE_ERROR", "The data store could not complete the request", r))
	default:
		log.Error("unexpected error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

func writeReconciliationFailure(w http.ResponseWriter, r *http.Request, failure *services.ReconciliationFailedError, result *services.ApplyResult) {
	details := reconciliationDetails{
		Stage:          failure.Stage,
		AppliedLessons: []*models.Lesson{},
	}
	if failure.Stage == services.StageUpsert {
		idx := failure.Index
		details.FailedAt = &idx
	}
	if result != nil && result.Applied != nil {
		details.AppliedLessons = result.Applied
	}

	resp := errorResp("RECONCILIATION_FAILED", failure.Error(), r)
	resp.Details = details
	writeJSON(w, http.StatusInternalServerError, resp)
}
