package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"coursehub-backend/internal/middleware"
	"coursehub-backend/internal/models"
	"coursehub-backend/internal/validate"
)

type progressTracker interface {
	Report(u models.ProgressUpdate)
	Get(ctx context.Context, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*models.ProgressRecord, error)
}

type ProgressHandler struct {
	tracker   progressTracker
	validator *validate.Validator
	log       *zap.Logger
}

func NewProgressHandler(tracker progressTracker, validator *validate.Validator, log *zap.Logger) *ProgressHandler {
	return &ProgressHandler{tracker: tracker, validator: validator, log: log}
}

// Report accepts a playback tick. The write happens later (debounced) or right
// away on completion; either way the response does not wait for it.
func (h *ProgressHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req models.ProgressReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	update, fields := ProgressUpdateFromReport(h.validator, userID, req)
	if fields != nil {
		if _, forbidden := fields["user_id"]; forbidden {
			writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", fields["user_id"], r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	h.tracker.Report(update)

	writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}

// ProgressUpdateFromReport validates a report on behalf of the authenticated user.
func ProgressUpdateFromReport(v *validate.Validator, userID uuid.UUID, req models.ProgressReport) (models.ProgressUpdate, map[string]string) {
	if req.UserID != nil && *req.UserID != userID {
		return models.ProgressUpdate{}, map[string]string{"user_id": "Progress can only be reported for yourself"}
	}
	if fields := v.Struct(req); fields != nil {
		return models.ProgressUpdate{}, fields
	}
	return models.ProgressUpdate{
		UserID:             userID,
		LessonID:           req.LessonID,
		CourseID:           req.CourseID,
		ProgressPercentage: req.ProgressPercentage,
		WatchTimeSeconds:   req.WatchTimeSeconds,
		Completed:          req.Completed,
	}, nil
}

func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(chi.URLParam(r, "courseID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid course ID", r))
		return
	}

	raw := r.URL.Query()["lesson_id"]
	if len(raw) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "At least one lesson_id is required", r))
		return
	}
	lessonIDs := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid lesson_id: "+s, r))
			return
		}
		lessonIDs = append(lessonIDs, id)
	}

	userID := middleware.GetUserID(r.Context())
	records, err := h.tracker.Get(r.Context(), userID, lessonIDs)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	progress := make([]*models.ProgressRecord, 0, len(records))
	for _, rec := range records {
		if rec.CourseID == courseID {
			progress = append(progress, rec)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"progress": progress,
	})
}
