package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"coursehub-backend/internal/middleware"
	"coursehub-backend/internal/models"
	"coursehub-backend/internal/services"
)

type lessonService interface {
	BulkReconcile(ctx context.Context, actorID, courseID uuid.UUID, req models.BulkLessonRequest) (*services.ApplyResult, error)
	ListLessons(ctx context.Context, courseID uuid.UUID) ([]*models.Lesson, error)
}

type LessonHandler struct {
	service lessonService
	log     *zap.Logger
}

func NewLessonHandler(service lessonService, log *zap.Logger) *LessonHandler {
	return &LessonHandler{service: service, log: log}
}

func (h *LessonHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(chi.URLParam(r, "courseID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid course ID", r))
		return
	}

	var req models.BulkLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	actorID := middleware.GetUserID(r.Context())
	result, err := h.service.BulkReconcile(r.Context(), actorID, courseID, req)
	if err != nil {
		var failure *services.ReconciliationFailedError
		if errors.As(err, &failure) {
			writeReconciliationFailure(w, r, failure, result)
			return
		}
		handleServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, models.BulkLessonResponse{
		Message: "Lessons updated successfully",
		Lessons: result.Applied,
	})
}

func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(chi.URLParam(r, "courseID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid course ID", r))
		return
	}

	lessons, err := h.service.ListLessons(r.Context(), courseID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if lessons == nil {
		lessons = []*models.Lesson{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lessons": lessons,
	})
}
