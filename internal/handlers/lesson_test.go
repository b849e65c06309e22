package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coursehub-backend/internal/middleware"
	"coursehub-backend/internal/models"
	"coursehub-backend/internal/services"
)

type stubLessonService struct {
	gotReq    models.BulkLessonRequest
	gotCourse uuid.UUID
	gotActor  uuid.UUID
	result    *services.ApplyResult
	err       error
	lessons   []*models.Lesson
}

func (s *stubLessonService) BulkReconcile(_ context.Context, actorID, courseID uuid.UUID, req models.BulkLessonRequest) (*services.ApplyResult, error) {
	s.gotActor, s.gotCourse, s.gotReq = actorID, courseID, req
	return s.result, s.err
}

func (s *stubLessonService) ListLessons(_ context.Context, _ uuid.UUID) ([]*models.Lesson, error) {
	return s.lessons, s.err
}

func withCourse(req *http.Request, courseID string, userID uuid.UUID) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("courseID", courseID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestBulkUpdate_Success(t *testing.T) {
	course, admin := uuid.New(), uuid.New()
	l2 := uuid.New()
	svc := &stubLessonService{result: &services.ApplyResult{Applied: []*models.Lesson{
		{ID: l2, CourseID: course, Title: "Second", Order: 1},
		{ID: uuid.New(), CourseID: course, Title: "C", Order: 2},
	}}}
	h := NewLessonHandler(svc, zap.NewNop())

	payload := `{"action":"bulk_update","lessons":[{"id":"` + l2.String() + `","title":"Second","duration":"90.7"},{"title":"C","duration":120}],"deletedLessons":["` + uuid.NewString() + `"]}`
	req := withCourse(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(payload)), course.String(), admin)
	rr := httptest.NewRecorder()

	h.BulkUpdate(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, course, svc.gotCourse)
	assert.Equal(t, admin, svc.gotActor)
	require.Len(t, svc.gotReq.Lessons, 2)
	assert.Equal(t, 90, svc.gotReq.Lessons[0].DurationRaw.Seconds())
	assert.Equal(t, 120, svc.gotReq.Lessons[1].DurationRaw.Seconds())
	assert.True(t, svc.gotReq.Lessons[1].IsNew())
	assert.Len(t, svc.gotReq.DeletedLessons, 1)

	var resp models.BulkLessonResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Lessons updated successfully", resp.Message)
	require.Len(t, resp.Lessons, 2)
	assert.Equal(t, 1, resp.Lessons[0].Order)
	assert.Equal(t, "C", resp.Lessons[1].Title)
}

func TestBulkUpdate_ValidationErrorHasDetails(t *testing.T) {
	svc := &stubLessonService{err: &services.ValidationError{Fields: map[string]string{
		"lessons[0].id": "Lesson is also listed in deletedLessons",
	}}}
	h := NewLessonHandler(svc, zap.NewNop())

	req := withCourse(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"action":"bulk_update"}`)), uuid.NewString(), uuid.New())
	rr := httptest.NewRecorder()

	h.BulkUpdate(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeBody(t, rr)
	assert.Contains(t, body, "error")
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok, "expected details object, got %v", body["details"])
	assert.Contains(t, details, "lessons[0].id")
}

func TestBulkUpdate_PartialFailureReportsAppliedLessons(t *testing.T) {
	applied := &models.Lesson{ID: uuid.New(), Title: "A", Order: 1}
	svc := &stubLessonService{
		result: &services.ApplyResult{Applied: []*models.Lesson{applied}},
		err: &services.ReconciliationFailedError{
			Stage: services.StageUpsert,
			Index: 1,
			Cause: &services.StoreError{Op: "insert lesson", Err: assert.AnError},
		},
	}
	h := NewLessonHandler(svc, zap.NewNop())

	req := withCourse(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"action":"bulk_update"}`)), uuid.NewString(), uuid.New())
	rr := httptest.NewRecorder()

	h.BulkUpdate(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeBody(t, rr)
	details := body["details"].(map[string]interface{})
	assert.Equal(t, "upsert", details["stage"])
	assert.Equal(t, float64(1), details["failed_at"])
	appliedLessons := details["applied_lessons"].([]interface{})
	require.Len(t, appliedLessons, 1)
	assert.Equal(t, applied.ID.String(), appliedLessons[0].(map[string]interface{})["id"])
}

func TestBulkUpdate_DeleteStageFailureOmitsFailedAt(t *testing.T) {
	svc := &stubLessonService{
		result: &services.ApplyResult{},
		err:    &services.ReconciliationFailedError{Stage: services.StageDelete, Index: -1, Cause: assert.AnError},
	}
	h := NewLessonHandler(svc, zap.NewNop())

	req := withCourse(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"action":"bulk_update"}`)), uuid.NewString(), uuid.New())
	rr := httptest.NewRecorder()

	h.BulkUpdate(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	details := decodeBody(t, rr)["details"].(map[string]interface{})
	assert.Equal(t, "delete", details["stage"])
	assert.NotContains(t, details, "failed_at")
	assert.Equal(t, []interface{}{}, details["applied_lessons"])
}

func TestBulkUpdate_ConflictIs409(t *testing.T) {
	svc := &stubLessonService{err: &services.ConflictError{Message: "busy"}}
	h := NewLessonHandler(svc, zap.NewNop())

	req := withCourse(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"action":"bulk_update"}`)), uuid.NewString(), uuid.New())
	rr := httptest.NewRecorder()

	h.BulkUpdate(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestBulkUpdate_BadInput(t *testing.T) {
	tests := []struct {
		name     string
		courseID string
		body     string
	}{
		{"invalid course id", "not-a-uuid", `{"action":"bulk_update"}`},
		{"malformed json", uuid.NewString(), `{"action":`},
		{"malformed lesson id", uuid.NewString(), `{"action":"bulk_update","lessons":[{"id":"nope","title":"x"}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubLessonService{}
			h := NewLessonHandler(svc, zap.NewNop())
			req := withCourse(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tc.body)), tc.courseID, uuid.New())
			rr := httptest.NewRecorder()

			h.BulkUpdate(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Empty(t, svc.gotReq.Action, "service must not be called")
		})
	}
}

func TestListLessons_EmptyCourse(t *testing.T) {
	h := NewLessonHandler(&stubLessonService{}, zap.NewNop())

	req := withCourse(httptest.NewRequest(http.MethodGet, "/", nil), uuid.NewString(), uuid.New())
	rr := httptest.NewRecorder()

	h.List(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []interface{}{}, decodeBody(t, rr)["lessons"])
}
