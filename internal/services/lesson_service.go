package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coursehub-backend/internal/events"
	"coursehub-backend/internal/models"
)

const BulkUpdateAction = "bulk_update"

type LessonService struct {
	store    lessonStore
	executor *ReconciliationExecutor
	locker   CourseLocker
	events   *events.Publisher
	log      *zap.Logger
}

func NewLessonService(store lessonStore, locker CourseLocker, publisher *events.Publisher, log *zap.Logger) *LessonService {
	if log == nil {
		log = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalCourseLocker()
	}
	return &LessonService{
		store:    store,
		executor: NewReconciliationExecutor(store, log),
		locker:   locker,
		events:   publisher,
		log:      log,
	}
}

// BulkReconcile validates and plans the request before touching any store,
// then applies the plan while holding the course lock.
func (s *LessonService) BulkReconcile(ctx context.Context, actorID, courseID uuid.UUID, req models.BulkLessonRequest) (*ApplyResult, error) {
	if req.Action != BulkUpdateAction {
		return nil, &ValidationError{Fields: map[string]string{"action": "Unsupported action, expected bulk_update"}}
	}

	plan, err := ComputePlan(req.Lessons, req.DeletedLessons)
	if err != nil {
		return nil, err
	}

	deletes, updates, inserts := plan.Counts()
	log := s.log.With(zap.String("course_id", courseID.String()), zap.String("actor_id", actorID.String()))
	log.Info("lesson plan computed",
		zap.Int("deletes", deletes),
		zap.Int("updates", updates),
		zap.Int("inserts", inserts),
	)

	unlock, err := s.locker.TryLock(ctx, courseID)
	if err != nil {
		if errors.Is(err, ErrCourseLocked) {
			return nil, &ConflictError{Message: err.Error()}
		}
		return nil, err
	}
	defer unlock()

	current, err := s.store.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, &StoreError{Op: "list lessons", Err: err}
	}
	if err := checkCoverage(req, current); err != nil {
		return nil, err
	}

	result, err := s.executor.Apply(ctx, courseID, plan)
	if err != nil {
		return result, err
	}

	log.Info("lesson plan applied", zap.Int("lessons", len(result.Applied)))
	s.events.Publish(events.SubjectLessonsReconciled, "lessons_reconciled", actorID.String(), map[string]any{
		"course_id": courseID.String(),
		"deleted":   deletes,
		"updated":   updates,
		"inserted":  inserts,
	})
	return result, nil
}

// checkCoverage makes the request account for the whole course: every stored
// lesson is either kept or deleted, and every kept id belongs to the course.
func checkCoverage(req models.BulkLessonRequest, current []*models.Lesson) error {
	inCourse := make(map[uuid.UUID]struct{}, len(current))
	for _, l := range current {
		inCourse[l.ID] = struct{}{}
	}

	covered := make(map[uuid.UUID]struct{}, len(req.Lessons)+len(req.DeletedLessons))
	for _, id := range req.DeletedLessons {
		covered[id] = struct{}{}
	}

	fields := make(map[string]string)
	for i, entry := range req.Lessons {
		if entry.IsNew() {
			continue
		}
		id := *entry.ID
		covered[id] = struct{}{}
		if _, ok := inCourse[id]; !ok {
			fields[fmt.Sprintf("lessons[%d].id", i)] = fmt.Sprintf("Lesson %s does not belong to this course", id)
		}
	}

	var missing []string
	for _, l := range current {
		if _, ok := covered[l.ID]; !ok {
			missing = append(missing, l.ID.String())
		}
	}
	if len(missing) > 0 {
		fields["lessons"] = "Every lesson of the course must be listed or deleted, missing: " + strings.Join(missing, ", ")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (s *LessonService) ListLessons(ctx context.Context, courseID uuid.UUID) ([]*models.Lesson, error) {
	lessons, err := s.store.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, &StoreError{Op: "list lessons", Err: err}
	}
	return lessons, nil
}
