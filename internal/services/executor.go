package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coursehub-backend/internal/models"
)

type lessonStore interface {
	DeleteByIDs(ctx context.Context, courseID uuid.UUID, ids []uuid.UUID) error
	Update(ctx context.Context, courseID, id uuid.UUID, fields models.LessonFields, order int) (*models.Lesson, error)
	Insert(ctx context.Context, courseID uuid.UUID, fields models.LessonFields, order int) (*models.Lesson, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*models.Lesson, error)
}

// ApplyResult holds the lessons persisted so far, in plan order.
type ApplyResult struct {
	Applied []*models.Lesson
}

// ReconciliationExecutor applies a plan against the lessons table. It is not
// transactional: a failure leaves every earlier operation committed.
type ReconciliationExecutor struct {
	store lessonStore
	log   *zap.Logger
}

func NewReconciliationExecutor(store lessonStore, log *zap.Logger) *ReconciliationExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReconciliationExecutor{store: store, log: log}
}

// Apply runs the batched delete, then each upsert in order, stopping at the
// first failure. On failure the returned result still lists what was applied.
func (e *ReconciliationExecutor) Apply(ctx context.Context, courseID uuid.UUID, plan *ReconciliationPlan) (*ApplyResult, error) {
	result := &ApplyResult{Applied: make([]*models.Lesson, 0, len(plan.Upserts))}
	log := e.log.With(zap.String("course_id", courseID.String()))

	if len(plan.Deletes) > 0 {
		ids := plan.DeleteIDs()
		if err := e.store.DeleteByIDs(ctx, courseID, ids); err != nil {
			log.Error("lesson op failed",
				zap.String("stage", StageDelete),
				zap.Int("count", len(ids)),
				zap.Error(err),
			)
			return result, &ReconciliationFailedError{
				Stage: StageDelete,
				Index: -1,
				Cause: &StoreError{Op: "delete lessons", Err: err},
			}
		}
		log.Info("lesson op applied", zap.String("op", string(OpDelete)), zap.Int("count", len(ids)))
	}

	for i, op := range plan.Upserts {
		var (
			lesson *models.Lesson
			err    error
		)
		switch op.Kind {
		case OpUpdate:
			lesson, err = e.store.Update(ctx, courseID, op.ID, op.Fields, op.Order)
		default:
			lesson, err = e.store.Insert(ctx, courseID, op.Fields, op.Order)
		}
		if err != nil {
			log.Error("lesson op failed",
				zap.String("stage", StageUpsert),
				zap.String("op", string(op.Kind)),
				zap.Int("index", i),
				zap.Int("order", op.Order),
				zap.Error(err),
			)
			return result, &ReconciliationFailedError{
				Stage: StageUpsert,
				Index: i,
				Cause: &StoreError{Op: string(op.Kind) + " lesson", Err: err},
			}
		}

		result.Applied = append(result.Applied, lesson)
		log.Debug("lesson op applied",
			zap.String("op", string(op.Kind)),
			zap.String("lesson_id", lesson.ID.String()),
			zap.Int("order", lesson.Order),
		)
	}

	return result, nil
}
