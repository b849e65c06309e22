package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"coursehub-backend/internal/models"
)

type ProgressRepo struct {
	pool *pgxpool.Pool
}

func NewProgressRepo(pool *pgxpool.Pool) *ProgressRepo {
	return &ProgressRepo{pool: pool}
}

// Upsert writes the latest values. A completed record never goes back to
// incomplete, whatever order writes arrive in.
func (r *ProgressRepo) Upsert(ctx context.Context, u models.ProgressUpdate) (*models.ProgressRecord, error) {
	query := `
		INSERT INTO user_lesson_progress (user_id, lesson_id, course_id, progress_percentage, watch_time_seconds, completed, last_watched_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id, lesson_id)
		DO UPDATE SET
			course_id           = EXCLUDED.course_id,
			progress_percentage = EXCLUDED.progress_percentage,
			watch_time_seconds  = EXCLUDED.watch_time_seconds,
			completed           = user_lesson_progress.completed OR EXCLUDED.completed,
			last_watched_at     = EXCLUDED.last_watched_at
		RETURNING user_id, lesson_id, course_id, progress_percentage, watch_time_seconds, completed, last_watched_at
	`

	rec := &models.ProgressRecord{}
	err := r.pool.QueryRow(ctx, query,
		u.UserID, u.LessonID, u.CourseID, u.ProgressPercentage, u.WatchTimeSeconds, u.Completed,
	).Scan(
		&rec.UserID, &rec.LessonID, &rec.CourseID, &rec.ProgressPercentage,
		&rec.WatchTimeSeconds, &rec.Completed, &rec.LastWatchedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *ProgressRepo) QueryByUserAndLessons(ctx context.Context, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*models.ProgressRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, lesson_id, course_id, progress_percentage, watch_time_seconds, completed, last_watched_at
		FROM user_lesson_progress
		WHERE user_id = $1 AND lesson_id = ANY($2)
	`, userID, lessonIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ProgressRecord
	for rows.Next() {
		rec := &models.ProgressRecord{}
		if err := rows.Scan(
			&rec.UserID, &rec.LessonID, &rec.CourseID, &rec.ProgressPercentage,
			&rec.WatchTimeSeconds, &rec.Completed, &rec.LastWatchedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
