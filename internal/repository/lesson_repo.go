package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coursehub-backend/internal/models"
)

var ErrLessonNotFound = errors.New("lesson not found in course")

type LessonRepo struct {
	pool *pgxpool.Pool
}

func NewLessonRepo(pool *pgxpool.Pool) *LessonRepo {
	return &LessonRepo{pool: pool}
}

const lessonColumns = `id, course_id, title, description, type, content, duration_seconds, position, is_preview, created_at, updated_at`

func scanLesson(row pgx.Row) (*models.Lesson, error) {
	l := &models.Lesson{}
	err := row.Scan(
		&l.ID, &l.CourseID, &l.Title, &l.Description, &l.Type, &l.Content,
		&l.DurationSeconds, &l.Order, &l.IsPreview, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// DeleteByIDs removes the lessons in one statement, so the batch is atomic.
func (r *LessonRepo) DeleteByIDs(ctx context.Context, courseID uuid.UUID, ids []uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM lessons WHERE course_id = $1 AND id = ANY($2)", courseID, ids)
	return err
}

func (r *LessonRepo) Update(ctx context.Context, courseID, id uuid.UUID, f models.LessonFields, order int) (*models.Lesson, error) {
	query := `UPDATE lessons
		SET title = $3, description = $4, type = $5, content = $6, duration_seconds = $7,
			position = $8, is_preview = $9, updated_at = NOW()
		WHERE id = $1 AND course_id = $2
		RETURNING ` + lessonColumns

	l, err := scanLesson(r.pool.QueryRow(ctx, query,
		id, courseID, f.Title, f.Description, f.Type, f.Content, f.DurationRaw.Seconds(), order, f.IsPreview,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLessonNotFound
	}
	return l, err
}

func (r *LessonRepo) Insert(ctx context.Context, courseID uuid.UUID, f models.LessonFields, order int) (*models.Lesson, error) {
	query := `INSERT INTO lessons (id, course_id, title, description, type, content, duration_seconds, position, is_preview)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + lessonColumns

	return scanLesson(r.pool.QueryRow(ctx, query,
		uuid.New(), courseID, f.Title, f.Description, f.Type, f.Content, f.DurationRaw.Seconds(), order, f.IsPreview,
	))
}

func (r *LessonRepo) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*models.Lesson, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+lessonColumns+" FROM lessons WHERE course_id = $1 ORDER BY position ASC, created_at ASC", courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []*models.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}
