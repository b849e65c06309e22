package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"coursehub-backend/internal/models"
)

var errStoreDown = errors.New("connection refused")

// memLessonStore is an in-memory lessons table. failAt is the zero-based
// upsert call (update or insert) that fails; -1 disables it.
type memLessonStore struct {
	mu      sync.Mutex
	lessons map[uuid.UUID]*models.Lesson

	deleteErr error
	failAt    int
	calls     int
	upserts   []string
}

func newMemLessonStore(existing ...*models.Lesson) *memLessonStore {
	s := &memLessonStore{lessons: make(map[uuid.UUID]*models.Lesson), failAt: -1}
	for _, l := range existing {
		cp := *l
		s.lessons[l.ID] = &cp
	}
	return s
}

func (s *memLessonStore) DeleteByIDs(_ context.Context, courseID uuid.UUID, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for _, id := range ids {
		if l, ok := s.lessons[id]; ok && l.CourseID == courseID {
			delete(s.lessons, id)
		}
	}
	return nil
}

func (s *memLessonStore) upsertCall(kind string) error {
	idx := s.calls
	s.calls++
	s.upserts = append(s.upserts, kind)
	if idx == s.failAt {
		return errStoreDown
	}
	return nil
}

func (s *memLessonStore) Update(_ context.Context, courseID, id uuid.UUID, f models.LessonFields, order int) (*models.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.upsertCall("update"); err != nil {
		return nil, err
	}
	l, ok := s.lessons[id]
	if !ok || l.CourseID != courseID {
		return nil, errors.New("lesson not found")
	}
	l.Title = f.Title
	l.DurationSeconds = f.DurationRaw.Seconds()
	l.Order = order
	l.UpdatedAt = time.Now()
	cp := *l
	return &cp, nil
}

func (s *memLessonStore) Insert(_ context.Context, courseID uuid.UUID, f models.LessonFields, order int) (*models.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.upsertCall("insert"); err != nil {
		return nil, err
	}
	l := &models.Lesson{
		ID:              uuid.New(),
		CourseID:        courseID,
		Title:           f.Title,
		DurationSeconds: f.DurationRaw.Seconds(),
		Order:           order,
	}
	s.lessons[l.ID] = l
	cp := *l
	return &cp, nil
}

func (s *memLessonStore) ListByCourse(_ context.Context, courseID uuid.UUID) ([]*models.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Lesson
	for _, l := range s.lessons {
		if l.CourseID == courseID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}
