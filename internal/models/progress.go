package models

import (
	"time"

	"github.com/google/uuid"
)

type ProgressRecord struct {
	UserID             uuid.UUID `json:"user_id"`
	LessonID           uuid.UUID `json:"lesson_id"`
	CourseID           uuid.UUID `json:"course_id"`
	ProgressPercentage float64   `json:"progress_percentage"`
	WatchTimeSeconds   int       `json:"watch_time"`
	Completed          bool      `json:"completed"`
	LastWatchedAt      time.Time `json:"last_watched_at"`
}

// ProgressReport is one playback tick. UserID is taken from the auth token when
// the report arrives over HTTP or the websocket.
type ProgressReport struct {
	LessonID           uuid.UUID  `json:"lesson_id" validate:"required"`
	UserID             *uuid.UUID `json:"user_id,omitempty"`
	CourseID           uuid.UUID  `json:"course_id" validate:"required"`
	ProgressPercentage float64    `json:"progress_percentage" validate:"gte=0,lte=100"`
	WatchTimeSeconds   int        `json:"watch_time" validate:"gte=0"`
	Completed          bool       `json:"completed"`
}

// ProgressUpdate is what gets written to the progress store.
type ProgressUpdate struct {
	UserID             uuid.UUID
	LessonID           uuid.UUID
	CourseID           uuid.UUID
	ProgressPercentage float64
	WatchTimeSeconds   int
	Completed          bool
}
