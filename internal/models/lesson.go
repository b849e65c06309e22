package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Lesson struct {
	ID              uuid.UUID `json:"id"`
	CourseID        uuid.UUID `json:"course_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Type            string    `json:"type"` // "video" | "text" | "quiz" | "file"
	Content         string    `json:"content"`
	DurationSeconds int       `json:"duration"`
	Order           int       `json:"order"`
	IsPreview       bool      `json:"is_preview"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LessonFields are the editable attributes of a lesson as sent by the admin UI.
type LessonFields struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Type        string      `json:"type"`
	Content     string      `json:"content"`
	DurationRaw RawDuration `json:"duration"`
	IsPreview   bool        `json:"is_preview"`
}

// LessonEntry is one row of a desired lesson list. A nil ID marks a new lesson.
type LessonEntry struct {
	ID *uuid.UUID `json:"id,omitempty"`
	LessonFields
}

func (e LessonEntry) IsNew() bool {
	return e.ID == nil || *e.ID == uuid.Nil
}

type BulkLessonRequest struct {
	Action         string        `json:"action"`
	Lessons        []LessonEntry `json:"lessons"`
	DeletedLessons []uuid.UUID   `json:"deletedLessons"`
}

type BulkLessonResponse struct {
	Message string    `json:"message"`
	Lessons []*Lesson `json:"lessons"`
}

// RawDuration holds a duration as the client sent it: a JSON number or a string.
type RawDuration string

func (d *RawDuration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = RawDuration(s)
		return nil
	}
	*d = RawDuration(data)
	return nil
}

// Seconds parses the raw value. Non-numeric and negative input yields 0; fractions are truncated.
func (d RawDuration) Seconds() int {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
