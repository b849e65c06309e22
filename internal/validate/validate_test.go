package validate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"coursehub-backend/internal/models"
)

func TestStruct_ProgressReport(t *testing.T) {
	v := New()

	valid := models.ProgressReport{
		LessonID:           uuid.New(),
		CourseID:           uuid.New(),
		ProgressPercentage: 42.5,
		WatchTimeSeconds:   120,
	}
	assert.Nil(t, v.Struct(valid))

	invalid := models.ProgressReport{
		CourseID:           uuid.New(),
		ProgressPercentage: 140,
		WatchTimeSeconds:   -3,
	}
	fields := v.Struct(invalid)
	assert.Contains(t, fields, "lesson_id")
	assert.Contains(t, fields, "progress_percentage")
	assert.Contains(t, fields, "watch_time")
	assert.NotContains(t, fields, "course_id")
}
