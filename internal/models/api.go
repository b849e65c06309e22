package models

import (
	"github.com/google/uuid"
)

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type ProgressSaved struct {
	Record *ProgressRecord `json:"record"`
}

type ProgressSaveFailed struct {
	LessonID     uuid.UUID `json:"lesson_id"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error   APIError    `json:"error"`
	Details interface{} `json:"details,omitempty"`
}
