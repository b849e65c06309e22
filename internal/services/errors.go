package services

import (
	"fmt"
	"sort"
	"strings"
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "Validation error"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "Validation error: " + strings.Join(parts, "; ")
}

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

// StoreError wraps an I/O failure from the progress store or the lessons table.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// Reconciliation stages.
const (
	StageDelete = "delete"
	StageUpsert = "upsert"
)

// ReconciliationFailedError reports a partially applied plan. Index is the
// position of the failing upsert in the plan, or -1 for the delete stage.
type ReconciliationFailedError struct {
	Stage string
	Index int
	Cause error
}

func (e *ReconciliationFailedError) Error() string {
	if e.Stage == StageDelete {
		return fmt.Sprintf("reconciliation failed at %s stage: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("reconciliation failed at %s %d: %v", e.Stage, e.Index, e.Cause)
}

func (e *ReconciliationFailedError) Unwrap() error { return e.Cause }
