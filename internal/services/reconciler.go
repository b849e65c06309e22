package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"coursehub-backend/internal/models"
)

type OpKind string

const (
	OpDelete OpKind = "delete"
	OpUpdate OpKind = "update"
	OpInsert OpKind = "insert"
)

type DeleteOp struct {
	ID uuid.UUID
}

// UpsertOp is either an update of an existing lesson (ID set) or an insert.
type UpsertOp struct {
	Kind   OpKind
	ID     uuid.UUID
	Fields models.LessonFields
	Order  int
}

// ReconciliationPlan lists deletes first, then upserts in desired display order.
type ReconciliationPlan struct {
	Deletes []DeleteOp
	Upserts []UpsertOp
}

func (p *ReconciliationPlan) DeleteIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Deletes))
	for _, d := range p.Deletes {
		ids = append(ids, d.ID)
	}
	return ids
}

func (p *ReconciliationPlan) Counts() (deletes, updates, inserts int) {
	for _, op := range p.Upserts {
		if op.Kind == OpUpdate {
			updates++
		} else {
			inserts++
		}
	}
	return len(p.Deletes), updates, inserts
}

// ComputePlan turns a desired lesson list and a deletion set into a plan.
// It performs no I/O; identical input always yields an identical plan.
func ComputePlan(desired []models.LessonEntry, deletions []uuid.UUID) (*ReconciliationPlan, error) {
	deleteSet := make(map[uuid.UUID]struct{}, len(deletions))
	plan := &ReconciliationPlan{
		Deletes: make([]DeleteOp, 0, len(deletions)),
		Upserts: make([]UpsertOp, 0, len(desired)),
	}
	fieldErrors := make(map[string]string)

	for i, id := range deletions {
		if id == uuid.Nil {
			fieldErrors[fmt.Sprintf("deletedLessons[%d]", i)] = "Lesson id is required"
			continue
		}
		if _, dup := deleteSet[id]; dup {
			continue
		}
		deleteSet[id] = struct{}{}
		plan.Deletes = append(plan.Deletes, DeleteOp{ID: id})
	}

	seen := make(map[uuid.UUID]int, len(desired))
	for i, entry := range desired {
		key := fmt.Sprintf("lessons[%d]", i)
		if strings.TrimSpace(entry.Title) == "" {
			fieldErrors[key+".title"] = "Title is required"
		}

		order := i + 1
		if entry.IsNew() {
			plan.Upserts = append(plan.Upserts, UpsertOp{Kind: OpInsert, Fields: entry.LessonFields, Order: order})
			continue
		}

		id := *entry.ID
		if _, doomed := deleteSet[id]; doomed {
			addFieldError(fieldErrors, key+".id", fmt.Sprintf("Lesson %s is also listed in deletedLessons", id))
		}
		if first, dup := seen[id]; dup {
			addFieldError(fieldErrors, key+".id", fmt.Sprintf("Lesson %s already appears at lessons[%d]", id, first))
		} else {
			seen[id] = i
		}
		plan.Upserts = append(plan.Upserts, UpsertOp{Kind: OpUpdate, ID: id, Fields: entry.LessonFields, Order: order})
	}

	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}
	return plan, nil
}

// addFieldError keeps every message reported for the same field.
func addFieldError(fields map[string]string, key, msg string) {
	if prev, ok := fields[key]; ok {
		fields[key] = prev + "; " + msg
		return
	}
	fields[key] = msg
}
