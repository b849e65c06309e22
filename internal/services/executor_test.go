package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"coursehub-backend/internal/models"
)

func TestApply_UpdateInsertDelete(t *testing.T) {
	course := uuid.New()
	l1 := &models.Lesson{ID: uuid.New(), CourseID: course, Title: "First", Order: 1}
	l2 := &models.Lesson{ID: uuid.New(), CourseID: course, Title: "Second", Order: 2}
	store := newMemLessonStore(l1, l2)

	plan, err := ComputePlan([]models.LessonEntry{existing(l2.ID, "Second"), fresh("C")}, []uuid.UUID{l1.ID})
	require.NoError(t, err)

	result, err := NewReconciliationExecutor(store, zap.NewNop()).Apply(context.Background(), course, plan)
	require.NoError(t, err)
	require.Len(t, result.Applied, 2)
	assert.Equal(t, l2.ID, result.Applied[0].ID)
	assert.Equal(t, 1, result.Applied[0].Order)
	assert.Equal(t, "C", result.Applied[1].Title)
	assert.Equal(t, 2, result.Applied[1].Order)

	lessons, err := store.ListByCourse(context.Background(), course)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	for i, l := range lessons {
		assert.Equal(t, i+1, l.Order)
		assert.NotEqual(t, l1.ID, l.ID)
	}
}

func TestApply_DeleteFailureSkipsUpserts(t *testing.T) {
	store := newMemLessonStore()
	store.deleteErr = errStoreDown

	plan, err := ComputePlan([]models.LessonEntry{fresh("A")}, []uuid.UUID{uuid.New()})
	require.NoError(t, err)

	result, err := NewReconciliationExecutor(store, zap.NewNop()).Apply(context.Background(), uuid.New(), plan)

	var failure *ReconciliationFailedError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, StageDelete, failure.Stage)
	assert.Equal(t, -1, failure.Index)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, result.Applied)
	assert.Zero(t, store.calls, "no upsert may run after a failed delete")
}

func TestApply_UpsertFailureReturnsAppliedPrefix(t *testing.T) {
	store := newMemLessonStore()
	store.failAt = 1

	plan, err := ComputePlan([]models.LessonEntry{fresh("A"), fresh("B"), fresh("C")}, nil)
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	result, err := NewReconciliationExecutor(store, zap.New(core)).Apply(context.Background(), uuid.New(), plan)

	var failure *ReconciliationFailedError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, StageUpsert, failure.Stage)
	assert.Equal(t, 1, failure.Index)

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.ErrorIs(t, storeErr, errStoreDown)

	require.Len(t, result.Applied, 1)
	assert.Equal(t, "A", result.Applied[0].Title)
	assert.Equal(t, 2, store.calls, "the third upsert must never be attempted")

	failed := logs.FilterMessage("lesson op failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, int64(1), failed[0].ContextMap()["index"])
}

func TestApply_EmptyPlan(t *testing.T) {
	store := newMemLessonStore()
	store.deleteErr = errStoreDown

	result, err := NewReconciliationExecutor(store, nil).Apply(context.Background(), uuid.New(), &ReconciliationPlan{})
	require.NoError(t, err)
	assert.Empty(t, result.Applied)
}
