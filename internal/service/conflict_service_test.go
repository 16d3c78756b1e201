package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

func TestConflictServiceResolveTwice(t *testing.T) {
	ledger := &conflictLedgerStub{records: []models.ConflictRecord{{
		ID:             "c1",
		ConflictType:   models.ConflictRoomOverlap,
		PrimaryEntryID: "a",
		AcademicPeriod: "2024.1",
		DetectedAt:     time.Now(),
	}}}
	svc := NewConflictService(ledger, nil, nil, nil, nil, nil)

	resolved, err := svc.Resolve(context.Background(), "c1", ResolveConflictRequest{Note: strPtr("  moved to B-2 ")})
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, "moved to B-2", *resolved.ResolutionNote)

	_, err = svc.Resolve(context.Background(), "c1", ResolveConflictRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))

	_, err = svc.Resolve(context.Background(), "missing", ResolveConflictRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestConflictServiceListRejectsUnknownType(t *testing.T) {
	svc := NewConflictService(&conflictLedgerStub{}, nil, nil, nil, nil, nil)
	_, _, err := svc.List(context.Background(), models.ConflictFilter{Type: "SOMETHING"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestConflictServiceSweepDedupesAgainstUnresolved(t *testing.T) {
	store := &scheduleStoreStub{}
	store.seed(
		entryAt("a", "prof-1", "", models.Monday, "09:00", "10:30"),
		entryAt("b", "prof-1", "", models.Monday, "10:00", "11:00"),
		entryAt("c", "prof-2", "room-1", models.Friday, "09:00", "10:00"),
		entryAt("d", "prof-3", "room-1", models.Friday, "09:30", "10:00"),
	)
	secondary := "a"
	ledger := &conflictLedgerStub{records: []models.ConflictRecord{{
		ID:               "known",
		ConflictType:     models.ConflictProfessorOverlap,
		PrimaryEntryID:   "b",
		SecondaryEntryID: &secondary,
		AcademicPeriod:   "2024.1",
	}}}
	svc := NewConflictService(ledger, NewConflictDetector(store, nil, nil, nil), nil, nil, nil, nil)

	result, err := svc.Sweep(context.Background(), "2024.1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.AlreadyKnown)
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "known", result.Records[0].ID)
	assert.Equal(t, models.ConflictRoomOverlap, result.Records[1].ConflictType)
	assert.Len(t, ledger.records, 2)

	again, err := svc.Sweep(context.Background(), "2024.1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 2, again.AlreadyKnown)
}

func TestConflictServiceSweepRedetectsAfterResolution(t *testing.T) {
	store := &scheduleStoreStub{}
	store.seed(
		entryAt("a", "prof-1", "", models.Monday, "09:00", "10:30"),
		entryAt("b", "prof-1", "", models.Monday, "10:00", "11:00"),
	)
	ledger := &conflictLedgerStub{}
	svc := NewConflictService(ledger, NewConflictDetector(store, nil, nil, nil), nil, nil, nil, nil)

	first, err := svc.Sweep(context.Background(), "2024.1")
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	_, err = svc.Resolve(context.Background(), first.Records[0].ID, ResolveConflictRequest{})
	require.NoError(t, err)

	second, err := svc.Sweep(context.Background(), "2024.1")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Created)
	assert.Len(t, ledger.records, 2)
}

func TestConflictServiceSweepRequiresPeriod(t *testing.T) {
	svc := NewConflictService(&conflictLedgerStub{}, nil, nil, nil, nil, nil)
	_, err := svc.Sweep(context.Background(), "  ")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}
