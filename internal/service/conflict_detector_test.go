package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/pkg/timerange"
)

func TestConflictDetectorSweepPeriodReportsOverlappingPair(t *testing.T) {
	store := &scheduleStoreStub{}
	store.seed(
		entryAt("a", "prof-1", "room-1", models.Monday, "09:00", "10:30"),
		entryAt("b", "prof-1", "room-2", models.Monday, "10:00", "11:00"),
		entryAt("c", "prof-1", "room-1", models.Monday, "11:00", "12:00"),
	)
	detector := NewConflictDetector(store, nil, nil, nil)
	fixed := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	detector.now = func() time.Time { return fixed }

	records, err := detector.SweepPeriod(context.Background(), "2024.1")
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, models.ConflictProfessorOverlap, record.ConflictType)
	assert.Equal(t, "a", record.PrimaryEntryID)
	require.NotNil(t, record.SecondaryEntryID)
	assert.Equal(t, "b", *record.SecondaryEntryID)
	assert.False(t, record.Resolved)
	assert.Equal(t, fixed, record.DetectedAt)
	require.NotNil(t, record.ProfessorID)
	assert.Equal(t, "prof-1", *record.ProfessorID)
	assert.Contains(t, record.Description, "09:00-10:30")
}

func TestConflictDetectorSweepPeriodSharedRoomAndProfessor(t *testing.T) {
	store := &scheduleStoreStub{}
	store.seed(
		entryAt("a", "prof-1", "room-1", models.Tuesday, "09:00", "10:00"),
		entryAt("b", "prof-1", "room-1", models.Tuesday, "09:30", "10:30"),
		entryAt("c", "prof-2", "room-1", models.Wednesday, "09:30", "10:30"),
	)
	records, err := NewConflictDetector(store, nil, nil, nil).SweepPeriod(context.Background(), "2024.1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	kinds := []models.ConflictType{records[0].ConflictType, records[1].ConflictType}
	assert.ElementsMatch(t, []models.ConflictType{models.ConflictProfessorOverlap, models.ConflictRoomOverlap}, kinds)
}

func TestConflictDetectorSweepRoomChecks(t *testing.T) {
	store := &scheduleStoreStub{}
	store.seed(
		entryAt("small", "prof-1", "room-2", models.Monday, "09:00", "10:00"),
		entryAt("closed", "prof-2", "room-x", models.Monday, "09:00", "10:00"),
	)
	_, _, rooms := timetableDirectory()
	enrollments := enrollmentStub{"subj-1|2024.1": 25}

	records, err := NewConflictDetector(store, rooms, enrollments, nil).SweepPeriod(context.Background(), "2024.1")
	require.NoError(t, err)

	byType := map[models.ConflictType][]string{}
	for _, r := range records {
		byType[r.ConflictType] = append(byType[r.ConflictType], r.PrimaryEntryID)
		assert.Nil(t, r.SecondaryEntryID)
	}
	assert.Equal(t, []string{"closed"}, byType[models.ConflictRoomUnavailable])
	assert.Equal(t, []string{"small"}, byType[models.ConflictCapacityExceeded])
}

func TestConflictDetectorCheckCandidates(t *testing.T) {
	detector := NewConflictDetector(&scheduleStoreStub{}, nil, nil, nil)
	batch := []models.ScheduleEntry{
		entryAt("", "prof-1", "", models.Monday, "09:00", "10:00"),
		entryAt("", "prof-1", "", models.Monday, "10:00", "11:00"),
		entryAt("", "prof-1", "", models.Monday, "10:30", "11:30"),
	}
	clashes := detector.CheckCandidates(batch)
	require.Len(t, clashes, 1)
	assert.Equal(t, CandidateClash{Type: models.ConflictProfessorOverlap, First: 1, Other: 2}, clashes[0])
}

func TestConflictDetectorCheckRoomConflictsWithoutRoom(t *testing.T) {
	store := &scheduleStoreStub{}
	store.seed(entryAt("a", "prof-1", "room-1", models.Monday, "09:00", "10:00"))
	detector := NewConflictDetector(store, nil, nil, nil)
	r := timerange.Range{Start: timerange.MustParse("09:00"), End: timerange.MustParse("10:00")}

	hits, err := detector.CheckRoomConflicts(context.Background(), nil, "", models.Monday, r, "2024.1", "")
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = detector.CheckRoomConflicts(context.Background(), nil, "room-1", models.Monday, r, "2024.1", "a")
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = detector.CheckProfessorConflicts(context.Background(), nil, "prof-1", models.Monday, r, "2024.1", "")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestConflictDetectorRecordsCarryProfessorAndRoom(t *testing.T) {
	store := &scheduleStoreStub{}
	store.seed(
		entryAt("a", "prof-1", "room-1", models.Thursday, "09:00", "10:00"),
		entryAt("b", "prof-2", "room-1", models.Thursday, "09:30", "10:30"),
		entryAt("c", "prof-3", "", models.Friday, "09:00", "10:00"),
		entryAt("d", "prof-3", "", models.Friday, "09:30", "10:30"),
	)
	records, err := NewConflictDetector(store, nil, nil, nil).SweepPeriod(context.Background(), "2024.1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	byType := map[models.ConflictType]models.ConflictRecord{}
	for _, r := range records {
		byType[r.ConflictType] = r
	}

	roomClash := byType[models.ConflictRoomOverlap]
	require.NotNil(t, roomClash.ProfessorID)
	assert.Equal(t, "prof-1", *roomClash.ProfessorID)
	require.NotNil(t, roomClash.RoomID)
	assert.Equal(t, "room-1", *roomClash.RoomID)

	professorClash := byType[models.ConflictProfessorOverlap]
	require.NotNil(t, professorClash.ProfessorID)
	assert.Equal(t, "prof-3", *professorClash.ProfessorID)
	assert.Nil(t, professorClash.RoomID)
}

func TestConflictDetectorChecksReadThroughCallerExecutor(t *testing.T) {
	store := &scheduleStoreStub{}
	store.seed(entryAt("a", "prof-1", "room-1", models.Monday, "09:00", "10:00"))
	detector := NewConflictDetector(store, nil, nil, nil)
	r := timerange.Range{Start: timerange.MustParse("09:30"), End: timerange.MustParse("10:30")}

	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	begun, err := tx.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	hits, err := detector.CheckProfessorConflicts(context.Background(), begun, "prof-1", models.Monday, r, "2024.1", "")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	hits, err = detector.CheckRoomConflicts(context.Background(), begun, "room-1", models.Monday, r, "2024.1", "")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Zero(t, store.poolReads)

	require.NoError(t, begun.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
