package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

var calendarRowColumns = []string{"id", "title", "description", "event_type", "academic_period", "start_date", "end_date", "created_at", "updated_at"}

func TestCalendarFindOverlapping(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE event_type = $1 AND academic_period = $2 AND start_date <= $3 AND end_date >= $4")).
		WithArgs(models.EventHoliday, "2024.1", end, start).
		WillReturnRows(sqlmock.NewRows(calendarRowColumns).
			AddRow("ev1", "Easter", nil, string(models.EventHoliday), "2024.1", start, start, start, start))

	events, err := repo.FindOverlapping(context.Background(), models.EventHoliday, "2024.1", start, end)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Easter", events[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarListCovering(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	date := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE start_date <= $1 AND end_date >= $1")).
		WithArgs(date).
		WillReturnRows(sqlmock.NewRows(calendarRowColumns))

	events, err := repo.ListCovering(context.Background(), date)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	mock.ExpectExec("INSERT INTO academic_calendar_events").WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.AcademicCalendarEvent{Title: "Semester", EventType: models.EventTeachingPeriod, AcademicPeriod: "2024.1"}
	require.NoError(t, repo.Create(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
