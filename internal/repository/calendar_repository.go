package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

const calendarColumns = "id, title, description, event_type, academic_period, start_date, end_date, created_at, updated_at"

// CalendarRepository persists academic calendar events.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a calendar repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// List returns calendar events matching filters.
func (r *CalendarRepository) List(ctx context.Context, filter models.CalendarFilter) ([]models.AcademicCalendarEvent, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.AcademicPeriod != "" {
		where = append(where, fmt.Sprintf("academic_period = $%d", len(args)+1))
		args = append(args, filter.AcademicPeriod)
	}
	if filter.EventType != "" {
		where = append(where, fmt.Sprintf("event_type = $%d", len(args)+1))
		args = append(args, filter.EventType)
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("end_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("start_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	whereClause := strings.Join(where, " AND ")

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM academic_calendar_events WHERE %s ORDER BY start_date ASC, id ASC LIMIT %d OFFSET %d", calendarColumns, whereClause, size, offset)
	var events []models.AcademicCalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list calendar events: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM academic_calendar_events WHERE %s", whereClause), args...); err != nil {
		return nil, 0, fmt.Errorf("count calendar events: %w", err)
	}
	return events, total, nil
}

// GetByID fetches a calendar event.
func (r *CalendarRepository) GetByID(ctx context.Context, id string) (*models.AcademicCalendarEvent, error) {
	var event models.AcademicCalendarEvent
	if err := r.db.GetContext(ctx, &event, fmt.Sprintf("SELECT %s FROM academic_calendar_events WHERE id = $1", calendarColumns), id); err != nil {
		return nil, err
	}
	return &event, nil
}

// FindOverlapping returns events of the same type and period whose inclusive date range intersects [start, end].
func (r *CalendarRepository) FindOverlapping(ctx context.Context, eventType models.CalendarEventType, period string, start, end time.Time) ([]models.AcademicCalendarEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_calendar_events WHERE event_type = $1 AND academic_period = $2 AND start_date <= $3 AND end_date >= $4 ORDER BY start_date ASC", calendarColumns)
	var events []models.AcademicCalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, eventType, period, end, start); err != nil {
		return nil, fmt.Errorf("find overlapping calendar events: %w", err)
	}
	return events, nil
}

// ListCovering returns every event whose range includes the date.
func (r *CalendarRepository) ListCovering(ctx context.Context, date time.Time) ([]models.AcademicCalendarEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_calendar_events WHERE start_date <= $1 AND end_date >= $1 ORDER BY start_date ASC", calendarColumns)
	var events []models.AcademicCalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, date); err != nil {
		return nil, fmt.Errorf("list covering calendar events: %w", err)
	}
	return events, nil
}

// CountByType counts events of one type in a period.
func (r *CalendarRepository) CountByType(ctx context.Context, eventType models.CalendarEventType, period string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM academic_calendar_events WHERE event_type = $1 AND academic_period = $2`, eventType, period); err != nil {
		return 0, fmt.Errorf("count calendar events: %w", err)
	}
	return total, nil
}

// Create inserts an event.
func (r *CalendarRepository) Create(ctx context.Context, event *models.AcademicCalendarEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	const query = `INSERT INTO academic_calendar_events (id, title, description, event_type, academic_period, start_date, end_date, created_at, updated_at) VALUES (:id, :title, :description, :event_type, :academic_period, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}
	return nil
}

// Delete removes an event.
func (r *CalendarRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM academic_calendar_events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}
