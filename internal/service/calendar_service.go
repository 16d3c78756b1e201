package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type calendarRepository interface {
	List(ctx context.Context, filter models.CalendarFilter) ([]models.AcademicCalendarEvent, int, error)
	GetByID(ctx context.Context, id string) (*models.AcademicCalendarEvent, error)
	FindOverlapping(ctx context.Context, eventType models.CalendarEventType, period string, start, end time.Time) ([]models.AcademicCalendarEvent, error)
	ListCovering(ctx context.Context, date time.Time) ([]models.AcademicCalendarEvent, error)
	CountByType(ctx context.Context, eventType models.CalendarEventType, period string) (int, error)
	Create(ctx context.Context, event *models.AcademicCalendarEvent) error
	Delete(ctx context.Context, id string) error
}

// CreateCalendarEventRequest describes create payload. Dates are YYYY-MM-DD and inclusive.
type CreateCalendarEventRequest struct {
	Title          string  `json:"title" validate:"required,max=200"`
	Description    *string `json:"description"`
	EventType      string  `json:"event_type" validate:"required,event_type"`
	AcademicPeriod string  `json:"academic_period" validate:"required"`
	StartDate      string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string  `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// CalendarService manages academic calendar events.
type CalendarService struct {
	repo      calendarRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCalendarService constructs the service.
func NewCalendarService(repo calendarRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerTimetableValidations(validate)
	return &CalendarService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns events with pagination metadata.
func (s *CalendarService) List(ctx context.Context, filter models.CalendarFilter) ([]models.AcademicCalendarEvent, *models.Pagination, error) {
	if filter.EventType != "" && !filter.EventType.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown event type")
	}
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calendar events")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return events, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an event by id.
func (s *CalendarService) Get(ctx context.Context, id string) (*models.AcademicCalendarEvent, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar event")
	}
	return event, nil
}

// Create stores an event, rejecting overlaps with events of the same type and period.
func (s *CalendarService) Create(ctx context.Context, req CreateCalendarEventRequest) (*models.AcademicCalendarEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid calendar payload")
	}
	start, _ := time.Parse(dateLayout, req.StartDate)
	end, _ := time.Parse(dateLayout, req.EndDate)
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}

	event := &models.AcademicCalendarEvent{
		Title:          strings.TrimSpace(req.Title),
		Description:    trimOptional(req.Description),
		EventType:      models.NormalizeEventType(req.EventType),
		AcademicPeriod: strings.TrimSpace(req.AcademicPeriod),
		StartDate:      start,
		EndDate:        end,
	}

	overlapping, err := s.repo.FindOverlapping(ctx, event.EventType, event.AcademicPeriod, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check calendar overlap")
	}
	if len(overlapping) > 0 {
		ids := make([]string, 0, len(overlapping))
		for _, other := range overlapping {
			ids = append(ids, other.ID)
		}
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrConflict, "calendar event overlaps an event of the same type"), map[string][]string{"overlapping_ids": ids})
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create calendar event")
	}
	if event.EventType.BlocksTeaching() {
		s.cache.InvalidateViews(ctx)
	}
	return event, nil
}

// Delete removes an event.
func (s *CalendarService) Delete(ctx context.Context, id string) error {
	event, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete calendar event")
	}
	if event.EventType.BlocksTeaching() {
		s.cache.InvalidateViews(ctx)
	}
	return nil
}

// HasTeachingPeriod reports whether the period has at least one TEACHING_PERIOD event.
func (s *CalendarService) HasTeachingPeriod(ctx context.Context, period string) (bool, error) {
	count, err := s.repo.CountByType(ctx, models.EventTeachingPeriod, period)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// EventsOn returns every event covering the date.
func (s *CalendarService) EventsOn(ctx context.Context, date time.Time) ([]models.AcademicCalendarEvent, error) {
	events, err := s.repo.ListCovering(ctx, toDate(date))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar events")
	}
	return events, nil
}

// ClosureOn returns the first teaching-blocking event covering the date, if any.
func (s *CalendarService) ClosureOn(ctx context.Context, date time.Time) (*models.AcademicCalendarEvent, error) {
	events, err := s.EventsOn(ctx, date)
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].EventType.BlocksTeaching() && events[i].Covers(date) {
			return &events[i], nil
		}
	}
	return nil, nil
}
