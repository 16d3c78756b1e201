package models

import (
	"strings"
	"time"
)

// CalendarEventType tags an academic calendar range.
type CalendarEventType string

const (
	EventTeachingPeriod CalendarEventType = "TEACHING_PERIOD"
	EventBreak          CalendarEventType = "BREAK"
	EventExamWindow     CalendarEventType = "EXAM_WINDOW"
	EventHoliday        CalendarEventType = "HOLIDAY"
	EventAcademic       CalendarEventType = "ACADEMIC_EVENT"
	EventMaintenance    CalendarEventType = "MAINTENANCE"
)

// Valid reports whether the event type is known.
func (t CalendarEventType) Valid() bool {
	switch t {
	case EventTeachingPeriod, EventBreak, EventExamWindow, EventHoliday, EventAcademic, EventMaintenance:
		return true
	default:
		return false
	}
}

// BlocksTeaching reports whether rooms are closed while the event runs.
func (t CalendarEventType) BlocksTeaching() bool {
	switch t {
	case EventBreak, EventHoliday, EventMaintenance:
		return true
	default:
		return false
	}
}

// NormalizeEventType upper-cases raw input.
func NormalizeEventType(raw string) CalendarEventType {
	return CalendarEventType(strings.ToUpper(strings.TrimSpace(raw)))
}

// AcademicCalendarEvent is a named, typed, inclusive date range inside an academic period.
type AcademicCalendarEvent struct {
	ID             string            `db:"id" json:"id"`
	Title          string            `db:"title" json:"title"`
	Description    *string           `db:"description" json:"description,omitempty"`
	EventType      CalendarEventType `db:"event_type" json:"event_type"`
	AcademicPeriod string            `db:"academic_period" json:"academic_period"`
	StartDate      time.Time         `db:"start_date" json:"start_date"`
	EndDate        time.Time         `db:"end_date" json:"end_date"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// Covers reports whether date falls inside the event (inclusive, day precision).
func (e AcademicCalendarEvent) Covers(date time.Time) bool {
	day := truncateDay(date)
	return !day.Before(truncateDay(e.StartDate)) && !day.After(truncateDay(e.EndDate))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalendarFilter narrows down events.
type CalendarFilter struct {
	AcademicPeriod string
	EventType      CalendarEventType
	From           *time.Time
	To             *time.Time
	Page           int
	PageSize       int
}
