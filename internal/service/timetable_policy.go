package service

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/pkg/config"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/timerange"
)

// TimetablePolicy holds the institutional scheduling rules.
type TimetablePolicy struct {
	Day                   timerange.Range
	MinDuration           int
	MaxDuration           int
	OperatingDays         []models.Weekday
	RequireTeachingPeriod bool
}

// DefaultTimetablePolicy is 07:00-22:00, 30-240 minute lessons, MON-FRI.
func DefaultTimetablePolicy() TimetablePolicy {
	return TimetablePolicy{
		Day:           timerange.Range{Start: timerange.MustParse("07:00"), End: timerange.MustParse("22:00")},
		MinDuration:   30,
		MaxDuration:   240,
		OperatingDays: []models.Weekday{models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday},
	}
}

// NewTimetablePolicy builds a policy from configuration, falling back to defaults for blank values.
func NewTimetablePolicy(cfg config.TimetableConfig) (TimetablePolicy, error) {
	policy := DefaultTimetablePolicy()
	policy.RequireTeachingPeriod = cfg.RequireTeachingPeriod

	if cfg.DayStart != "" || cfg.DayEnd != "" {
		start, end := timerange.Format(policy.Day.Start), timerange.Format(policy.Day.End)
		if cfg.DayStart != "" {
			start = cfg.DayStart
		}
		if cfg.DayEnd != "" {
			end = cfg.DayEnd
		}
		day, err := timerange.ParseRange(start, end)
		if err != nil {
			return TimetablePolicy{}, fmt.Errorf("timetable day window: %w", err)
		}
		policy.Day = day
	}
	if cfg.MinDurationMinutes > 0 {
		policy.MinDuration = cfg.MinDurationMinutes
	}
	if cfg.MaxDurationMinutes > 0 {
		policy.MaxDuration = cfg.MaxDurationMinutes
	}
	if policy.MinDuration > policy.MaxDuration {
		return TimetablePolicy{}, fmt.Errorf("timetable min duration %d exceeds max %d", policy.MinDuration, policy.MaxDuration)
	}
	if len(cfg.OperatingDays) > 0 {
		days := make([]models.Weekday, 0, len(cfg.OperatingDays))
		for _, raw := range cfg.OperatingDays {
			day, err := models.ParseWeekday(raw)
			if err != nil {
				return TimetablePolicy{}, fmt.Errorf("timetable operating days: %w", err)
			}
			days = append(days, day)
		}
		policy.OperatingDays = days
	}
	return policy, nil
}

// ParseSlot parses and validates a candidate time range.
func (p TimetablePolicy) ParseSlot(startRaw, endRaw string) (timerange.Range, error) {
	start, err := timerange.Parse(startRaw)
	if err != nil {
		return timerange.Range{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid start time %q, expected HH:MM", startRaw))
	}
	end, err := timerange.Parse(endRaw)
	if err != nil {
		return timerange.Range{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid end time %q, expected HH:MM", endRaw))
	}
	r := timerange.Range{Start: start, End: end}
	if err := p.CheckRange(r); err != nil {
		return timerange.Range{}, err
	}
	return r, nil
}

// CheckRange enforces ordering, lesson length and operating hours.
func (p TimetablePolicy) CheckRange(r timerange.Range) error {
	if r.Start >= r.End {
		return appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}
	duration := int(r.Duration())
	if duration < p.MinDuration || duration > p.MaxDuration {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("lesson duration must be between %d and %d minutes", p.MinDuration, p.MaxDuration))
	}
	if !p.Day.Contains(r) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("lesson must fall within operating hours %s", p.Day))
	}
	return nil
}

// OperatingMinutes is the weekly bookable window in minutes.
func (p TimetablePolicy) OperatingMinutes() int {
	return len(p.OperatingDays) * int(p.Day.Duration())
}

// IsOperatingDay reports whether the weekday is bookable for occupancy purposes.
func (p TimetablePolicy) IsOperatingDay(day models.Weekday) bool {
	for _, d := range p.OperatingDays {
		if d == day {
			return true
		}
	}
	return false
}

// registerTimetableValidations adds the custom tags used by timetable payloads.
func registerTimetableValidations(v *validator.Validate) {
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := timerange.Parse(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, err := models.ParseWeekday(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("room_type", func(fl validator.FieldLevel) bool {
		return models.NormalizeRoomType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return models.NormalizeEventType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("conflict_type", func(fl validator.FieldLevel) bool {
		return models.NormalizeConflictType(fl.Field().String()).Valid()
	})
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func toDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
