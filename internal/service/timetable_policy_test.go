package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/pkg/config"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

func TestDefaultTimetablePolicy(t *testing.T) {
	policy := DefaultTimetablePolicy()
	assert.Equal(t, 75*60, policy.OperatingMinutes())
	assert.True(t, policy.IsOperatingDay(models.Friday))
	assert.False(t, policy.IsOperatingDay(models.Sunday))

	r, err := policy.ParseSlot("07:00", "07:30")
	require.NoError(t, err)
	assert.Equal(t, 30, int(r.Duration()))

	_, err = policy.ParseSlot("21:00", "22:01")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	_, err = policy.ParseSlot("24:00", "10:00")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestNewTimetablePolicyFromConfig(t *testing.T) {
	policy, err := NewTimetablePolicy(config.TimetableConfig{
		DayStart:           "08:00",
		MinDurationMinutes: 45,
		MaxDurationMinutes: 90,
		OperatingDays:      []string{"mon", "wed", "SAT"},
	})
	require.NoError(t, err)
	assert.Equal(t, "08:00-22:00", policy.Day.String())
	assert.Equal(t, []models.Weekday{models.Monday, models.Wednesday, models.Saturday}, policy.OperatingDays)
	assert.Equal(t, 3*14*60, policy.OperatingMinutes())

	_, err = policy.ParseSlot("09:00", "09:30")
	assert.Error(t, err)

	_, err = NewTimetablePolicy(config.TimetableConfig{OperatingDays: []string{"FUNDAY"}})
	assert.Error(t, err)
	_, err = NewTimetablePolicy(config.TimetableConfig{MinDurationMinutes: 300})
	assert.Error(t, err)
	_, err = NewTimetablePolicy(config.TimetableConfig{DayStart: "23:00", DayEnd: "08:00"})
	assert.Error(t, err)
}
