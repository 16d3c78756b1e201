package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaultsCarryTimetablePolicy(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "07:00", cfg.Timetable.DayStart)
	assert.Equal(t, "22:00", cfg.Timetable.DayEnd)
	assert.Equal(t, 30, cfg.Timetable.MinDurationMinutes)
	assert.Equal(t, 240, cfg.Timetable.MaxDurationMinutes)
	assert.Equal(t, []string{"MON", "TUE", "WED", "THU", "FRI"}, cfg.Timetable.OperatingDays)
	assert.Equal(t, 5*time.Minute, cfg.Timetable.ViewCacheTTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.Empty(t, cfg.Sweep.Cron)
}

func TestOverridesFromEnvironment(t *testing.T) {
	t.Setenv("TIMETABLE_OPERATING_DAYS", "MON, WED ,FRI")
	t.Setenv("SWEEP_RETRY_DELAY", "not-a-duration")
	t.Setenv("SWEEP_PERIODS", "2024.1,2024.2")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, []string{"MON", "WED", "FRI"}, cfg.Timetable.OperatingDays)
	assert.Equal(t, 5*time.Second, cfg.Sweep.RetryDelay)
	assert.Equal(t, []string{"2024.1", "2024.2"}, cfg.Sweep.Periods)
}
