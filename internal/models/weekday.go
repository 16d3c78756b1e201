package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Weekday is one of the seven cyclically ordered day tokens. The numeric
// value matches time.Weekday so dates resolve directly.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayTokens = [...]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// Weekdays lists every day in canonical order.
var Weekdays = []Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// ParseWeekday accepts the three-letter tokens case-insensitively.
func ParseWeekday(raw string) (Weekday, error) {
	token := strings.ToUpper(strings.TrimSpace(raw))
	for i, t := range weekdayTokens {
		if t == token {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

// WeekdayOf resolves a calendar date to its weekday.
func WeekdayOf(date time.Time) Weekday {
	return Weekday(date.Weekday())
}

// Valid reports whether the value is one of the seven days.
func (d Weekday) Valid() bool {
	return d >= Sunday && d <= Saturday
}

// String returns the day token.
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayTokens[d]
}

// Next returns the following day, wrapping from SAT to SUN.
func (d Weekday) Next() Weekday {
	return (d + 1) % 7
}

// MarshalJSON encodes the day as its token.
func (d Weekday) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a day token.
func (d *Weekday) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseWeekday(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
