package timerange

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Minute is an offset from midnight.
type Minute int

// MinutesPerDay bounds every Minute value.
const MinutesPerDay Minute = 24 * 60

// ErrInvalidFormat is returned when a value is not a 24-hour HH:MM string.
var ErrInvalidFormat = errors.New("time must use 24-hour HH:MM format")

// Parse converts an "HH:MM" string into minutes since midnight.
func Parse(raw string) (Minute, error) {
	if len(raw) != 5 || raw[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}
	hours, ok := twoDigits(raw[0], raw[1])
	if !ok || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}
	minutes, ok := twoDigits(raw[3], raw[4])
	if !ok || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}
	return Minute(hours*60 + minutes), nil
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(raw string) Minute {
	m, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return m
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// Format renders minutes as "HH:MM". 24:00 is rendered for end-of-day.
func Format(m Minute) string {
	if m < 0 {
		m = 0
	}
	if m > MinutesPerDay {
		m = MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// String implements fmt.Stringer.
func (m Minute) String() string {
	return Format(m)
}

// MarshalJSON encodes the minute as an "HH:MM" string.
func (m Minute) MarshalJSON() ([]byte, error) {
	return json.Marshal(Format(m))
}

// UnmarshalJSON decodes an "HH:MM" string.
func (m *Minute) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, string(data))
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Overlaps reports whether the half-open ranges [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd Minute) bool {
	return aStart < bEnd && bStart < aEnd
}

// Range is a half-open interval of minutes.
type Range struct {
	Start Minute `json:"start"`
	End   Minute `json:"end"`
}

// ParseRange parses a start/end pair and requires start < end.
func ParseRange(start, end string) (Range, error) {
	s, err := Parse(start)
	if err != nil {
		return Range{}, err
	}
	e, err := Parse(end)
	if err != nil {
		return Range{}, err
	}
	if s >= e {
		return Range{}, fmt.Errorf("start %s must be before end %s", start, end)
	}
	return Range{Start: s, End: e}, nil
}

// Duration returns the length of the range in minutes.
func (r Range) Duration() Minute {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Overlaps reports whether two ranges share at least one minute.
func (r Range) Overlaps(other Range) bool {
	return Overlaps(r.Start, r.End, other.Start, other.End)
}

// Contains reports whether other lies entirely within r.
func (r Range) Contains(other Range) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// Clip returns the intersection of r and window, and false when they do not intersect.
func (r Range) Clip(window Range) (Range, bool) {
	start, end := r.Start, r.End
	if start < window.Start {
		start = window.Start
	}
	if end > window.End {
		end = window.End
	}
	if start >= end {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

func (r Range) String() string {
	return Format(r.Start) + "-" + Format(r.End)
}

// Gaps returns the parts of window not covered by any busy range, in order.
func Gaps(window Range, busy []Range) []Range {
	clipped := make([]Range, 0, len(busy))
	for _, b := range busy {
		if c, ok := b.Clip(window); ok {
			clipped = append(clipped, c)
		}
	}
	sort.Slice(clipped, func(i, j int) bool {
		if clipped[i].Start == clipped[j].Start {
			return clipped[i].End < clipped[j].End
		}
		return clipped[i].Start < clipped[j].Start
	})

	var gaps []Range
	cursor := window.Start
	for _, b := range clipped {
		if b.Start > cursor {
			gaps = append(gaps, Range{Start: cursor, End: b.Start})
		}
		if b.End > cursor {
			cursor = b.End
		}
	}
	if cursor < window.End {
		gaps = append(gaps, Range{Start: cursor, End: window.End})
	}
	return gaps
}
