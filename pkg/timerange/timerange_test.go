package timerange

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]Minute{
		"00:00": 0,
		"07:00": 420,
		"09:30": 570,
		"22:00": 1320,
		"23:59": 1439,
	}
	for raw, want := range cases {
		got, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "9:00", "09:60", "24:00", "0900", "09-00", "ab:cd", "09:00:00", " 09:00"} {
		_, err := Parse(raw)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrInvalidFormat), raw)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, raw := range []string{"07:00", "10:05", "21:59"} {
		assert.Equal(t, raw, Format(MustParse(raw)))
	}
	assert.Equal(t, "24:00", Format(MinutesPerDay))
}

func TestOverlapsSymmetric(t *testing.T) {
	ranges := []Range{
		{Start: 540, End: 600},
		{Start: 570, End: 630},
		{Start: 600, End: 660},
		{Start: 420, End: 1320},
		{Start: 700, End: 701},
	}
	for _, a := range ranges {
		for _, b := range ranges {
			assert.Equal(t, Overlaps(a.Start, a.End, b.Start, b.End), Overlaps(b.Start, b.End, a.Start, a.End), "%s vs %s", a, b)
		}
	}
}

func TestOverlapsTouchingEndpoints(t *testing.T) {
	assert.False(t, Overlaps(9*60, 10*60, 10*60, 11*60))
	assert.False(t, Overlaps(10*60, 11*60, 9*60, 10*60))
	assert.True(t, Overlaps(9*60, 10*60+30, 10*60, 11*60))
	assert.True(t, Overlaps(9*60, 10*60, 9*60, 10*60))
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("09:00", "10:30")
	require.NoError(t, err)
	assert.Equal(t, Minute(90), r.Duration())

	_, err = ParseRange("10:00", "10:00")
	assert.Error(t, err)
	_, err = ParseRange("10:00", "x")
	assert.True(t, errors.Is(err, ErrInvalidFormat))
}

func TestGaps(t *testing.T) {
	window := Range{Start: MustParse("07:00"), End: MustParse("22:00")}
	busy := []Range{
		{Start: MustParse("10:00"), End: MustParse("12:00")},
		{Start: MustParse("07:00"), End: MustParse("08:00")},
		{Start: MustParse("11:00"), End: MustParse("13:00")},
	}

	gaps := Gaps(window, busy)
	require.Len(t, gaps, 2)
	assert.Equal(t, "08:00-10:00", gaps[0].String())
	assert.Equal(t, "13:00-22:00", gaps[1].String())

	assert.Equal(t, []Range{window}, Gaps(window, nil))
	assert.Empty(t, Gaps(window, []Range{window}))
}

func TestClipAndContains(t *testing.T) {
	window := Range{Start: 420, End: 1320}
	c, ok := Range{Start: 360, End: 480}.Clip(window)
	require.True(t, ok)
	assert.Equal(t, Range{Start: 420, End: 480}, c)

	_, ok = Range{Start: 1320, End: 1380}.Clip(window)
	assert.False(t, ok)

	assert.True(t, window.Contains(Range{Start: 420, End: 1320}))
	assert.False(t, window.Contains(Range{Start: 400, End: 500}))
}

func TestMinuteJSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Start Minute `json:"start"`
	}{Start: MustParse("08:15")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"08:15"}`, string(payload))

	var decoded struct {
		Start Minute `json:"start"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"start":"13:45"}`), &decoded))
	assert.Equal(t, MustParse("13:45"), decoded.Start)

	err = json.Unmarshal([]byte(`{"start":"25:00"}`), &decoded)
	assert.True(t, errors.Is(err, ErrInvalidFormat))
}
