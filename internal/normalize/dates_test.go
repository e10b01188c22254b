package normalize

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func newTestDates(t *testing.T) *DateNormalizer {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	return NewDateNormalizer(fixedClock(time.Date(2025, 6, 10, 9, 0, 0, 0, loc)), loc, nil, nil)
}

func TestDateNormalizer(t *testing.T) {
	t.Parallel()

	n := newTestDates(t)
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "iso passthrough", raw: "2025-05-30", want: "2025-05-30"},
		{name: "iso datetime truncated", raw: "2025-05-30T12:00:00Z", want: "2025-05-30"},
		{name: "days ago", raw: "3 days ago", want: "2025-06-07"},
		{name: "one day ago", raw: "1 day ago", want: "2025-06-09"},
		{name: "korean days ago", raw: "5일 전", want: "2025-06-05"},
		{name: "korean with label", raw: "등록일 2일 전", want: "2025-06-08"},
		{name: "hours ago is today", raw: "3시간 전", want: "2025-06-10"},
		{name: "today", raw: "Today", want: "2025-06-10"},
		{name: "korean today", raw: "오늘마감", want: "2025-06-10"},
		{name: "yesterday", raw: "어제", want: "2025-06-09"},
		{name: "tomorrow", raw: "내일마감", want: "2025-06-11"},
		{name: "month day", raw: "11.11", want: "2025-11-11"},
		{name: "month day with weekday", raw: "~11.11(월)", want: "2025-11-11"},
		{name: "dotted full year", raw: "2025.07.01", want: "2025-07-01"},
		{name: "slashed full year", raw: "2025/7/1", want: "2025-07-01"},
		{name: "short year dotted", raw: "25.07.01", want: "2025-07-01"},
		{name: "short year slashed", raw: "25/07/01", want: "2025-07-01"},
		{name: "short year dashed", raw: "25-07-01", want: "2025-07-01"},
		{name: "labeled short year", raw: "수정일 25/06/01", want: "2025-06-01"},
		{name: "garbage unchanged", raw: "garbage-date", want: "garbage-date"},
		{name: "impossible month day unchanged", raw: "02.30", want: "02.30"},
		{name: "always open unchanged", raw: "상시채용", want: "상시채용"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := n.Normalize(tc.raw)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestDateNormalizerBlank(t *testing.T) {
	t.Parallel()

	n := newTestDates(t)
	assert.Nil(t, n.Normalize(""))
	assert.Nil(t, n.Normalize("   "))
}

func TestDateNormalizerRelativeShiftsWithClock(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	day1 := NewDateNormalizer(fixedClock(time.Date(2025, 6, 10, 12, 0, 0, 0, loc)), loc, nil, nil)
	day2 := NewDateNormalizer(fixedClock(time.Date(2025, 6, 11, 12, 0, 0, 0, loc)), loc, nil, nil)

	first := day1.Normalize("5 days ago")
	second := day2.Normalize("6 days ago")
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, "2025-06-05", *first)
}

func TestDateNormalizerUsesLocationForToday(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	// 2025-06-09 20:00 UTC is already 2025-06-10 in Seoul.
	n := NewDateNormalizer(fixedClock(time.Date(2025, 6, 9, 20, 0, 0, 0, time.UTC)), loc, nil, nil)
	got := n.Normalize("today")
	require.NotNil(t, got)
	assert.Equal(t, "2025-06-10", *got)
}

func TestNormalizerCombines(t *testing.T) {
	t.Parallel()

	n := New(nil, newTestDates(t))
	assert.Equal(t, "go, docker", n.Skills("Go / Docker"))
	got := n.Date("1일 전")
	require.NotNil(t, got)
	assert.Equal(t, "2025-06-09", *got)
	assert.Nil(t, n.Date(""))
}
