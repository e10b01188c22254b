package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoLayout = "2006-01-02"

// Clock returns the moment relative dates are resolved against.
type Clock interface {
	Now() time.Time
}

// DefaultDateLayouts are tried, in order, once the relative forms missed.
var DefaultDateLayouts = []string{
	"2006.1.2",
	"2006/1/2",
	"2006-1-2",
	"06.1.2",
	"06/1/2",
	"06-1-2",
}

// DefaultDatePrefixes are labels the listing puts in front of dates.
var DefaultDatePrefixes = []string{"등록일", "수정일", "마감일", "posted", "updated", "due"}

var (
	isoPrefix     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	daysAgo       = regexp.MustCompile(`(?i)^(\d+)\s*(?:일|days?)\s*(?:전|ago)`)
	hoursAgo      = regexp.MustCompile(`(?i)^(\d+)\s*(?:시간|분|hours?|minutes?|mins?)\s*(?:전|ago)`)
	monthDay      = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})$`)
	literalOffset = []struct {
		prefixes []string
		days     int
	}{
		{prefixes: []string{"today", "오늘"}, days: 0},
		{prefixes: []string{"yesterday", "어제"}, days: -1},
		{prefixes: []string{"tomorrow", "내일"}, days: 1},
	}
)

// DateNormalizer resolves listing date text to YYYY-MM-DD. Relative forms
// depend on the clock, so the same input resolves differently on different
// days.
type DateNormalizer struct {
	clock    Clock
	loc      *time.Location
	layouts  []string
	prefixes []string
}

// NewDateNormalizer builds a normalizer; a nil location means UTC and nil
// layouts/prefixes mean the defaults.
func NewDateNormalizer(clock Clock, loc *time.Location, layouts, prefixes []string) *DateNormalizer {
	if loc == nil {
		loc = time.UTC
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	if prefixes == nil {
		prefixes = DefaultDatePrefixes
	}
	return &DateNormalizer{clock: clock, loc: loc, layouts: layouts, prefixes: prefixes}
}

// Normalize returns nil for blank input, the ISO date when a strategy
// matched, and raw unchanged otherwise.
func (n *DateNormalizer) Normalize(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if out, ok := n.resolve(s); ok {
		return &out
	}
	return &raw
}

func (n *DateNormalizer) resolve(s string) (string, bool) {
	if isoPrefix.MatchString(s) {
		if _, err := time.Parse(isoLayout, s[:10]); err == nil {
			return s[:10], true
		}
	}

	s = n.stripPrefix(s)
	today := n.today()
	lower := strings.ToLower(s)

	if m := daysAgo.FindStringSubmatch(lower); m != nil {
		days, err := strconv.Atoi(m[1])
		if err == nil {
			return today.AddDate(0, 0, -days).Format(isoLayout), true
		}
	}
	if hoursAgo.MatchString(lower) {
		return today.Format(isoLayout), true
	}
	for _, lit := range literalOffset {
		for _, p := range lit.prefixes {
			if strings.HasPrefix(lower, p) {
				return today.AddDate(0, 0, lit.days).Format(isoLayout), true
			}
		}
	}

	cleaned := cleanDateText(s)
	if m := monthDay.FindStringSubmatch(cleaned); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if d, ok := validDate(today.Year(), month, day, n.loc); ok {
			return d.Format(isoLayout), true
		}
	}
	for _, layout := range n.layouts {
		if d, err := time.ParseInLocation(layout, cleaned, n.loc); err == nil {
			return d.Format(isoLayout), true
		}
	}
	return "", false
}

func (n *DateNormalizer) today() time.Time {
	now := time.Now()
	if n.clock != nil {
		now = n.clock.Now()
	}
	now = now.In(n.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, n.loc)
}

func (n *DateNormalizer) stripPrefix(s string) string {
	lower := strings.ToLower(s)
	for _, p := range n.prefixes {
		if strings.HasPrefix(lower, strings.ToLower(p)) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

// cleanDateText drops a trailing "(weekday)" and any "~" markers.
func cleanDateText(s string) string {
	if i := strings.Index(s, "("); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(strings.ReplaceAll(s, "~", ""))
}

func validDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
