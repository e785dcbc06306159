package feed

import (
	"strings"
	"time"
)

// Compact feed token layouts. A "Z" suffix means UTC; everything else is
// implicit local time, with no timezone database resolution.
const (
	dateLayout        = "20060102"
	dateTimeLayout    = "20060102T150405"
	dateTimeUTCLayout = "20060102T150405Z"
)

// Renderer-facing display layouts.
const (
	displayDateLayout     = "January 2, 2006"
	displayDateTimeLayout = "January 2, 2006 at 15:04"
)

// ToInstant converts a compact date or date-time token into epoch seconds.
// Date-only tokens normalize to local midnight. A malformed token reports
// ok=false with a zero instant, so callers that sort on the value treat it
// as very old instead of failing.
func ToInstant(token string) (int64, bool) {
	t, ok := parseToken(token)
	if !ok {
		return 0, false
	}
	return t.Unix(), true
}

func parseToken(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	if len(token) < 8 {
		return time.Time{}, false
	}

	var t time.Time
	var err error
	switch {
	case strings.HasSuffix(token, "Z"):
		t, err = time.Parse(dateTimeUTCLayout, token)
	case strings.ContainsRune(token, 'T'):
		t, err = time.ParseInLocation(dateTimeLayout, token, time.Local)
	default:
		t, err = time.ParseInLocation(dateLayout, token, time.Local)
	}
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// DisplayTime renders a raw token for display: date-only tokens as a long
// date, date-time tokens with the 24-hour clock appended. A malformed token
// renders as the empty string.
func DisplayTime(token string) string {
	t, ok := parseToken(token)
	if !ok {
		return ""
	}

	if len(strings.TrimSpace(token)) == len(dateLayout) {
		return t.Format(displayDateLayout)
	}
	return t.Format(displayDateTimeLayout)
}

// displayDateAt renders an 8-digit date token with an explicit clock time,
// for due displays synthesized from a start date plus a time lifted out of
// the title.
func displayDateAt(dateToken string, hour, minute int) string {
	day, ok := parseToken(dateToken)
	if !ok {
		return ""
	}

	t := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
	return t.Format(displayDateTimeLayout)
}
