package feed

import (
	"regexp"
	"strconv"
	"strings"
)

// Assignment heuristics. The keyword set and the class-prefix shape were
// tuned against real institutional feeds; changing either silently
// reclassifies stored records, so they stay fixed.
var (
	assignmentKeywordPattern = regexp.MustCompile(`(?i)\b(due|homework|exam|project|presentation|read|submit)\b`)

	// Optional advanced-course marker, an uppercase course-name run, a
	// separator, a short section token, then a colon: "ADV. BIOLOGY - B:".
	classPrefixPattern = regexp.MustCompile(`^(?:ADV\.?\s+)?[A-Z][A-Z0-9&/.' ]{1,40}[-\x{2013}]\s*[A-Z0-9]{1,3}\s*:`)

	// H:MM or bare H with a meridiem, periods optional: "8:55 a.m.",
	// "11:59 pm", "9 am".
	clockTimePattern = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*([AaPp])\.?[Mm]\.?`)
)

// Classifier decides whether an item is an assignment and derives the
// fields that depend on that: the clock time embedded in the title and the
// effective due date when the feed encodes none.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

func (c *Classifier) Run(item CalendarItem) CalendarItem {
	item.IsAssignment = c.isAssignment(item.Title)

	if item.IsAssignment {
		item.ExtractedTime = c.extractClockTime(item.Title)
	}

	return c.inferDue(item)
}

func (c *Classifier) isAssignment(title string) bool {
	if title == "" {
		return false
	}
	return assignmentKeywordPattern.MatchString(title) || classPrefixPattern.MatchString(title)
}

// extractClockTime captures the first clock-time token in the title,
// verbatim. A candidate immediately followed by a letter ("9 amps") is not
// a clock time.
func (c *Classifier) extractClockTime(title string) string {
	for _, m := range clockTimePattern.FindAllStringIndex(title, -1) {
		if m[1] < len(title) && isASCIILetter(title[m[1]]) {
			continue
		}
		return title[m[0]:m[1]]
	}
	return ""
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// inferDue applies the due-date precedence: an explicit due property is
// authoritative; otherwise an assignment inherits its start date, combined
// with the extracted title time when one parses.
func (c *Classifier) inferDue(item CalendarItem) CalendarItem {
	if item.DueRaw != "" {
		item.DueTime = DisplayTime(item.DueRaw)
		return item
	}

	if !item.IsAssignment || item.StartRaw == "" {
		return item
	}

	dateToken := datePart(item.StartRaw)
	if dateToken == "" {
		return item
	}

	item.DueRaw = dateToken

	if hour, minute, ok := parseClockTime(item.ExtractedTime); ok {
		if display := displayDateAt(dateToken, hour, minute); display != "" {
			item.DueTime = display
			return item
		}
	}

	item.DueTime = DisplayTime(dateToken)
	return item
}

// parseClockTime converts a captured meridiem token into a 24-hour clock.
// Hours outside 1..12 or minutes outside 0..59 do not parse.
func parseClockTime(token string) (int, int, bool) {
	m := clockTimePattern.FindStringSubmatch(token)
	if m == nil {
		return 0, 0, false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil || hour < 1 || hour > 12 {
		return 0, 0, false
	}

	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return 0, 0, false
		}
	}

	switch strings.ToLower(m[3]) {
	case "a":
		if hour == 12 {
			hour = 0
		}
	default:
		if hour != 12 {
			hour += 12
		}
	}

	return hour, minute, true
}

// datePart returns the leading 8-digit calendar date of a token, or "".
func datePart(token string) string {
	if len(token) < 8 {
		return ""
	}
	for i := 0; i < 8; i++ {
		if token[i] < '0' || token[i] > '9' {
			return ""
		}
	}
	return token[:8]
}
