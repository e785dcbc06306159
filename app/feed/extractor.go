package feed

import (
	"regexp"
	"strings"
)

// propertyLinePattern recognizes the start of a property line: an all-caps
// name followed by parameters or a value. Value capture for the preceding
// property stops at the next line matching this shape.
var propertyLinePattern = regexp.MustCompile(`^[A-Z][A-Z0-9-]*[;:]`)

// extractField returns the value of the first occurrence of the named
// property in an unfolded block body. Parameters between the name and the
// colon are tolerated and ignored. The value runs across literal newlines
// until the next property line or the end of the block. An absent property
// reports ok=false, never an error.
func extractField(body, name string) (string, bool) {
	lines := strings.Split(body, "\n")
	for i := 0; i < len(lines); i++ {
		value, _, ok := scanProperty(lines, i, name)
		if ok {
			return value, true
		}
	}
	return "", false
}

// extractFieldAll collects every occurrence of a multi-valued property, in
// document order. Returns nil when none match.
func extractFieldAll(body, name string) []string {
	var values []string
	lines := strings.Split(body, "\n")
	for i := 0; i < len(lines); {
		value, next, ok := scanProperty(lines, i, name)
		if !ok {
			i++
			continue
		}
		values = append(values, value)
		i = next
	}
	return values
}

// scanProperty matches the named property at lines[start] and captures its
// value, spilling over following non-property lines. Returns the index the
// caller should continue scanning from.
func scanProperty(lines []string, start int, name string) (string, int, bool) {
	value, ok := matchProperty(lines[start], name)
	if !ok {
		return "", start + 1, false
	}

	parts := []string{value}
	next := start + 1
	for next < len(lines) && !propertyLinePattern.MatchString(lines[next]) {
		parts = append(parts, lines[next])
		next++
	}

	return strings.Join(parts, "\n"), next, true
}

// matchProperty tests a single line against a property name. A ':' right
// after the name introduces the value; a ';' introduces parameters, which
// are skipped through to the first ':'.
func matchProperty(line, name string) (string, bool) {
	rest, ok := strings.CutPrefix(line, name)
	if !ok || rest == "" {
		return "", false
	}

	switch rest[0] {
	case ':':
		return rest[1:], true
	case ';':
		if idx := strings.IndexByte(rest, ':'); idx >= 0 {
			return rest[idx+1:], true
		}
	}

	return "", false
}
