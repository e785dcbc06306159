package feed

import (
	"strings"
)

// Block is one component block of a feed: an event-like or task-like entry
// and its unfolded body text.
type Block struct {
	Name string
	Body string
}

// componentNames lists the block types that become items. Everything else
// (timezone definitions, alarms) is scanned past.
var componentNames = map[string]bool{
	"VEVENT": true,
	"VTODO":  true,
}

// unfolder joins folded continuation lines: a line ending followed by a
// single space or tab continues the previous logical line, with nothing
// inserted. CRLF and bare LF endings are both handled.
var unfolder = strings.NewReplacer("\r\n ", "", "\r\n\t", "", "\n ", "", "\n\t", "")

func unfold(raw string) string {
	return unfolder.Replace(raw)
}

// Tokenize splits raw feed text into an ordered sequence of component
// blocks. A block without a terminating marker is discarded; the rest of
// the feed still parses.
func Tokenize(raw string) []Block {
	return tokenize(unfold(raw))
}

func tokenize(text string) []Block {
	lines := splitLines(text)

	var blocks []Block
	for i := 0; i < len(lines); i++ {
		name, ok := beginMarker(lines[i])
		if !ok || !componentNames[name] {
			continue
		}

		body, end := collectBody(lines, i+1, name)
		if end < 0 {
			// Unterminated block: drop it and keep scanning from the next
			// line so later blocks are not lost.
			continue
		}

		blocks = append(blocks, Block{Name: name, Body: strings.Join(body, "\n")})
		i = end
	}

	return blocks
}

// collectBody gathers the lines of a block up to its END marker, skipping
// nested subcomponents so their properties cannot shadow the parent's.
// Returns a negative index when no matching terminator exists.
func collectBody(lines []string, start int, name string) ([]string, int) {
	var body []string
	depth := 0

	for j := start; j < len(lines); j++ {
		line := lines[j]

		if _, ok := beginMarker(line); ok {
			depth++
			continue
		}

		if endName, ok := endMarker(line); ok {
			if depth > 0 {
				depth--
				continue
			}
			if endName == name {
				return body, j
			}
			// A mismatched terminator means the block never closed.
			return nil, -1
		}

		if depth == 0 {
			body = append(body, line)
		}
	}

	return nil, -1
}

func beginMarker(line string) (string, bool) {
	name, ok := strings.CutPrefix(line, "BEGIN:")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(name), true
}

func endMarker(line string) (string, bool) {
	name, ok := strings.CutPrefix(line, "END:")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(name), true
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}
