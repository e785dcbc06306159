package feed

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Parser turns raw calendar feed text into normalized, classified items.
// Malformed content never fails the parse; every extraction degrades to
// absence instead.
type Parser struct {
	classifier *Classifier
}

func NewParser() *Parser {
	return &Parser{
		classifier: NewClassifier(),
	}
}

// Run parses a fetched feed body. The only error is an empty body; any
// other input produces zero or more items.
func (p *Parser) Run(data []byte) (*Metadata, []CalendarItem, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("feed body is empty")
	}

	text := unfold(decodeCharset(data))

	metadata := p.extractMetadata(text)

	blocks := tokenize(text)
	items := make([]CalendarItem, 0, len(blocks))
	for _, block := range blocks {
		items = append(items, p.classifier.Run(p.normalizeBlock(block)))
	}

	return metadata, items, nil
}

func (p *Parser) extractMetadata(text string) *Metadata {
	metadata := &Metadata{}

	if v, ok := extractField(text, "X-WR-CALNAME"); ok {
		metadata.CalName = DecodeText(v)
	}
	if v, ok := extractField(text, "X-WR-CALDESC"); ok {
		metadata.CalDesc = DecodeText(v)
	}
	if v, ok := extractField(text, "PRODID"); ok {
		metadata.ProdID = strings.TrimSpace(v)
	}
	if v, ok := extractField(text, "X-WR-TIMEZONE"); ok {
		metadata.Timezone = strings.TrimSpace(v)
	}

	return metadata
}

// normalizeBlock extracts the recognized properties of one block into a
// CalendarItem. Free-text fields are decoded; date tokens, status codes and
// the recurrence rule are kept verbatim.
func (p *Parser) normalizeBlock(block Block) CalendarItem {
	body := block.Body

	item := CalendarItem{
		UID:          rawField(body, "UID"),
		Title:        DecodeText(fieldValue(body, "SUMMARY")),
		Description:  DecodeText(fieldValue(body, "DESCRIPTION")),
		Location:     DecodeText(fieldValue(body, "LOCATION")),
		URL:          rawField(body, "URL"),
		StartRaw:     rawField(body, "DTSTART"),
		DueRaw:       rawField(body, "DUE"),
		EndRaw:       rawField(body, "DTEND"),
		CompletedRaw: rawField(body, "COMPLETED"),
		Status:       rawField(body, "STATUS"),
		RRule:        rawField(body, "RRULE"),
		Organizer:    DecodeText(fieldValue(body, "ORGANIZER")),
	}

	if item.Title == "" {
		item.Title = "Untitled"
	}

	item.StartTime = DisplayTime(item.StartRaw)
	item.EndTime = DisplayTime(item.EndRaw)
	item.CompletedTime = DisplayTime(item.CompletedRaw)

	if v, ok := extractField(body, "PRIORITY"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			item.Priority = &n
		}
	}
	if v, ok := extractField(body, "PERCENT-COMPLETE"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			item.PercentComplete = &n
		}
	}

	for _, attendee := range extractFieldAll(body, "ATTENDEE") {
		if decoded := DecodeText(attendee); decoded != "" {
			item.Attendees = append(item.Attendees, decoded)
		}
	}

	return item
}

// rawField extracts a property value kept verbatim apart from surrounding
// whitespace.
func rawField(body, name string) string {
	v, _ := extractField(body, name)
	return strings.TrimSpace(v)
}

func fieldValue(body, name string) string {
	v, _ := extractField(body, name)
	return v
}

// decodeCharset tolerates non-UTF-8 bodies by re-decoding them as
// Windows-1252, the dominant legacy encoding for this kind of export.
func decodeCharset(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return string(data)
	}

	return string(decoded)
}
