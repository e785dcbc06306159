package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// Format identifies the wire shape of a fetched feed body.
type Format int

const (
	FormatCalendar Format = iota
	FormatXML
)

// DetectFormat sniffs a fetched body. XML documents route through the
// Bridge; everything else goes to the calendar parser, which tolerates
// arbitrary garbage.
func DetectFormat(data []byte) Format {
	head := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	if bytes.HasPrefix(head, []byte("<")) {
		return FormatXML
	}
	return FormatCalendar
}

// Bridge maps RSS and Atom documents into the calendar pipeline, so a
// subscription may point at either kind of feed. Entries are classified and
// reconciled exactly like parsed calendar blocks.
type Bridge struct {
	gofeedParser *gofeed.Parser
	classifier   *Classifier
}

func NewBridge() *Bridge {
	return &Bridge{
		gofeedParser: gofeed.NewParser(),
		classifier:   NewClassifier(),
	}
}

func (b *Bridge) Run(data []byte) (*Metadata, []CalendarItem, error) {
	parsed, err := b.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		CalName: parsed.Title,
		CalDesc: parsed.Description,
	}

	items := make([]CalendarItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		items = append(items, b.classifier.Run(b.normalizeEntry(entry)))
	}

	return metadata, items, nil
}

func (b *Bridge) normalizeEntry(entry *gofeed.Item) CalendarItem {
	item := CalendarItem{
		UID:         cmp.Or(entry.GUID, entry.Link),
		Title:       DecodeText(entry.Title),
		Description: DecodeText(cmp.Or(entry.Description, entry.Content)),
		URL:         entry.Link,
	}

	if item.Title == "" {
		item.Title = "Untitled"
	}

	if entry.PublishedParsed != nil {
		item.StartRaw = entry.PublishedParsed.In(time.Local).Format(dateTimeLayout)
		item.StartTime = DisplayTime(item.StartRaw)
	}

	return item
}
