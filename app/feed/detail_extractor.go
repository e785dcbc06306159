package feed

import (
	"fmt"
	"log/slog"
	"strings"

	readability "codeberg.org/readeck/go-readability"
)

// DetailExtractor pulls the readable text out of an item's linked page, for
// items whose feed entry carries a URL but no useful description.
type DetailExtractor struct{}

func NewDetailExtractor() *DetailExtractor {
	return &DetailExtractor{}
}

func (e *DetailExtractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract details: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no details extracted from HTML data")
	}

	slog.Debug("Details extracted successfully",
		"title", article.Title,
		"text_length", len(text))

	return text, nil
}
