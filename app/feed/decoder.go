package feed

import (
	"regexp"
	"strconv"
	"strings"
)

// backslashPlaceholder shields literal double-backslash sequences while the
// single-character escapes are rewritten, and is restored as one backslash
// at the end of the pass.
const backslashPlaceholder = "\x00"

var (
	markupTagPattern  = regexp.MustCompile(`<[^<>]+>`)
	numericRefPattern = regexp.MustCompile(`&#(x|X)?([0-9a-fA-F]+);`)
	excessNewlines    = regexp.MustCompile(`\n{3,}`)
)

// escapeReplacer rewrites feed text escapes. The double backslash is listed
// first so "\\n" decodes to a literal backslash and an 'n', not a newline.
var escapeReplacer = strings.NewReplacer(
	`\\`, backslashPlaceholder,
	`\n`, "\n",
	`\N`, "\n",
	`\r`, "\r",
	`\,`, ",",
	`\;`, ";",
	`\:`, ":",
)

// namedRefReplacer covers the character entities that actually show up in
// institutional feed exports.
var namedRefReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&apos;", "'",
	"&nbsp;", " ",
	"&ndash;", "–",
	"&mdash;", "—",
	"&lsquo;", "‘",
	"&rsquo;", "’",
	"&ldquo;", "“",
	"&rdquo;", "”",
)

// DecodeText normalizes a free-text field value: backslash escapes, embedded
// markup and character references all reduce to plain text, runs of blank
// lines collapse to one, and surrounding whitespace is trimmed. Decoding
// already-decoded ordinary text leaves it unchanged.
func DecodeText(text string) string {
	if text == "" {
		return ""
	}

	text = escapeReplacer.Replace(text)
	text = markupTagPattern.ReplaceAllString(text, "")
	text = decodeNumericRefs(text)
	text = namedRefReplacer.Replace(text)
	text = strings.ReplaceAll(text, backslashPlaceholder, `\`)
	text = excessNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// decodeNumericRefs resolves decimal and hexadecimal character references.
// References that do not parse or name an invalid code point stay verbatim.
func decodeNumericRefs(text string) string {
	return numericRefPattern.ReplaceAllStringFunc(text, func(ref string) string {
		m := numericRefPattern.FindStringSubmatch(ref)

		base := 10
		if m[1] != "" {
			base = 16
		}

		code, err := strconv.ParseInt(m[2], base, 32)
		if err != nil || code <= 0 || code > 0x10FFFF || (code >= 0xD800 && code <= 0xDFFF) {
			return ref
		}

		return string(rune(code))
	})
}
