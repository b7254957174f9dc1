package sanitize

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const DefaultExcerptLength = 280

// Excerpt extracts a plain-text summary from already sanitized HTML.
// It returns an empty string when the markup has no text.
func Excerpt(cleanHTML string, limit int) string {
	if limit <= 0 {
		limit = DefaultExcerptLength
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleanHTML))
	if err != nil {
		return ""
	}

	text := strings.Join(strings.Fields(doc.Text()), " ")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
