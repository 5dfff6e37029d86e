package csvflat

import (
	"regexp"
	"strings"
)

var (
	trademarkPattern  = regexp.MustCompile(`[™®]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanText trims, turns newlines and commas into spaces, strips ™/® and
// collapses runs of whitespace.
func CleanText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.NewReplacer("\n", " ", "\r", " ", ",", " ").Replace(text)
	text = trademarkPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CleanSpecial strips ™/®, trims and lower-cases. Inner whitespace is kept.
func CleanSpecial(text string) string {
	return strings.ToLower(strings.TrimSpace(trademarkPattern.ReplaceAllString(text, "")))
}
