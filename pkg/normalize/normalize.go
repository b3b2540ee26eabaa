// Package normalize produces canonical match keys for URL and free-text
// columns so the same post can be recognized across export formats.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"

	"github.com/Ramsey-B/clover/pkg/dataset"
)

var (
	// Embedded links inside captions, e.g. "check this out https://t.co/x "
	embeddedURLPattern = regexp.MustCompile(`https?://\S+\s`)
	nonWordPattern     = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// emojiRanges covers emoticons, symbols and pictographs, transport and map
// symbols, and regional indicator flags.
var emojiRanges = &unicode.RangeTable{
	R32: []unicode.Range32{
		{Lo: 0x1F1E0, Hi: 0x1F1FF, Stride: 1},
		{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1},
		{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1},
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1},
	},
}

// MatchKey normalizes a raw value into a match key. URL mode truncates at
// the query string; text mode strips whole embedded URLs instead. Both
// modes lower-case, strip emoji, transliterate to ASCII, and remove
// punctuation and whitespace. The result is deterministic and applying
// MatchKey to its own output returns the same string.
func MatchKey(raw string, isURL bool) string {
	s := strings.ToLower(raw)

	if isURL {
		if i := strings.Index(s, "?"); i >= 0 {
			s = s[:i]
		}
	} else {
		// Trailing delimiter so a URL at the end of the text still
		// matches the pattern.
		s += " "
		s = embeddedURLPattern.ReplaceAllString(s, "")
	}

	s = stripEmoji(s)
	s = unidecode.Unidecode(s)
	s = nonWordPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, "")

	return s
}

// MatchKeyValue is the null-aware form of MatchKey for dataset values.
// Nil passes through as nil; everything else is stringified first.
func MatchKeyValue(v any, isURL bool) any {
	if v == nil {
		return nil
	}
	return MatchKey(dataset.Stringify(v), isURL)
}

func stripEmoji(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(emojiRanges, r) {
			return -1
		}
		return r
	}, s)
}
