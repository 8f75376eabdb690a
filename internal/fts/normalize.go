package fts

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize prepares text for indexing: lowercase, diacritics stripped,
// whitespace runs collapsed. The unicode61 tokenizer does its own folding
// at query time; normalizing on insert keeps stored terms consistent with
// diacritic-free queries.
func Normalize(text string) string {
	text = strings.ToLower(text)
	if stripped, _, err := transform.String(stripMarks, text); err == nil {
		text = stripped
	}
	return strings.Join(strings.Fields(text), " ")
}
