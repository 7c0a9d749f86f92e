// Package normalize produces the canonical text form that hashing and
// scoring operate on: markup stripped, Arabic presentation variants folded
// to their Persian forms, Unicode composed, whitespace collapsed.
package normalize

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// arabicFold maps Arabic codepoints commonly pasted into Persian documents
// onto the Persian letters the keyword tables use.
var arabicFold = strings.NewReplacer(
	"ي", "ی", // ي -> ی
	"ك", "ک", // ك -> ک
	"ة", "ه", // ة -> ه
	"ى", "ی", // ى -> ی
)

// Normalizer implements fetch.Normalizer.
type Normalizer struct{}

// New returns a Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize strips HTML down to visible text and folds it into canonical
// form. Script and style contents are dropped, not just their tags.
func (n *Normalizer) Normalize(html string) (string, error) {
	return Text(html)
}

// Text is the underlying pure function.
func Text(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	text := doc.Text()
	text = norm.NFC.String(text)
	text = arabicFold.Replace(text)
	return strings.Join(strings.Fields(text), " "), nil
}
