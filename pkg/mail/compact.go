package mail

import (
	"regexp"
	"strings"
	"unicode"
)

// space matches the same runes as isSpace.
const space = `[\t\n\v\f\r \x{1c}-\x{1f}\x{85}\p{Z}]`

var (
	commentRe    = regexp.MustCompile(`<!--[\s\S]*?-->`)
	whitespaceRe = regexp.MustCompile(space + `+`)
	interTagRe   = regexp.MustCompile(`>` + space + `+<`)
)

// isSpace covers Unicode white space plus the ASCII separators 0x1c-0x1f, so
// no-break and em spaces collapse like ASCII blanks.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// CompactHTML shrinks an HTML body so mail clients are less likely to clip
// it. It strips comments, collapses whitespace runs to one space, drops the
// space between adjacent tags and trims the result. The input is treated as
// plain text; the output is not checked for validity.
//
// CompactHTML is idempotent.
func CompactHTML(html string) string {
	// Removing one comment can splice "<!" and "-- ... -->" into a new one.
	for commentRe.MatchString(html) {
		html = commentRe.ReplaceAllString(html, "")
	}
	html = whitespaceRe.ReplaceAllString(html, " ")
	html = interTagRe.ReplaceAllString(html, "><")
	return strings.TrimFunc(html, isSpace)
}
