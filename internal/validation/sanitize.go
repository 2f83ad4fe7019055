package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxSanitizedLength caps the rune length of any sanitized string.
const MaxSanitizedLength = 1000

var (
	scriptBlockRegex = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	htmlTagRegex     = regexp.MustCompile(`<[^>]*>`)
)

// Sanitize turns untrusted input into plain text. Non-string input yields "".
//
// Script blocks are removed with their content before any other tag is
// stripped; the remaining markup characters < > ' " & and C0 control
// characters other than newline and tab are dropped. The result is NFC
// normalized, trimmed and capped at MaxSanitizedLength runes.
// Sanitize(Sanitize(s)) == Sanitize(s) for every s.
func Sanitize(input any) string {
	s, ok := input.(string)
	if !ok {
		return ""
	}

	// Removing one block can join the pieces around it into another, as in
	// "<scr<script>x</script>ipt>...</script>".
	for {
		stripped := scriptBlockRegex.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = htmlTagRegex.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '<', r == '>', r == '\'', r == '"', r == '&':
			return -1
		case r == '\n', r == '\t':
			return r
		case r < 0x20, r == 0x7f:
			return -1
		}
		return r
	}, s)

	// Normalize after every removal so characters brought together by a
	// deletion are composed in this pass rather than the next one.
	s = norm.NFC.String(s)
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) > MaxSanitizedLength {
		s = strings.TrimSpace(string([]rune(s)[:MaxSanitizedLength]))
	}
	return s
}
