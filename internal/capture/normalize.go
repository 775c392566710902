package capture

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// Head returns at most n leading runes of s.
func Head(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Tail returns at most n trailing runes of s.
func Tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// Snippet collapses whitespace and cuts s to n runes, marking the cut with "...".
func Snippet(s string, n int) string {
	s = strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
	if CountChars(s) <= n {
		return s
	}
	if n <= 3 {
		return Head(s, n)
	}
	return Head(s, n-3) + "..."
}
