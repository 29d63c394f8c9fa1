// Package utils provides shared helpers for logging and displaying text.
package utils

import "unicode/utf8"

// Truncate returns s cut to at most maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

// Excerpt returns the byte span [offset, offset+length) of s in brackets with up
// to radius runes of surrounding text on each side. Cut sides are marked "...".
// An out-of-range span falls back to Truncate(s, 2*radius).
func Excerpt(s string, offset, length, radius int) string {
	end := offset + length
	if offset < 0 || length < 0 || end > len(s) ||
		(offset < len(s) && !utf8.RuneStart(s[offset])) || (end < len(s) && !utf8.RuneStart(s[end])) {
		return Truncate(s, 2*radius)
	}
	before := []rune(s[:offset])
	after := []rune(s[end:])
	prefix, suffix := "", ""
	if radius >= 0 && len(before) > radius {
		before = before[len(before)-radius:]
		prefix = "..."
	}
	if radius >= 0 && len(after) > radius {
		after = after[:radius]
		suffix = "..."
	}
	return prefix + string(before) + "[" + s[offset:end] + "]" + string(after) + suffix
}
