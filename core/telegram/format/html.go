// Package format builds Telegram HTML message fragments. Every value that
// came from a user or an external API goes through Escape.
package format

import (
	"html"
	"strings"
	"unicode/utf8"
)

// Escape makes s safe for tele.ModeHTML.
func Escape(s string) string {
	return html.EscapeString(s)
}

// Bold wraps escaped s in <b>.
func Bold(s string) string { return "<b>" + Escape(s) + "</b>" }

// Italic wraps escaped s in <i>.
func Italic(s string) string { return "<i>" + Escape(s) + "</i>" }

// Code wraps escaped s in <code>.
func Code(s string) string { return "<code>" + Escape(s) + "</code>" }

// Truncate shortens s to at most max runes, ending with "..." when cut.
func Truncate(s string, max int) string {
	if max <= 3 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max-3])) + "..."
}

// Lines joins non-empty lines with newlines.
func Lines(lines ...string) string {
	out := lines[:0:0]
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
