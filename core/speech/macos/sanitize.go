package macos

import (
	"regexp"
	"strings"
)

var (
	markdownLinks = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	codeBlocks    = regexp.MustCompile("(?s)```.*?```")
	unreadable    = regexp.MustCompile(`[^a-zA-Z0-9\s.,!?-]`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// sanitize reduces text to something a voice can read: markdown links keep
// only their label, code blocks are dropped entirely and symbols outside
// basic punctuation are removed.
func sanitize(text string) string {
	text = markdownLinks.ReplaceAllString(text, "$1")
	text = codeBlocks.ReplaceAllString(text, "")
	text = unreadable.ReplaceAllString(text, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}
