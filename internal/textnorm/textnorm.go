// Package textnorm cleans user-supplied chat text before it is interpreted or stored.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	// invisibleRegex matches zero-width and bidi control characters that chat
	// clients paste along with text.
	invisibleRegex = regexp.MustCompile(`[\x{200B}-\x{200F}\x{202A}-\x{202E}\x{2060}-\x{2064}\x{FEFF}]`)

	// controlRegex matches C0 control characters other than tab and newline.
	controlRegex = regexp.MustCompile(`[\x00-\x08\x0B-\x1F\x7F]`)
)

// StripInvisible removes zero-width and bidi formatting characters.
func StripInvisible(text string) string {
	return invisibleRegex.ReplaceAllString(text, "")
}

// StripControl removes control characters, keeping tabs and newlines.
func StripControl(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return controlRegex.ReplaceAllString(text, "")
}

// Clean performs full cleaning on text.
// This is the main function to use before interpreting any user message.
func Clean(text string) string {
	text = StripInvisible(text)
	text = StripControl(text)
	return strings.TrimSpace(text)
}

// IsBlank reports whether text has no visible content.
func IsBlank(text string) bool {
	return Clean(text) == ""
}

// SplitFirstToken splits text at the first run of whitespace.
// rest is trimmed; both are empty for blank input.
func SplitFirstToken(text string) (first, rest string) {
	text = strings.TrimSpace(text)
	idx := strings.IndexAny(text, " \t\n")
	if idx < 0 {
		return text, ""
	}
	return text[:idx], strings.TrimSpace(text[idx+1:])
}
