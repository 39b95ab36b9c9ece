package receipt

import "strings"

// ForwardDelimiter is the line Proton Mail inserts above forwarded content.
const ForwardDelimiter = "------- Forwarded Message -------"

// ExtractNotes returns the text the user typed above the forwarded message,
// trimmed. It returns "" when there is no delimiter or nothing but whitespace
// before it.
func ExtractNotes(plain string) string {
	before, _, found := strings.Cut(plain, ForwardDelimiter)
	if !found {
		return ""
	}
	return strings.TrimSpace(before)
}
