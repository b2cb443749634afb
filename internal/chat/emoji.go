package chat

import (
	"strings"
	"unicode"
)

// emojiTable maps whole whitespace-delimited tokens to glyphs.
var emojiTable = map[string]string{
	":)":  "😊",
	":-)": "😊",
	":(":  "😢",
	":-(": "😢",
	":D":  "😃",
	";)":  "😉",
	":P":  "😛",
	":O":  "😮",
	"<3":  "❤️",
	"XD":  "😆",
}

// Render substitutes emoji for every token that exactly matches the table.
// Whitespace is preserved as-is; tokens that do not match pass through.
func Render(body string) string {
	var b strings.Builder
	b.Grow(len(body))

	start := -1
	for i, r := range body {
		if unicode.IsSpace(r) {
			if start >= 0 {
				b.WriteString(substitute(body[start:i]))
				start = -1
			}
			b.WriteRune(r)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		b.WriteString(substitute(body[start:]))
	}
	return b.String()
}

func substitute(token string) string {
	if glyph, ok := emojiTable[token]; ok {
		return glyph
	}
	return token
}
