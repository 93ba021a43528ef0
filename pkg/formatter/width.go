package formatter

import (
	"unicode"
)

// MaxFieldWidth is the display cap for identity and name columns.
const MaxFieldWidth = 20

// RuneWidth returns the display width of a rune
// ASCII characters have width 1, CJK characters have width 2
func RuneWidth(r rune) int {
	if r == '\t' {
		return 1
	}

	if r < 128 {
		return 1
	}

	if unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hangul, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) {
		return 2
	}

	return 1
}

// StringWidth returns the display width of a string
func StringWidth(s string) int {
	width := 0
	for _, r := range s {
		width += RuneWidth(r)
	}
	return width
}

// Truncate caps s at MaxFieldWidth display columns. When s is wider, the
// kept prefix is cut three columns short and a three-dot ellipsis takes the
// freed space, so the result never exceeds the cap.
func Truncate(s string) string {
	if StringWidth(s) <= MaxFieldWidth {
		return s
	}
	kept := ""
	width := 0
	for _, r := range s {
		w := RuneWidth(r)
		if width+w > MaxFieldWidth-3 {
			break
		}
		kept += string(r)
		width += w
	}
	return kept + "..."
}
