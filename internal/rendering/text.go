package rendering

import (
	"strings"
	"unicode"
)

// NormalizeText collapses whitespace runs to single spaces and drops control characters.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text))

	space := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsControl(r):
			// dropped
		default:
			if space && result.Len() > 0 {
				result.WriteByte(' ')
			}
			space = false
			result.WriteRune(r)
		}
	}

	return result.String()
}

// Wrap breaks text into lines no wider than width. Words are only split where
// hyphenate returns more than one piece; a word that still does not fit is
// placed on its own line.
func Wrap(text string, width float64, measure func(string) float64, hyphenate func(string) []string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := ""
	fits := func(s string) bool { return measure(s) <= width }

	for _, word := range words {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if fits(candidate) {
			line = candidate
			continue
		}

		pieces := hyphenate(word)
		if len(pieces) > 1 {
			line = placePieces(&lines, line, pieces, fits)
			continue
		}

		if line != "" {
			lines = append(lines, line)
		}
		line = word
	}

	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// placePieces fills the current line with as many hyphenated pieces as fit.
func placePieces(lines *[]string, line string, pieces []string, fits func(string) bool) string {
	for i, piece := range pieces {
		last := i == len(pieces)-1
		suffix := "-"
		if last {
			suffix = ""
		}
		sep := ""
		if line != "" && i == 0 {
			sep = " "
		}
		if fits(line + sep + piece + suffix) {
			line += sep + piece
			if !last {
				continue
			}
			return line
		}
		if line != "" {
			if i > 0 {
				line += "-"
			}
			*lines = append(*lines, line)
		}
		line = piece
	}
	return line
}
