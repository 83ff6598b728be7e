// Package vn implements the visual-novel presentation layer: dialogue text
// shaping, the menu state machine, and scene compositing.
package vn

import (
	"errors"
	"strings"
)

// ErrInvalidPageSize is returned by PaginateText for a non-positive
// linesPerPage.
var ErrInvalidPageSize = errors.New("vn: lines per page must be a positive integer")

// DefaultWrapWidth is the dialogue line width in characters.
const DefaultWrapWidth = 30

// DefaultLinesPerPage is the number of dialogue lines shown per page.
const DefaultLinesPerPage = 5

// WrapText greedily wraps text at word boundaries so no line exceeds width
// characters. Runs of whitespace collapse to single spaces. Words longer
// than width get a line of their own rather than being split.
func WrapText(text string, width int) string {
	if width < 1 {
		width = DefaultWrapWidth
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) <= width {
			line += " " + word
		} else {
			lines = append(lines, line)
			line = word
		}
	}
	lines = append(lines, line)

	return strings.Join(lines, "\n")
}

// PaginateText splits text into pages of linesPerPage lines each. Empty
// text yields a single empty page.
func PaginateText(text string, linesPerPage int) ([]string, error) {
	if linesPerPage <= 0 {
		return nil, ErrInvalidPageSize
	}

	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	var pages []string
	for i := 0; i < len(lines); i += linesPerPage {
		end := i + linesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, strings.Join(lines[i:end], "\n"))
	}
	return pages, nil
}
