package parser

import (
	"bufio"
	"strings"
)

// SourceLine is one logical line of a program with its 1-based line number.
type SourceLine struct {
	Number int
	Text   string
}

// Lines splits source text into logical lines. Blank lines and lines starting
// with '#' are dropped; surrounding whitespace and trailing periods are removed.
func Lines(source string) []SourceLine {
	var lines []SourceLine
	sc := bufio.NewScanner(strings.NewReader(source))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		text := CleanLine(sc.Text())
		if text == "" {
			continue
		}
		lines = append(lines, SourceLine{Number: n, Text: text})
	}
	return lines
}

// CleanLine trims a raw line and strips its trailing periods. Comment lines
// come back empty.
func CleanLine(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "#") {
		return ""
	}
	text = strings.TrimRight(text, ".")
	return strings.TrimSpace(text)
}
