package extract

import (
	"iter"
	"strings"
)

// CanvasToken is yielded for cells that hold a graphic element.
const CanvasToken = "canvas"

// Tokenize returns a lazy sequence with one token per cell of row. The
// sequence is single-use: ranging over it a second time yields nothing.
//
// The first cell whose text spans several lines is reduced to the line that
// looks most like a value, preferring numeric, then delta, then percent
// lines. Any later multi-line cell in the same row yields its first line.
func Tokenize(row Row) iter.Seq[string] {
	used := false
	return func(yield func(string) bool) {
		if used {
			return
		}
		used = true

		decomposed := false
		for _, c := range row.Cells() {
			var tok string
			if c.HasGraphic() {
				tok = CanvasToken
			} else {
				text := strings.TrimSpace(c.Text())
				if strings.Contains(text, "\n") {
					lines := splitLines(text)
					if !decomposed {
						tok = pickLine(lines)
						decomposed = true
					} else {
						tok = lines[0]
					}
				} else {
					tok = text
				}
			}
			if !yield(tok) {
				return
			}
		}
	}
}

// splitLines splits text on newlines, trimming each line and dropping empty
// ones. text must be non-empty after trimming.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func pickLine(lines []string) string {
	for _, l := range lines {
		if isNumericLine(l) {
			return l
		}
	}
	for _, l := range lines {
		if strings.ContainsAny(l, "+-") {
			return l
		}
	}
	for _, l := range lines {
		if strings.Contains(l, "%") {
			return stripParens(l)
		}
	}
	return lines[0]
}

// isNumericLine reports whether l consists only of digits, '.', '-' and ','
// and holds at least one digit.
func isNumericLine(l string) bool {
	digit := false
	for _, r := range l {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r == '.' || r == '-' || r == ',':
		default:
			return false
		}
	}
	return digit
}

// stripParens removes one wrapping pair of parentheses.
func stripParens(s string) string {
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
