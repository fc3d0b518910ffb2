package services

import (
	"net/url"
	"sort"
	"strings"
)

// DefaultLineTolerance is the vertical distance, in layout units, under which
// two fragments are treated as sitting on the same line.
const DefaultLineTolerance = 0.1

// Fragment is a positioned run of text on a page. Y grows downward.
type Fragment struct {
	X    float64
	Y    float64
	Text string
}

// LayoutText turns positioned fragments into normalized text in reading
// order: top to bottom, then left to right within a line. Pages are
// separated by a paragraph break before whitespace is collapsed.
func LayoutText(pages [][]Fragment, tolerance float64) string {
	var b strings.Builder
	for i, page := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(layoutPage(page, tolerance))
	}
	return CollapseWhitespace(b.String())
}

func layoutPage(fragments []Fragment, tolerance float64) string {
	if len(fragments) == 0 {
		return ""
	}

	sorted := make([]Fragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if diff := sorted[i].Y - sorted[j].Y; diff > tolerance || diff < -tolerance {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines [][]Fragment
	var current []Fragment
	prevY := sorted[0].Y
	for _, f := range sorted {
		if len(current) > 0 && f.Y-prevY > tolerance {
			lines = append(lines, current)
			current = nil
		}
		current = append(current, f)
		prevY = f.Y
	}
	lines = append(lines, current)

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
		parts := make([]string, 0, len(line))
		for _, f := range line {
			parts = append(parts, DecodeFragment(f.Text))
		}
		out = append(out, strings.Join(parts, " "))
	}
	return strings.Join(out, "\n")
}

// DecodeFragment percent-decodes fragment text and returns it unchanged when
// the escapes are malformed.
func DecodeFragment(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// CollapseWhitespace replaces every whitespace run with one space and trims.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
