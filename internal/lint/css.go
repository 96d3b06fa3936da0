package lint

import (
	"fmt"
	"strings"
)

func checkCSS(src string) []Marker {
	var markers []Marker
	lines := strings.Split(src, "\n")

	depth := 0
	for i, line := range lines {
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth < 0 {
			col := strings.Index(line, "}") + 1
			markers = append(markers, span(Error, i+1, col, 1, "closing brace } has no matching {"))
			depth = 0
		}
	}
	if depth > 0 {
		markers = append(markers, span(Warning, len(lines), 1, 0,
			fmt.Sprintf("%d opening brace(s) { never closed", depth)))
	}

	// A declaration outside any rule block.
	depth = 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		colon := strings.Index(line, ":")
		if depth == 0 && colon > 0 && !strings.Contains(line, "{") &&
			!strings.HasPrefix(trimmed, "/*") && !strings.HasPrefix(trimmed, "@") {
			markers = append(markers, span(Warning, i+1, colon+1, 1,
				"CSS property outside a rule, check that it sits inside {}"))
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth < 0 {
			depth = 0
		}
	}
	return markers
}
