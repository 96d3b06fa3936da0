// Package lint produces editor markers for the languages the workspace
// understands. Every check is advisory: Validate never fails, it only
// reports.
package lint

import (
	"sort"
	"strings"

	"github.com/petervdpas/codespace/internal/content"
)

type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
)

// Marker is one diagnostic. Lines and columns are 1-based; End* is
// exclusive.
type Marker struct {
	Severity  Severity `json:"severity"`
	Line      int      `json:"line"`
	Column    int      `json:"column"`
	EndLine   int      `json:"endLine"`
	EndColumn int      `json:"endColumn"`
	Message   string   `json:"message"`
}

type checker func(src string) []Marker

var checkers = map[string]checker{
	"html": checkHTML,
	"htm":  checkHTML,
	"xml":  checkXML,
	"css":  checkCSS,
	"js":   checkScript("js"),
	"ts":   checkScript("ts"),
	"py":   checkSyntax("py"),
	"go":   checkSyntax("go"),
	"sql":  checkSyntax("sql"),
	"yaml": checkSyntax("yaml"),
	"yml":  checkSyntax("yaml"),
	"json": checkJSON,
	"md":   checkMarkdown,
}

// Supported reports whether ext has a validator.
func Supported(ext string) bool {
	_, ok := checkers[content.NormalizeExt(ext)]
	return ok
}

// Validate runs the validator for ext over src. Unknown extensions yield
// no markers. Markers come back ordered by position.
func Validate(ext, src string) []Marker {
	check, ok := checkers[content.NormalizeExt(ext)]
	if !ok {
		return nil
	}
	markers := check(src)
	sort.SliceStable(markers, func(i, j int) bool {
		if markers[i].Line != markers[j].Line {
			return markers[i].Line < markers[j].Line
		}
		return markers[i].Column < markers[j].Column
	})
	return markers
}

// Count tallies markers per severity.
func Count(markers []Marker) map[Severity]int {
	out := map[Severity]int{}
	for _, m := range markers {
		out[m.Severity]++
	}
	return out
}

// span builds a single-line marker.
func span(sev Severity, line, col, width int, msg string) Marker {
	return Marker{Severity: sev, Line: line, Column: col, EndLine: line, EndColumn: col + width, Message: msg}
}

// position converts a byte offset into a 1-based line and column.
func position(src string, off int) (int, int) {
	if off > len(src) {
		off = len(src)
	}
	before := src[:off]
	line := strings.Count(before, "\n") + 1
	col := off - strings.LastIndex(before, "\n")
	return line, col
}
