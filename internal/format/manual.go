package format

import (
	"context"
	"regexp"
	"strings"
)

var (
	cssOpen     = regexp.MustCompile(`\s*\{\s*`)
	cssSemi     = regexp.MustCompile(`;\s*`)
	cssClose    = regexp.MustCompile(`\s*\}\s*`)
	cssComma    = regexp.MustCompile(`,\s*`)
	cssColon    = regexp.MustCompile(`:\s*`)
	blankRun    = regexp.MustCompile(`\n{3,}`)
	sqlKeywordR = regexp.MustCompile(`(?i)\b(` + strings.Join(sqlKeywordList, "|") + `)\b`)
)

var sqlKeywordList = []string{
	"SELECT", "FROM", "WHERE", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP",
	"ALTER", "TABLE", "INTO", "VALUES", "SET", "AND", "OR", "ORDER", "BY",
	"GROUP", "HAVING", "JOIN", "INNER", "LEFT", "RIGHT", "ON", "AS",
}

func trimLines(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}

// cssManual is the regex normalizer used when no parser accepts the
// stylesheet.
func cssManual(indent string) stepFunc {
	return func(_ context.Context, src string) (string, error) {
		out := cssOpen.ReplaceAllString(src, " {\n"+indent)
		out = cssSemi.ReplaceAllString(out, ";\n"+indent)
		out = cssClose.ReplaceAllString(out, "\n}\n\n")
		out = cssComma.ReplaceAllString(out, ", ")
		out = cssColon.ReplaceAllString(out, ": ")
		out = trimLines(strings.TrimSpace(out))
		return blankRun.ReplaceAllString(out, "\n\n"), nil
	}
}

// textCleanup strips trailing whitespace and collapses blank runs.
func textCleanup(_ context.Context, src string) (string, error) {
	return strings.TrimSpace(blankRun.ReplaceAllString(trimLines(src), "\n\n")), nil
}

// yamlCleanup leaves blank runs alone; they can be meaningful in block
// scalars.
func yamlCleanup(_ context.Context, src string) (string, error) {
	return strings.TrimSpace(trimLines(src)), nil
}

func sqlKeywords(_ context.Context, src string) (string, error) {
	out := sqlKeywordR.ReplaceAllStringFunc(trimLines(src), strings.ToUpper)
	return strings.TrimSpace(blankRun.ReplaceAllString(out, "\n\n")), nil
}
