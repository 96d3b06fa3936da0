package lint

import (
	"context"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	sqllang "github.com/smacker/go-tree-sitter/sql"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

func grammar(ext string) *sitter.Language {
	switch ext {
	case "js":
		return javascript.GetLanguage()
	case "ts":
		return typescript.GetLanguage()
	case "py":
		return python.GetLanguage()
	case "go":
		return golang.GetLanguage()
	case "sql":
		return sqllang.GetLanguage()
	case "yaml":
		return yaml.GetLanguage()
	}
	return nil
}

// syntaxErrors parses src and returns one marker per ERROR or MISSING
// node.
func syntaxErrors(ext, src string) []Marker {
	lang := grammar(ext)
	if lang == nil {
		return nil
	}
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	if err != nil {
		return []Marker{span(Error, 1, 1, 0, "parse failed: "+err.Error())}
	}
	root := tree.RootNode()
	if root == nil || !root.HasError() {
		return nil
	}
	var markers []Marker
	collect(root, &markers)
	return markers
}

func collect(node *sitter.Node, out *[]Marker) {
	if node.IsError() || node.IsMissing() {
		start, end := node.StartPoint(), node.EndPoint()
		msg := "syntax error"
		if node.IsMissing() {
			msg = "syntax error: missing " + node.Type()
		}
		m := Marker{
			Severity:  Error,
			Line:      int(start.Row) + 1,
			Column:    int(start.Column) + 1,
			EndLine:   int(end.Row) + 1,
			EndColumn: int(end.Column) + 1,
			Message:   msg,
		}
		if m.EndLine == m.Line && m.EndColumn <= m.Column {
			m.EndColumn = m.Column + 1
		}
		*out = append(*out, m)
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsError() || child.IsMissing() {
			collect(child, out)
		}
	}
}

func checkSyntax(ext string) checker {
	return func(src string) []Marker { return syntaxErrors(ext, src) }
}

// consoleLogLimit is how many console.log calls a file may carry before
// each one is flagged.
const consoleLogLimit = 5

var consoleLog = regexp.MustCompile(`console\.log`)

func checkScript(ext string) checker {
	return func(src string) []Marker {
		markers := syntaxErrors(ext, src)
		noisy := len(consoleLog.FindAllStringIndex(src, -1)) > consoleLogLimit

		for i, line := range strings.Split(src, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "//") {
				continue
			}
			if at := strings.Index(line, " == "); at >= 0 && !strings.Contains(line, "===") {
				markers = append(markers, span(Warning, i+1, at+2, 2,
					"consider === instead of == for strict comparison"))
			}
			if at := strings.Index(line, "console.log"); noisy && at >= 0 {
				markers = append(markers, span(Info, i+1, at+1, len("console.log"),
					"consider removing console.log before production"))
			}
		}
		return markers
	}
}
