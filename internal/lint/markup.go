package lint

import (
	"fmt"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)\b[^>]*>`)

// voidElements never take a closing tag in HTML.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

type openTag struct {
	name string
	line int
	col  int
}

func checkTags(src string, void map[string]bool) []Marker {
	var (
		markers []Marker
		stack   []openTag
	)
	for _, loc := range tagPattern.FindAllStringSubmatchIndex(src, -1) {
		raw := src[loc[0]:loc[1]]
		name := strings.ToLower(src[loc[2]:loc[3]])
		line, col := position(src, loc[0])

		closing := strings.HasPrefix(raw, "</")
		selfClosing := strings.HasSuffix(raw, "/>") || void[name]

		switch {
		case closing:
			var top openTag
			ok := len(stack) > 0
			if ok {
				top = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
			if !ok || top.name != name {
				markers = append(markers, span(Error, line, col, len(raw),
					fmt.Sprintf("closing tag </%s> does not match any opening tag", name)))
			}
		case !selfClosing:
			stack = append(stack, openTag{name: name, line: line, col: col})
		}
	}
	for _, t := range stack {
		markers = append(markers, span(Warning, t.line, 1, 0,
			fmt.Sprintf("tag <%s> is never closed", t.name)))
	}
	return markers
}

func checkHTML(src string) []Marker {
	markers := checkTags(src, voidElements)
	if !strings.Contains(src, "<!DOCTYPE") && strings.HasPrefix(strings.TrimSpace(src), "<html") {
		markers = append(markers, span(Warning, 1, 1, 9, "add <!DOCTYPE html> at the start of the document"))
	}
	return markers
}

func checkXML(src string) []Marker {
	markers := checkTags(src, nil)
	if !strings.HasPrefix(strings.TrimSpace(src), "<?xml") && strings.Contains(src, "<") {
		markers = append(markers, span(Info, 1, 1, 9, `add <?xml version="1.0"?> at the start of the document`))
	}
	return markers
}
