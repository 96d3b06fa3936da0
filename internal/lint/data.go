package lint

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ohler55/ojg/oj"
)

func checkJSON(src string) []Marker {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	_, err := oj.ParseString(src)
	if err == nil {
		return nil
	}
	line, col := 1, 1
	var pe *oj.ParseError
	if errors.As(err, &pe) {
		line, col = max(pe.Line, 1), max(pe.Column, 1)
	}
	return []Marker{span(Error, line, col, 1, "invalid JSON: "+err.Error())}
}

var mdLink = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)

func checkMarkdown(src string) []Marker {
	var markers []Marker
	lines := strings.Split(src, "\n")

	inFence := false
	fenceLine := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if !inFence {
				// A one-line ```code``` block is closed already.
				if len(trimmed) > 3 && strings.HasSuffix(trimmed, "```") {
					continue
				}
				inFence, fenceLine = true, i
			} else {
				inFence = false
			}
			continue
		}
		if inFence {
			continue
		}
		for _, loc := range mdLink.FindAllStringSubmatchIndex(line, -1) {
			if strings.TrimSpace(line[loc[4]:loc[5]]) == "" {
				markers = append(markers, span(Warning, i+1, loc[0]+1, loc[1]-loc[0], "markdown link has no URL"))
			}
		}
	}
	if inFence {
		markers = append(markers, span(Warning, fenceLine+1, 1, len(lines[fenceLine]),
			"code block is never closed, add ``` to close it"))
	}
	return markers
}
