package format

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// jsonIndent keeps key order as written, which a decode/encode round
// trip would not.
func jsonIndent(indent string) stepFunc {
	return func(_ context.Context, src string) (string, error) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(strings.TrimSpace(src)), "", indent); err != nil {
			return "", err
		}
		buf.WriteByte('\n')
		return buf.String(), nil
	}
}

var errUnbalanced = errors.New("unbalanced brackets")

// scanState carries lexical state across lines.
type scanState struct {
	depth    int
	template bool
	comment  bool
}

// scan walks one line outside strings and comments and returns how many
// closers lead the line.
func (st *scanState) scan(line string) (leading int) {
	var quote byte
	leadingDone := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case st.comment:
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				st.comment = false
				i++
			}
			continue
		case st.template:
			if c == '\\' {
				i++
			} else if c == '`' {
				st.template = false
			}
			continue
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'':
			quote = c
		case '`':
			st.template = true
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return leading
			}
			if i+1 < len(line) && line[i+1] == '*' {
				st.comment = true
				i++
			}
		case '{', '[', '(':
			st.depth++
		case '}', ']', ')':
			st.depth--
			if !leadingDone {
				leading++
				continue
			}
		case ' ', '\t':
			continue
		}
		leadingDone = true
	}
	return leading
}

// braceIndent re-indents C-like sources by bracket depth. Lines inside
// template literals keep their text.
func braceIndent(indent string) stepFunc {
	return func(_ context.Context, src string) (string, error) {
		var (
			b     strings.Builder
			st    scanState
			blank bool
		)
		for _, raw := range strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n") {
			if st.template {
				b.WriteString(raw)
				b.WriteByte('\n')
				st.scan(raw)
				continue
			}
			inComment := st.comment
			start := st.depth
			line := strings.TrimSpace(raw)
			if line == "" {
				if !blank && b.Len() > 0 {
					b.WriteByte('\n')
				}
				blank = true
				continue
			}
			blank = false

			leading := st.scan(line)
			level := start - leading
			if level < 0 {
				return "", errUnbalanced
			}
			prefix := strings.Repeat(indent, level)
			if inComment && strings.HasPrefix(line, "*") {
				prefix += " "
			}
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if st.depth != 0 || st.template || st.comment {
			return "", errUnbalanced
		}
		return strings.TrimRight(b.String(), "\n") + "\n", nil
	}
}
