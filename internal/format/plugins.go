package format

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"github.com/tdewolff/parse/v2/html"
	gofumpt "mvdan.cc/gofumpt/format"
)

func gofumptSource(_ context.Context, src string) (string, error) {
	out, err := gofumpt.Source([]byte(src), gofumpt.Options{})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// joinTokens renders a token run with single spaces and ", " separators.
func joinTokens(toks []css.Token) string {
	var b strings.Builder
	space := false
	for _, t := range toks {
		switch t.TokenType {
		case css.WhitespaceToken, css.CommentToken:
			space = true
		case css.CommaToken:
			b.WriteString(", ")
			space = false
		default:
			if space && b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
				b.WriteByte(' ')
			}
			b.Write(t.Data)
			space = false
		}
	}
	return strings.TrimSpace(b.String())
}

// cssPlugin re-prints a stylesheet from the tdewolff grammar stream: one
// declaration per line, blank line between top-level blocks.
func cssPlugin(indent string) stepFunc {
	return func(_ context.Context, src string) (string, error) {
		p := css.NewParser(parse.NewInputString(src), false)

		var (
			b        strings.Builder
			depth    int
			selector []string
		)
		line := func(s string) {
			b.WriteString(strings.Repeat(indent, depth))
			b.WriteString(s)
			b.WriteByte('\n')
		}
		block := func() {
			if depth == 0 && b.Len() > 0 {
				b.WriteByte('\n')
			}
		}

		for {
			gt, _, data := p.Next()
			switch gt {
			case css.ErrorGrammar:
				if errors.Is(p.Err(), io.EOF) {
					if depth != 0 {
						return "", errors.New("css: unclosed block")
					}
					return b.String(), nil
				}
				return "", fmt.Errorf("css: %w", p.Err())
			case css.CommentGrammar:
				line(string(data))
			case css.AtRuleGrammar:
				if v := joinTokens(p.Values()); v != "" {
					line(string(data) + " " + v + ";")
				} else {
					line(string(data) + ";")
				}
			case css.BeginAtRuleGrammar:
				block()
				line(strings.TrimSpace(string(data)+" "+joinTokens(p.Values())) + " {")
				depth++
			case css.QualifiedRuleGrammar:
				selector = append(selector, joinTokens(p.Values()))
			case css.BeginRulesetGrammar:
				selector = append(selector, joinTokens(p.Values()))
				block()
				line(strings.Join(selector, ", ") + " {")
				selector = nil
				depth++
			case css.DeclarationGrammar, css.CustomPropertyGrammar:
				line(string(data) + ": " + joinTokens(p.Values()) + ";")
			case css.EndRulesetGrammar, css.EndAtRuleGrammar:
				if depth == 0 {
					return "", errors.New("css: unexpected }")
				}
				depth--
				line("}")
			}
		}
	}
}

type nodeKind int

const (
	nodeOpen nodeKind = iota
	nodeClose
	nodeVoid
	nodeText
	nodeVerbatim
)

type node struct {
	kind nodeKind
	name string
	text string
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// rawElements keep their body as written.
var rawElements = map[string]bool{"script": true, "style": true, "pre": true, "textarea": true}

func tokenizeMarkup(src string, htmlMode bool) ([]node, error) {
	l := html.NewLexer(parse.NewInputString(src))

	var (
		nodes []node
		tag   strings.Builder
		name  string
	)
	for {
		tt, data := l.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(l.Err(), io.EOF) {
				return nodes, nil
			}
			return nil, fmt.Errorf("markup: %w", l.Err())
		case html.StartTagToken:
			tag.Reset()
			name = string(l.Text())
			tag.WriteString("<" + name)
		case html.AttributeToken:
			tag.WriteString(" " + string(l.Text()))
			if v := l.AttrVal(); len(v) > 0 {
				tag.WriteString("=" + string(v))
			}
		case html.StartTagCloseToken:
			kind := nodeOpen
			if htmlMode && voidElements[strings.ToLower(name)] {
				kind = nodeVoid
			}
			nodes = append(nodes, node{kind: kind, name: name, text: tag.String() + ">"})
		case html.StartTagVoidToken:
			nodes = append(nodes, node{kind: nodeVoid, name: name, text: tag.String() + " />"})
		case html.EndTagToken:
			n := string(l.Text())
			nodes = append(nodes, node{kind: nodeClose, name: n, text: "</" + n + ">"})
		case html.TextToken:
			nodes = append(nodes, node{kind: nodeText, text: string(data)})
		default:
			nodes = append(nodes, node{kind: nodeVerbatim, text: strings.TrimSpace(string(data))})
		}
	}
}

func sameTag(a, b string, htmlMode bool) bool {
	if htmlMode {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// htmlPlugin re-indents markup one element per line. Elements holding
// only a short text run stay on one line.
func htmlPlugin(indent string, htmlMode bool) stepFunc {
	return func(_ context.Context, src string) (string, error) {
		nodes, err := tokenizeMarkup(src, htmlMode)
		if err != nil {
			return "", err
		}

		var b strings.Builder
		depth := 0
		line := func(s string) {
			b.WriteString(strings.Repeat(indent, depth))
			b.WriteString(s)
			b.WriteByte('\n')
		}

		for i := 0; i < len(nodes); i++ {
			n := nodes[i]
			switch n.kind {
			case nodeOpen:
				if htmlMode && rawElements[strings.ToLower(n.name)] {
					j := i + 1
					var body strings.Builder
					for j < len(nodes) && !(nodes[j].kind == nodeClose && sameTag(nodes[j].name, n.name, true)) {
						body.WriteString(nodes[j].text)
						j++
					}
					closing := "</" + n.name + ">"
					if j < len(nodes) {
						closing = nodes[j].text
					}
					lower := strings.ToLower(n.name)
					if lower == "pre" || lower == "textarea" {
						line(n.text + body.String() + closing)
					} else if strings.TrimSpace(body.String()) == "" {
						line(n.text + closing)
					} else {
						line(n.text)
						depth++
						for _, l := range dedent(body.String()) {
							if l == "" {
								b.WriteByte('\n')
								continue
							}
							line(l)
						}
						depth--
						line(closing)
					}
					i = j
					continue
				}
				if i+1 < len(nodes) && nodes[i+1].kind == nodeClose && sameTag(nodes[i+1].name, n.name, htmlMode) {
					line(n.text + nodes[i+1].text)
					i++
					continue
				}
				if i+2 < len(nodes) && nodes[i+1].kind == nodeText && nodes[i+2].kind == nodeClose &&
					sameTag(nodes[i+2].name, n.name, htmlMode) && !strings.Contains(strings.TrimSpace(nodes[i+1].text), "\n") {
					line(n.text + strings.Join(strings.Fields(nodes[i+1].text), " ") + nodes[i+2].text)
					i += 2
					continue
				}
				line(n.text)
				depth++
			case nodeClose:
				if depth > 0 {
					depth--
				}
				line(n.text)
			case nodeText:
				for _, l := range strings.Split(n.text, "\n") {
					if l = strings.Join(strings.Fields(l), " "); l != "" {
						line(l)
					}
				}
			default:
				if n.text != "" {
					line(n.text)
				}
			}
		}
		return b.String(), nil
	}
}

// dedent strips surrounding blank lines and the common leading
// whitespace of the remaining lines.
func dedent(s string) []string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	common := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if common < 0 || n < common {
			common = n
		}
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out[i] = strings.TrimRight(l[common:], " \t")
	}
	return out
}
