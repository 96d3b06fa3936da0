package tree

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/petervdpas/codespace/internal/content"
)

const (
	branch = "├── "
	last   = "└── "
	pipe   = "│   "
	gap    = "    "
)

// Text draws the project as a box-drawing tree.
func Text(nodes []Node) string {
	var b strings.Builder
	if len(nodes) == 0 {
		b.WriteString("(empty project)\n")
		return b.String()
	}
	var walk func(ns []Node, prefix string)
	walk = func(ns []Node, prefix string) {
		for i, n := range ns {
			conn, next := branch, prefix+pipe
			if i == len(ns)-1 {
				conn, next = last, prefix+gap
			}
			if n.Kind == content.KindFolder {
				fmt.Fprintf(&b, "%s%s%s/\n", prefix, conn, n.Name)
				walk(n.Children, next)
				continue
			}
			fmt.Fprintf(&b, "%s%s%s\n", prefix, conn, n.Name)
		}
	}
	walk(nodes, "")
	return b.String()
}

type ExtCount struct {
	Ext   string
	Count int
}

// Stats counts files per extension, most common first.
func Stats(s *content.Store) (files, folders int, byExt []ExtCount) {
	st := s.State()
	counts := map[string]int{}
	for _, f := range st.Files {
		ext := f.Extension
		if ext == "" {
			ext = "(none)"
		}
		counts[ext]++
	}
	for ext, n := range counts {
		byExt = append(byExt, ExtCount{Ext: ext, Count: n})
	}
	sort.Slice(byExt, func(i, j int) bool {
		if byExt[i].Count != byExt[j].Count {
			return byExt[i].Count > byExt[j].Count
		}
		return byExt[i].Ext < byExt[j].Ext
	})
	return len(st.Files), len(st.Folders), byExt
}

// Summary is the markdown structure document bundled with archive exports.
func Summary(s *content.Store, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Project Structure: %s\n\n", s.ProjectName())
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format(time.RFC1123))
	b.WriteString("## Files\n\n```\n")
	b.WriteString(Text(Build(s)))
	b.WriteString("```\n\n## Statistics\n\n")

	files, folders, byExt := Stats(s)
	fmt.Fprintf(&b, "- **Total files:** %d\n", files)
	fmt.Fprintf(&b, "- **Total folders:** %d\n", folders)
	b.WriteString("- **Files by type:**\n\n")
	for _, e := range byExt {
		fmt.Fprintf(&b, "  - `.%s`: %d file(s)\n", e.Ext, e.Count)
	}
	b.WriteString("\n---\n\n*Generated by CodeSpace*\n")
	return b.String()
}
