// Package tree projects a content.Store into the sorted display hierarchy
// shown in the file explorer and dispatches explorer gestures back into
// store operations.
package tree

import (
	"github.com/petervdpas/codespace/internal/content"
)

type Node struct {
	Kind     content.Kind `json:"kind"`
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Ext      string       `json:"ext,omitempty"`
	Language string       `json:"language,omitempty"`
	Depth    int          `json:"depth"`
	Expanded bool         `json:"expanded,omitempty"`
	Active   bool         `json:"active,omitempty"`
	Open     bool         `json:"open,omitempty"`
	Modified bool         `json:"modified,omitempty"`
	Children []Node       `json:"children,omitempty"`
}

// Build returns the root level of the tree: folders before files, each group
// sorted by (order, name). Collapsed folders still carry their children so
// the client can expand without a round trip.
func Build(s *content.Store) []Node {
	st := s.State()
	expanded := map[string]bool{}
	for _, id := range st.Expanded {
		expanded[id] = true
	}
	open := map[string]bool{}
	for _, id := range st.OpenTabs {
		open[id] = true
	}

	folders := map[content.Ref][]content.Folder{}
	for _, f := range st.Folders {
		folders[f.ParentID] = append(folders[f.ParentID], f)
	}
	files := map[content.Ref][]content.File{}
	for _, f := range st.Files {
		files[f.FolderID] = append(files[f.FolderID], f)
	}

	var walk func(parent content.Ref, depth int, seen map[string]bool) []Node
	walk = func(parent content.Ref, depth int, seen map[string]bool) []Node {
		subs := folders[parent]
		content.SortFolders(subs)
		leaves := files[parent]
		content.SortFiles(leaves)

		out := make([]Node, 0, len(subs)+len(leaves))
		for _, f := range subs {
			if seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			out = append(out, Node{
				Kind:     content.KindFolder,
				ID:       f.ID,
				Name:     f.Name,
				Depth:    depth,
				Expanded: expanded[f.ID],
				Children: walk(content.Ref(f.ID), depth+1, seen),
			})
		}
		for _, f := range leaves {
			out = append(out, Node{
				Kind:     content.KindFile,
				ID:       f.ID,
				Name:     f.FullName(),
				Ext:      f.Extension,
				Language: content.LanguageFor(f.Extension),
				Depth:    depth,
				Active:   f.ID == st.ActiveID,
				Open:     open[f.ID],
				Modified: f.Modified,
			})
		}
		return out
	}
	return walk("", 0, map[string]bool{})
}

// Flatten lists the nodes a user would see: children of collapsed
// folders are omitted.
func Flatten(nodes []Node) []Node {
	var out []Node
	var walk func([]Node)
	walk = func(ns []Node) {
		for _, n := range ns {
			kids := n.Children
			n.Children = nil
			out = append(out, n)
			if n.Kind == content.KindFolder && n.Expanded {
				walk(kids)
			}
		}
	}
	walk(nodes)
	return out
}

// Result is what the explorer re-renders after a gesture.
type Result struct {
	Notice content.Notice `json:"notice"`
	Nodes  []Node         `json:"nodes"`
	OK     bool           `json:"ok"`
}

func result(s *content.Store, err error, success content.Notice) Result {
	if err != nil {
		return Result{Notice: content.NoticeFor(err), Nodes: Build(s)}
	}
	return Result{OK: true, Notice: success, Nodes: Build(s)}
}

// Drop handles dropping an item onto a folder ("" = root). Cyclic and
// duplicate moves come back as error notices with the unchanged tree.
func Drop(s *content.Store, kind content.Kind, id, targetFolderID string) Result {
	target := "root"
	if targetFolderID != "" {
		if f, err := s.Folder(targetFolderID); err == nil {
			target = f.Name
		}
	}
	switch kind {
	case content.KindFile:
		f, err := s.MoveFile(id, targetFolderID)
		return result(s, err, content.Notice{Level: content.LevelSuccess, Title: "Moved", Message: f.FullName() + " moved to " + target})
	case content.KindFolder:
		f, err := s.MoveFolder(id, targetFolderID)
		return result(s, err, content.Notice{Level: content.LevelSuccess, Title: "Moved", Message: `Folder "` + f.Name + `" moved to ` + target})
	default:
		return result(s, &content.InvalidNameError{Name: string(kind), Reason: "unknown item kind"}, content.Notice{})
	}
}

// CommitRename applies an inline rename. On failure the full tree is
// rebuilt from the unchanged store so no stale input survives.
func CommitRename(s *content.Store, kind content.Kind, id, name string) Result {
	switch kind {
	case content.KindFile:
		f, err := s.RenameFile(id, name)
		return result(s, err, content.Notice{Level: content.LevelSuccess, Title: "Renamed", Message: "File renamed to " + f.FullName()})
	case content.KindFolder:
		f, err := s.RenameFolder(id, name)
		return result(s, err, content.Notice{Level: content.LevelSuccess, Title: "Renamed", Message: "Folder renamed to " + f.Name})
	default:
		return result(s, &content.InvalidNameError{Name: string(kind), Reason: "unknown item kind"}, content.Notice{})
	}
}

// Toggle flips a folder's expand state.
func Toggle(s *content.Store, folderID string) Result {
	_, err := s.ToggleExpanded(folderID)
	return result(s, err, content.Notice{})
}
