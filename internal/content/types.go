package content

import (
	"bytes"
	"encoding/json"
)

type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Ref is a nullable reference to a folder. The zero value is the project
// root and encodes as JSON null.
type Ref string

func (r Ref) MarshalJSON() ([]byte, error) {
	if r == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

func (r *Ref) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*r = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = Ref(s)
	return nil
}

type File struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Content   string `json:"content"`
	FolderID  Ref    `json:"folderId"`
	Order     int    `json:"order"`
	Modified  bool   `json:"modified"`
}

// FullName is name.extension.
func (f File) FullName() string {
	if f.Extension == "" {
		return f.Name
	}
	return f.Name + "." + f.Extension
}

type Folder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID Ref    `json:"parentId"`
	Order    int    `json:"order"`
}

// ChangeKind names a store mutation.
type ChangeKind string

const (
	ChangeCreate  ChangeKind = "create"
	ChangeRename  ChangeKind = "rename"
	ChangeDelete  ChangeKind = "delete"
	ChangeMove    ChangeKind = "move"
	ChangeReorder ChangeKind = "reorder"
	ChangeContent ChangeKind = "content"
	ChangeTabs    ChangeKind = "tabs"
	ChangeRestore ChangeKind = "restore"
	ChangeSaved   ChangeKind = "saved"
)

type Change struct {
	Kind     ChangeKind
	ItemKind Kind
	ID       string
	Revision uint64
}

// Removed lists the ids dropped by a folder delete.
type Removed struct {
	Files   []string `json:"files"`
	Folders []string `json:"folders"`
}

// State is a deep copy of the whole store, used for persistence and the
// history ring.
type State struct {
	ProjectName string
	Files       []File
	Folders     []Folder
	Expanded    []string
	OpenTabs    []string
	ActiveID    string
	Modified    bool

	// Revision is the store revision the copy was taken at. Restore
	// ignores it.
	Revision uint64
}
