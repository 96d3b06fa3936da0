package export

import (
	"path"

	"github.com/petervdpas/codespace/internal/content"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// ToFS writes the project tree into fs, folders included even when
// empty. Existing files at the same paths are overwritten.
func ToFS(s *content.Store, fs billy.Filesystem) (int, error) {
	files := s.Files()
	if len(files) == 0 {
		return 0, fail(TypeDir, ErrEmptyProject)
	}

	for _, f := range s.Folders() {
		if err := fs.MkdirAll(s.FolderPath(f.ID), 0o755); err != nil {
			return 0, fail(TypeDir, err)
		}
	}

	n := 0
	for _, f := range files {
		p, err := s.FilePath(f.ID)
		if err != nil {
			return n, fail(TypeDir, err)
		}
		if dir := path.Dir(p); dir != "." {
			if err := fs.MkdirAll(dir, 0o755); err != nil {
				return n, fail(TypeDir, err)
			}
		}
		if err := util.WriteFile(fs, p, []byte(f.Content), 0o644); err != nil {
			return n, fail(TypeDir, err)
		}
		n++
	}
	log.Infof("wrote %d file(s) to %s", n, fs.Root())
	return n, nil
}
