package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/petervdpas/codespace/internal/content"
)

const (
	typeImport Type = "import"

	// MaxEntrySize bounds one archive entry.
	MaxEntrySize = 10 << 20
	// MaxArchiveSize bounds a whole uploaded archive.
	MaxArchiveSize = 50 << 20
)

// ImportResult summarizes what an import did.
type ImportResult struct {
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Folders  int      `json:"folders"`
	Skipped  []string `json:"skipped,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Import reads a zip archive into s. Entry paths become folders; a file
// that already exists at a path has its content replaced. Entries with
// ".." are skipped, oversized entries abort the import before anything
// is written.
func Import(data []byte, s *content.Store) (ImportResult, error) {
	var res ImportResult
	if len(data) > MaxArchiveSize {
		return res, fail(typeImport, fmt.Errorf("archive exceeds %dMB limit", MaxArchiveSize>>20))
	}
	entries, skipped, err := extractZip(data)
	if err != nil {
		return res, fail(typeImport, err)
	}
	res.Skipped = skipped

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == "STRUCTURE.md" || name == "STRUCTURE.txt" {
			continue
		}
		dir, base := path.Split(name)
		dot := strings.LastIndex(base, ".")
		if dot <= 0 || dot == len(base)-1 {
			res.Skipped = append(res.Skipped, name)
			continue
		}
		stem, ext := base[:dot], base[dot+1:]

		folderID, made, err := ensureFolders(s, strings.TrimSuffix(dir, "/"))
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		res.Folders += made

		body := string(entries[name])
		if existing := findFile(s, folderID, stem, ext); existing != "" {
			if err := s.SetContent(existing, body); err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", name, err))
				continue
			}
			res.Updated++
			continue
		}
		if _, err := s.CreateFileWithContent(stem, ext, folderID, body); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		res.Created++
	}
	log.Infof("import: %d created, %d updated, %d folder(s), %d skipped", res.Created, res.Updated, res.Folders, len(res.Skipped))
	return res, nil
}

func ensureFolders(s *content.Store, dir string) (string, int, error) {
	if dir == "" {
		return "", 0, nil
	}
	parent, made := "", 0
	for _, part := range strings.Split(dir, "/") {
		if part == "" {
			continue
		}
		id := ""
		for _, f := range s.FoldersInFolder(parent) {
			if f.Name == part {
				id = f.ID
				break
			}
		}
		if id == "" {
			f, err := s.CreateFolder(part, parent)
			if err != nil {
				return "", made, err
			}
			id = f.ID
			made++
		}
		parent = id
	}
	return parent, made, nil
}

func findFile(s *content.Store, folderID, name, ext string) string {
	for _, f := range s.FilesInFolder(folderID) {
		if f.Name == name && f.Extension == ext {
			return f.ID
		}
	}
	return ""
}

// extractZip reads a zip into a map of relative path to content. A
// wrapper directory shared by every entry is stripped.
func extractZip(data []byte) (map[string][]byte, []string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("zip: %w", err)
	}

	prefix, first := "", true
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		top, _, nested := strings.Cut(f.Name, "/")
		if !nested {
			prefix = ""
			break
		}
		if first {
			prefix, first = top+"/", false
		} else if !strings.HasPrefix(f.Name, prefix) {
			prefix = ""
			break
		}
	}

	files := make(map[string][]byte)
	var skipped []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := strings.TrimPrefix(f.Name, prefix)
		if name == "" {
			continue
		}
		if strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
			skipped = append(skipped, f.Name)
			continue
		}
		if f.UncompressedSize64 > MaxEntrySize {
			return nil, nil, fmt.Errorf("file %q exceeds %dMB limit", name, MaxEntrySize>>20)
		}

		rc, err := f.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open %q: %w", name, err)
		}
		body, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
		rc.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read %q: %w", name, err)
		}
		if len(body) > MaxEntrySize {
			return nil, nil, fmt.Errorf("file %q exceeds %dMB limit", name, MaxEntrySize>>20)
		}
		files[name] = body
	}
	return files, skipped, nil
}
