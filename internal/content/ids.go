package content

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGen produces opaque identifiers for new files and folders.
type IDGen interface {
	NewFileID() string
	NewFolderID() string
}

// UUIDGen is the default generator.
type UUIDGen struct{}

func (UUIDGen) NewFileID() string   { return "file_" + uuid.NewString() }
func (UUIDGen) NewFolderID() string { return "folder_" + uuid.NewString() }

// SeqGen yields file_1, file_2, ... and folder_1, ... in call order.
type SeqGen struct {
	mu      sync.Mutex
	files   int
	folders int
}

func (g *SeqGen) NewFileID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.files++
	return fmt.Sprintf("file_%d", g.files)
}

func (g *SeqGen) NewFolderID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.folders++
	return fmt.Sprintf("folder_%d", g.folders)
}
