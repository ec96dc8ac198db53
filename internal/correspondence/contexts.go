package correspondence

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// Guidance is the text assembled for one contact before drafting.
type Guidance struct {
	Status   string // contexts/<type>s/status/<status>.txt
	TypeInfo string // contexts/<type>s/info.txt
	General  string // contexts/general_context.txt
	Enhancer string // contexts/enhancer_context.txt
}

// ContextStore reads guidance files from a directory tree. Missing files
// read as empty guidance.
type ContextStore struct {
	fsys fs.FS
}

// NewContextStore reads from the directory dir.
func NewContextStore(dir string) *ContextStore {
	return &ContextStore{fsys: os.DirFS(dir)}
}

// NewContextStoreFS reads from fsys.
func NewContextStoreFS(fsys fs.FS) *ContextStore {
	return &ContextStore{fsys: fsys}
}

// Assemble loads the guidance for a contact type and status.
func (s *ContextStore) Assemble(t ContactType, status Status) (Guidance, error) {
	var g Guidance
	var err error
	dir := t.contextDir()

	if g.Status, err = s.read(path.Join(dir, "status", string(status)+".txt")); err != nil {
		return g, err
	}
	if g.TypeInfo, err = s.read(path.Join(dir, "info.txt")); err != nil {
		return g, err
	}
	if g.General, err = s.read("general_context.txt"); err != nil {
		return g, err
	}
	if g.Enhancer, err = s.read("enhancer_context.txt"); err != nil {
		return g, err
	}
	return g, nil
}

func (s *ContextStore) read(name string) (string, error) {
	data, err := fs.ReadFile(s.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read context %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}
