package downloader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Workspaces hands out request-scoped scratch directories under one root.
// Each request gets its own UUID-named directory and only ever removes that
// directory, so concurrent requests cannot touch each other's files.
type Workspaces struct {
	root string
}

// NewWorkspaces creates root if needed.
func NewWorkspaces(root string) (*Workspaces, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	return &Workspaces{root: root}, nil
}

// Root returns the parent directory of all workspaces.
func (w *Workspaces) Root() string {
	return w.root
}

// Create allocates a fresh workspace.
func (w *Workspaces) Create() (*Workspace, error) {
	id := JobID(uuid.NewString())
	dir := filepath.Join(w.root, string(id))
	// Mkdir, not MkdirAll: an existing directory means an id collision.
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{ID: id, Dir: dir}, nil
}

// Workspace is one request's scratch directory.
type Workspace struct {
	ID  JobID
	Dir string

	once sync.Once
	err  error
}

// Remove deletes the workspace and everything in it. Safe to call repeatedly.
func (ws *Workspace) Remove() error {
	ws.once.Do(func() {
		if err := os.RemoveAll(ws.Dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			ws.err = fmt.Errorf("remove workspace %s: %w", ws.ID, err)
		}
	})
	return ws.err
}
