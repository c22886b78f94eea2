package repository

import (
	"fmt"
	"os"
)

const workspacePattern = "gitfeed-*"

// Workspace is a uniquely named temporary directory holding one clone.
type Workspace struct {
	Path string
}

// NewWorkspace creates the directory below parent, or the system temporary
// directory when parent is empty.
func NewWorkspace(parent string) (*Workspace, error) {
	workspacePath, createError := os.MkdirTemp(parent, workspacePattern)
	if createError != nil {
		return nil, fmt.Errorf("create temporary directory: %w", createError)
	}
	return &Workspace{Path: workspacePath}, nil
}

// Close removes the workspace and everything in it. Closing twice is harmless.
func (workspace *Workspace) Close() error {
	if workspace == nil || workspace.Path == "" {
		return nil
	}
	if removeError := os.RemoveAll(workspace.Path); removeError != nil {
		return fmt.Errorf("remove temporary directory %s: %w", workspace.Path, removeError)
	}
	return nil
}
