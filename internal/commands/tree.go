// Package commands contains the tree renderer and the content concatenator.
package commands

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/temirov/gitfeed/internal/output"
	"github.com/temirov/gitfeed/internal/types"
	"github.com/temirov/gitfeed/internal/utils"
)

const (
	// warningSkipSubdirFormat is used when a subdirectory cannot be listed and is skipped.
	warningSkipSubdirFormat = "[!] Skipping unreadable directory %s: %v"

	// errorAbsolutePathFormat is used when the absolute path cannot be determined.
	errorAbsolutePathFormat = "getting absolute path for %s: %w"

	// errorBuildTreeFormat is used when building the tree fails.
	errorBuildTreeFormat = "building tree for %s: %w"

	// errorReadDirectoryFormat is used when a directory cannot be read.
	errorReadDirectoryFormat = "reading directory %s: %w"
)

// RenderListing renders the complete tree listing of rootDirectoryPath: a caption,
// a root line named displayName instead of the real path, and the nested entries.
func (treeRenderer *TreeRenderer) RenderListing(ctx context.Context, rootDirectoryPath string, displayName string) ([]string, error) {
	entries, buildError := treeRenderer.BuildEntries(ctx, rootDirectoryPath)
	if buildError != nil {
		return nil, buildError
	}
	return output.FormatTreeListing(displayName, entries), nil
}

// RenderLines renders the nested entries of rootDirectoryPath without header lines.
func (treeRenderer *TreeRenderer) RenderLines(ctx context.Context, rootDirectoryPath string) ([]string, error) {
	entries, buildError := treeRenderer.BuildEntries(ctx, rootDirectoryPath)
	if buildError != nil {
		return nil, buildError
	}
	return output.FormatTreeLines(entries, utils.EmptyString), nil
}

// BuildEntries reads rootDirectoryPath recursively into an ordered entry model.
// A cancelled ctx stops the traversal before the next directory is listed.
func (treeRenderer *TreeRenderer) BuildEntries(ctx context.Context, rootDirectoryPath string) ([]*types.DirectoryEntry, error) {
	absoluteRootDirPath, absolutePathError := filepath.Abs(rootDirectoryPath)
	if absolutePathError != nil {
		return nil, fmt.Errorf(errorAbsolutePathFormat, rootDirectoryPath, absolutePathError)
	}
	children, buildError := treeRenderer.buildEntries(ctx, absoluteRootDirPath, true)
	if buildError != nil {
		return nil, fmt.Errorf(errorBuildTreeFormat, rootDirectoryPath, buildError)
	}
	return children, nil
}

// buildEntries lists currentDirectoryPath, orders the children byte-wise by name
// and descends into subdirectories depth first.
func (treeRenderer *TreeRenderer) buildEntries(ctx context.Context, currentDirectoryPath string, isRoot bool) ([]*types.DirectoryEntry, error) {
	if contextError := ctx.Err(); contextError != nil {
		return nil, contextError
	}
	logger := utils.LoggerOrNop(treeRenderer.Logger)

	directoryEntries, readDirectoryError := os.ReadDir(currentDirectoryPath)
	if readDirectoryError != nil {
		readError := fmt.Errorf(errorReadDirectoryFormat, currentDirectoryPath, readDirectoryError)
		if isRoot || !treeRenderer.SkipUnreadable {
			return nil, readError
		}
		logger.Warn(fmt.Sprintf(warningSkipSubdirFormat, currentDirectoryPath, readDirectoryError),
			zap.String("directory", currentDirectoryPath))
		return nil, nil
	}
	sort.Slice(directoryEntries, func(left, right int) bool {
		return directoryEntries[left].Name() < directoryEntries[right].Name()
	})

	nodes := make([]*types.DirectoryEntry, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		if treeRenderer.skipsName(directoryEntry.Name()) {
			continue
		}
		childPath := filepath.Join(currentDirectoryPath, directoryEntry.Name())
		node := &types.DirectoryEntry{
			Name:        directoryEntry.Name(),
			IsDirectory: isDirectoryEntry(childPath, directoryEntry),
		}
		// symbolic links are classified by their target but never descended into
		if node.IsDirectory && directoryEntry.IsDir() {
			childNodes, buildError := treeRenderer.buildEntries(ctx, childPath, false)
			if buildError != nil {
				return nil, buildError
			}
			node.Children = childNodes
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// isDirectoryEntry reports whether the entry is a directory or a link to one.
func isDirectoryEntry(path string, directoryEntry fs.DirEntry) bool {
	if directoryEntry.IsDir() {
		return true
	}
	if directoryEntry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	targetInfo, statError := os.Stat(path)
	return statError == nil && targetInfo.IsDir()
}
