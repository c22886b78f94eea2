package commands

import (
	"go.uber.org/zap"
)

// TreeRenderer renders directory trees using configured options.
type TreeRenderer struct {
	// SkipUnreadable makes an unreadable subdirectory render without children
	// instead of aborting the whole render.
	SkipUnreadable bool
	// SkipNames lists entry names left out of the listing entirely.
	SkipNames []string
	Logger    *zap.Logger
}

func (treeRenderer *TreeRenderer) skipsName(name string) bool {
	for _, skippedName := range treeRenderer.SkipNames {
		if skippedName == name {
			return true
		}
	}
	return false
}
