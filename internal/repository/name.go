// Package repository resolves repository names, clones repositories with the
// git client and manages the temporary directories the clones live in.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

const gitSuffix = ".git"

// ErrEmptyRepositoryName is returned when no usable name can be derived from a location.
var ErrEmptyRepositoryName = errors.New("repository name is empty")

// RepositoryName derives the short repository name from a location such as
// https://github.com/user/repo.git, git@host:user/repo.git or a local path.
func RepositoryName(location string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(location), `/\`)
	segment := trimmed
	if separatorIndex := strings.LastIndexAny(segment, `/\`); separatorIndex >= 0 {
		segment = segment[separatorIndex+1:]
	}
	// scp-style locations without a path separator, e.g. host:repo.git
	if colonIndex := strings.LastIndex(segment, ":"); colonIndex >= 0 {
		segment = segment[colonIndex+1:]
	}
	segment = strings.TrimSuffix(segment, gitSuffix)
	switch segment {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q", ErrEmptyRepositoryName, location)
	}
	return segment, nil
}
