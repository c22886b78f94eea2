package repository

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitfeed/internal/utils"
)

// DefaultGitBinary is the git client looked up on PATH when none is configured.
const DefaultGitBinary = "git"

// Cloner materializes a repository at destination.
type Cloner interface {
	Clone(ctx context.Context, location string, destination string) error
}

// CloneError reports a failed clone together with whatever git printed to stderr.
type CloneError struct {
	Location string
	Err      error
	Stderr   string
}

func (cloneError *CloneError) Error() string {
	message := fmt.Sprintf("cloning %s: %v", cloneError.Location, cloneError.Err)
	if cloneError.Stderr != "" {
		message += ": " + cloneError.Stderr
	}
	return message
}

func (cloneError *CloneError) Unwrap() error {
	return cloneError.Err
}

// GitCloner clones with the external git client in a single blocking call.
type GitCloner struct {
	// Binary overrides the git executable; empty means DefaultGitBinary.
	Binary string
	// Depth requests a shallow clone when positive.
	Depth  int
	Logger *zap.Logger
}

// Clone runs git clone quietly into destination, which must be absent or empty.
func (gitCloner *GitCloner) Clone(ctx context.Context, location string, destination string) error {
	logger := utils.LoggerOrNop(gitCloner.Logger)
	arguments := gitCloner.arguments(location, destination)
	binary := gitCloner.Binary
	if strings.TrimSpace(binary) == "" {
		binary = DefaultGitBinary
	}

	// #nosec G204
	cloneCommand := exec.CommandContext(ctx, binary, arguments...)
	var standardError bytes.Buffer
	cloneCommand.Stderr = &standardError
	logger.Debug("Running git", zap.String("binary", binary), zap.Strings("arguments", arguments))
	if runError := cloneCommand.Run(); runError != nil {
		return &CloneError{
			Location: location,
			Err:      runError,
			Stderr:   strings.TrimSpace(standardError.String()),
		}
	}
	return nil
}

func (gitCloner *GitCloner) arguments(location string, destination string) []string {
	arguments := []string{"clone", "--quiet"}
	if gitCloner.Depth > 0 {
		arguments = append(arguments, "--depth", strconv.Itoa(gitCloner.Depth))
	}
	return append(arguments, "--", location, destination)
}
