// Package feed runs one complete gitfeed pass: clone, tree listing and
// concatenated contents.
package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/gitfeed/internal/commands"
	"github.com/temirov/gitfeed/internal/output"
	"github.com/temirov/gitfeed/internal/repository"
	"github.com/temirov/gitfeed/internal/tokenizer"
	"github.com/temirov/gitfeed/internal/types"
	"github.com/temirov/gitfeed/internal/utils"
)

const (
	infoCloningFormat      = "[i] Cloning repository into temporary directory: %s"
	infoTreeSavedFormat    = "[i] Directory structure saved in: %s"
	infoContentSavedFormat = "[i] Global file content saved in: %s"

	errorRepositoryNameFormat   = "resolve repository name: %w"
	errorOutputDirectoryFormat  = "create output directory %s: %w"
	errorRenderTreeFormat       = "render directory structure: %w"
	errorCreateFileFormat       = "create %s: %w"
	errorWriteTreeFormat        = "write directory structure to %s: %w"
	errorConcatenateFormat      = "write contents to %s: %w"
	errorFlushContentsFormat    = "flush %s: %w"
	errorCloseFileFormat        = "close %s: %w"
	errorInterruptedFormat      = "interrupted: %w"
	warningWorkspaceCleanupText = "[!] Failed to remove temporary directory"
)

// Options describes a single run.
type Options struct {
	RepositoryLocation string
	// OutputRoot is the parent of the per-repository output directory;
	// empty means the current working directory.
	OutputRoot       string
	TreeFileName     string
	ContentsFileName string
	Policy           types.ExclusionPolicy
	SkipUnreadable   bool
	SkipNames        []string
	TokenCounter     tokenizer.Counter
	TokenModel       string
	// WorkspaceParent holds the temporary clone directory; empty means the
	// system temporary directory.
	WorkspaceParent string
}

// Result reports where the artifacts were written and what they contain.
type Result struct {
	RepositoryName   string
	OutputDirectory  string
	TreeFilePath     string
	ContentsFilePath string
	Summary          types.OutputSummary
}

// Service wires the cloner, the tree renderer and the concatenator together.
type Service struct {
	Cloner repository.Cloner
	Logger *zap.Logger
}

// NewService returns a Service with the given collaborators.
func NewService(cloner repository.Cloner, logger *zap.Logger) *Service {
	return &Service{Cloner: cloner, Logger: logger}
}

// Run clones the repository and writes the tree listing and the contents
// document. A clone failure is returned as *repository.CloneError and leaves
// both artifacts unwritten. The temporary clone is removed on every path.
func (service *Service) Run(ctx context.Context, options Options) (result Result, err error) {
	logger := utils.LoggerOrNop(service.Logger)

	repositoryName, nameError := repository.RepositoryName(options.RepositoryLocation)
	if nameError != nil {
		return result, fmt.Errorf(errorRepositoryNameFormat, nameError)
	}
	result.RepositoryName = repositoryName

	outputRoot := options.OutputRoot
	if outputRoot == "" {
		workingDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return result, fmt.Errorf(errorOutputDirectoryFormat, repositoryName, workingDirectoryError)
		}
		outputRoot = workingDirectory
	}
	result.OutputDirectory = filepath.Join(outputRoot, repositoryName)
	if makeDirectoryError := os.MkdirAll(result.OutputDirectory, 0o755); makeDirectoryError != nil {
		return result, fmt.Errorf(errorOutputDirectoryFormat, result.OutputDirectory, makeDirectoryError)
	}
	result.TreeFilePath = filepath.Join(result.OutputDirectory, fileNameOrDefault(options.TreeFileName, utils.DefaultTreeFileName))
	result.ContentsFilePath = filepath.Join(result.OutputDirectory, fileNameOrDefault(options.ContentsFileName, utils.DefaultContentsFileName))

	workspace, workspaceError := repository.NewWorkspace(options.WorkspaceParent)
	if workspaceError != nil {
		return result, workspaceError
	}
	defer func() {
		if closeError := workspace.Close(); closeError != nil {
			logger.Warn(warningWorkspaceCleanupText, zap.String("directory", workspace.Path), zap.Error(closeError))
		}
	}()

	logger.Info(fmt.Sprintf(infoCloningFormat, workspace.Path))
	if cloneError := service.Cloner.Clone(ctx, options.RepositoryLocation, workspace.Path); cloneError != nil {
		return result, cloneError
	}
	if contextError := ctx.Err(); contextError != nil {
		return result, fmt.Errorf(errorInterruptedFormat, contextError)
	}

	if treeError := service.writeTree(ctx, logger, workspace.Path, repositoryName, result.TreeFilePath, options); treeError != nil {
		return result, treeError
	}
	logger.Info(fmt.Sprintf(infoTreeSavedFormat, result.TreeFilePath))
	if contextError := ctx.Err(); contextError != nil {
		return result, fmt.Errorf(errorInterruptedFormat, contextError)
	}

	concatenation, contentsError := service.writeContents(ctx, logger, workspace.Path, result.ContentsFilePath, options)
	if contentsError != nil {
		return result, contentsError
	}
	logger.Info(fmt.Sprintf(infoContentSavedFormat, result.ContentsFilePath))

	result.Summary = types.OutputSummary{
		TotalFiles:   concatenation.Written,
		SkippedFiles: concatenation.Skipped,
		TotalSize:    utils.FormatFileSize(concatenation.WrittenBytes),
		TotalTokens:  concatenation.Tokens,
		Model:        concatenation.Model,
	}
	logger.Info(output.FormatSummaryLine(&result.Summary))
	return result, nil
}

func (service *Service) writeTree(ctx context.Context, logger *zap.Logger, clonePath string, displayName string, treeFilePath string, options Options) (err error) {
	renderer := &commands.TreeRenderer{
		SkipUnreadable: options.SkipUnreadable,
		SkipNames:      options.SkipNames,
		Logger:         logger,
	}
	lines, renderError := renderer.RenderListing(ctx, clonePath, displayName)
	if renderError != nil {
		return fmt.Errorf(errorRenderTreeFormat, renderError)
	}

	treeFile, createError := os.Create(treeFilePath)
	if createError != nil {
		return fmt.Errorf(errorCreateFileFormat, treeFilePath, createError)
	}
	defer closeFile(treeFile, treeFilePath, &err)

	if writeError := output.WriteLines(treeFile, lines); writeError != nil {
		return fmt.Errorf(errorWriteTreeFormat, treeFilePath, writeError)
	}
	return nil
}

func (service *Service) writeContents(ctx context.Context, logger *zap.Logger, clonePath string, contentsFilePath string, options Options) (result types.ConcatenationResult, err error) {
	contentsFile, createError := os.Create(contentsFilePath)
	if createError != nil {
		return result, fmt.Errorf(errorCreateFileFormat, contentsFilePath, createError)
	}
	defer closeFile(contentsFile, contentsFilePath, &err)

	bufferedWriter := bufio.NewWriter(contentsFile)
	concatenator := &commands.Concatenator{
		Logger:       logger,
		TokenCounter: options.TokenCounter,
		TokenModel:   options.TokenModel,
	}
	result, concatenateError := concatenator.Concatenate(ctx, clonePath, options.Policy, bufferedWriter)
	if concatenateError != nil {
		return result, fmt.Errorf(errorConcatenateFormat, contentsFilePath, concatenateError)
	}
	if flushError := bufferedWriter.Flush(); flushError != nil {
		return result, fmt.Errorf(errorFlushContentsFormat, contentsFilePath, flushError)
	}
	return result, nil
}

func closeFile(file *os.File, path string, err *error) {
	if closeError := file.Close(); closeError != nil {
		*err = errors.Join(*err, fmt.Errorf(errorCloseFileFormat, path, closeError))
	}
}

func fileNameOrDefault(name string, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
