package commands

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/gitfeed/internal/output"
	"github.com/temirov/gitfeed/internal/tokenizer"
	"github.com/temirov/gitfeed/internal/types"
	"github.com/temirov/gitfeed/internal/utils"
)

const (
	warningAccessPathFormat        = "[!] Error accessing path %s: %v"
	warningExcludedExtensionFormat = "[!] Skipping file %s due to excluded extension (%s)."
	warningStatFormat              = "[!] Could not get size of %s: %v"
	warningMaximumSizeFormat       = "[!] Skipping file %s as it exceeds the maximum allowed size (%d bytes)."
	warningReadFormat              = "[!] Error reading file %s: %v"
	warningTokenCountFormat        = "[!] Failed to count tokens for %s: %v"

	errorRootPathFormat   = "failed to get absolute path for %s: %w"
	errorWriteBlockFormat = "write block for %s: %w"
	errorWalkFormat       = "walk %s: %w"
)

// Concatenator appends the text of every non-excluded file below a root to a sink.
type Concatenator struct {
	Logger       *zap.Logger
	TokenCounter tokenizer.Counter
	TokenModel   string
}

// Concatenate walks rootPath and writes one block per included file to sink.
// Directories named .git are pruned at every depth. Files rejected by policy are
// counted as skipped; unreadable or undecodable files still produce a block with
// an error notice in place of their content. The sink is neither retained nor
// closed. Only sink write failures, an unreadable root and a cancelled ctx
// abort the walk.
func (concatenator *Concatenator) Concatenate(ctx context.Context, rootPath string, policy types.ExclusionPolicy, sink io.Writer) (types.ConcatenationResult, error) {
	logger := utils.LoggerOrNop(concatenator.Logger)
	var result types.ConcatenationResult

	absoluteRootPath, absolutePathError := filepath.Abs(rootPath)
	if absolutePathError != nil {
		return result, fmt.Errorf(errorRootPathFormat, rootPath, absolutePathError)
	}
	cleanedRootPath := filepath.Clean(absoluteRootPath)

	directoryWalkError := filepath.WalkDir(cleanedRootPath, func(walkedPath string, directoryEntry fs.DirEntry, accessError error) error {
		if contextError := ctx.Err(); contextError != nil {
			return contextError
		}
		if accessError != nil {
			if walkedPath == cleanedRootPath {
				return accessError
			}
			relativePath := utils.RelativePathOrSelf(walkedPath, cleanedRootPath)
			logger.Warn(fmt.Sprintf(warningAccessPathFormat, relativePath, unwrapPathError(accessError)),
				zap.String("path", relativePath))
			if directoryEntry != nil && directoryEntry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if directoryEntry.IsDir() {
			if walkedPath != cleanedRootPath && directoryEntry.Name() == utils.GitDirectoryName {
				logger.Debug("Pruned version-control directory", zap.String("path", utils.RelativePathOrSelf(walkedPath, cleanedRootPath)))
				return filepath.SkipDir
			}
			return nil
		}
		// links to directories are neither followed nor written
		if isDirectoryEntry(walkedPath, directoryEntry) {
			return nil
		}

		relativePath := utils.RelativePathOrSelf(walkedPath, cleanedRootPath)
		record := types.FileRecord{
			RelativePath: relativePath,
			Extension:    utils.FileExtension(directoryEntry.Name()),
		}
		if !concatenator.admit(logger, walkedPath, policy, &record) {
			result.Skipped++
			return nil
		}

		block := concatenator.renderBlock(logger, walkedPath, &record, &result)
		if _, writeError := io.WriteString(sink, block); writeError != nil {
			return fmt.Errorf(errorWriteBlockFormat, relativePath, writeError)
		}
		result.Written++
		logger.Debug("Added file to contents", zap.String("path", relativePath), zap.Int64("sizeBytes", record.SizeBytes))
		return nil
	})
	if directoryWalkError != nil {
		return result, fmt.Errorf(errorWalkFormat, rootPath, directoryWalkError)
	}
	return result, nil
}

// admit applies the extension check and then the size check, logging the reason
// for every rejection.
func (concatenator *Concatenator) admit(logger *zap.Logger, path string, policy types.ExclusionPolicy, record *types.FileRecord) bool {
	if policy.Excludes(record.Extension) {
		logger.Warn(fmt.Sprintf(warningExcludedExtensionFormat, record.RelativePath, record.Extension),
			zap.String("path", record.RelativePath), zap.String("extension", record.Extension))
		return false
	}
	if !policy.HasSizeLimit() {
		return true
	}
	fileInfo, statError := os.Stat(path)
	if statError != nil {
		logger.Warn(fmt.Sprintf(warningStatFormat, record.RelativePath, unwrapPathError(statError)),
			zap.String("path", record.RelativePath))
		return false
	}
	record.SizeBytes = fileInfo.Size()
	if policy.ExceedsSize(record.SizeBytes) {
		logger.Warn(fmt.Sprintf(warningMaximumSizeFormat, record.RelativePath, record.SizeBytes),
			zap.String("path", record.RelativePath), zap.Int64("sizeBytes", record.SizeBytes))
		return false
	}
	return true
}

// renderBlock reads the file and formats its complete block. A read or decode
// failure yields the error notice block instead.
func (concatenator *Concatenator) renderBlock(logger *zap.Logger, path string, record *types.FileRecord, result *types.ConcatenationResult) string {
	content, readError := readTextFile(path, record.RelativePath)
	if readError != nil {
		logger.Warn(fmt.Sprintf(warningReadFormat, record.RelativePath, readError),
			zap.String("path", record.RelativePath))
		return output.FormatReadErrorBlock(record.RelativePath, readError)
	}
	record.Content = content
	record.SizeBytes = int64(len(content))
	result.WrittenBytes += record.SizeBytes

	if concatenator.TokenCounter != nil {
		countResult, countError := tokenizer.CountText(concatenator.TokenCounter, content)
		if countError != nil {
			logger.Warn(fmt.Sprintf(warningTokenCountFormat, record.RelativePath, countError),
				zap.String("path", record.RelativePath))
		} else if countResult.Counted {
			result.Tokens += countResult.Tokens
			if result.Model == "" && concatenator.TokenModel != "" {
				result.Model = concatenator.TokenModel
			}
		}
	}
	return output.FormatFileBlock(record.RelativePath, record.Content)
}
