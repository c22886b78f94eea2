// Package output formats the tree listing and the concatenated contents document.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/temirov/gitfeed/internal/types"
)

const (
	// TreeCaption is the first line of every tree listing.
	TreeCaption = "Directory structure:"

	// SeparatorLine delimits the header of each file block in the contents document.
	SeparatorLine = "================================================"

	fileHeaderFormat      = "File: %s\n"
	readErrorFormat       = "[!] Error reading file: %s\n"
	fileBlockTerminator   = "\n\n"
	directoryNameSuffix   = "/"
	rootIndentation       = "    "
	summaryFilesLabel     = "files"
	summaryFileLabel      = "file"
	summarySkippedFormat  = ", %d skipped"
	summaryTokensFormat   = ", %d tokens"
	summaryModelFormat    = " (model: %s)"
	summaryLineFormat     = "Summary: %d %s, %s%s%s%s"
	treeBranchConnector   = "├── "
	treeLastConnector     = "└── "
	treeBranchPadding     = "│   "
	treeLastPadding       = "    "
	lineTerminator        = "\n"
	errorWriteLineFormat  = "write tree line: %w"
	errorFlushLinesFormat = "flush tree lines: %w"
)

// FormatTreeLines renders the entries as connector-prefixed lines, depth first.
// The last sibling uses the terminal connector and hands blank padding to its
// children; every other sibling hands a vertical bar.
func FormatTreeLines(entries []*types.DirectoryEntry, prefix string) []string {
	var lines []string
	for index, entry := range entries {
		if entry == nil {
			continue
		}
		isLast := index == len(entries)-1
		connector := treeBranchConnector
		childPrefix := prefix + treeBranchPadding
		if isLast {
			connector = treeLastConnector
			childPrefix = prefix + treeLastPadding
		}
		if !entry.IsDirectory {
			lines = append(lines, prefix+connector+entry.Name)
			continue
		}
		lines = append(lines, prefix+connector+entry.Name+directoryNameSuffix)
		lines = append(lines, FormatTreeLines(entry.Children, childPrefix)...)
	}
	return lines
}

// FormatTreeListing renders a complete listing: the caption, a root line carrying
// displayName, and the indented entries beneath it.
func FormatTreeListing(displayName string, entries []*types.DirectoryEntry) []string {
	lines := []string{
		TreeCaption,
		treeLastConnector + displayName + directoryNameSuffix,
	}
	return append(lines, FormatTreeLines(entries, rootIndentation)...)
}

// WriteLines writes every line followed by a newline.
func WriteLines(writer io.Writer, lines []string) error {
	bufferedWriter := bufio.NewWriter(writer)
	for _, line := range lines {
		if _, err := bufferedWriter.WriteString(line + lineTerminator); err != nil {
			return fmt.Errorf(errorWriteLineFormat, err)
		}
	}
	if err := bufferedWriter.Flush(); err != nil {
		return fmt.Errorf(errorFlushLinesFormat, err)
	}
	return nil
}

// FormatFileBlock renders one file of the contents document.
func FormatFileBlock(relativePath string, content string) string {
	var builder strings.Builder
	builder.Grow(len(SeparatorLine)*2 + len(relativePath) + len(content) + 16)
	writeFileHeader(&builder, relativePath)
	builder.WriteString(content)
	builder.WriteString(fileBlockTerminator)
	return builder.String()
}

// FormatReadErrorBlock renders a file block whose content could not be read or decoded.
func FormatReadErrorBlock(relativePath string, readError error) string {
	var builder strings.Builder
	writeFileHeader(&builder, relativePath)
	builder.WriteString(ReadErrorNotice(readError))
	builder.WriteString(fileBlockTerminator)
	return builder.String()
}

// ReadErrorNotice is the placeholder line substituted for unreadable content.
func ReadErrorNotice(readError error) string {
	message := "unknown error"
	if readError != nil {
		message = readError.Error()
	}
	return fmt.Sprintf(readErrorFormat, message)
}

func writeFileHeader(builder *strings.Builder, relativePath string) {
	builder.WriteString(SeparatorLine + lineTerminator)
	fmt.Fprintf(builder, fileHeaderFormat, relativePath)
	builder.WriteString(SeparatorLine + lineTerminator)
}

// FormatSummaryLine formats an OutputSummary into a single human-readable line.
func FormatSummaryLine(summary *types.OutputSummary) string {
	if summary == nil {
		summary = &types.OutputSummary{}
	}
	label := summaryFilesLabel
	if summary.TotalFiles == 1 {
		label = summaryFileLabel
	}
	skipped := ""
	if summary.SkippedFiles > 0 {
		skipped = fmt.Sprintf(summarySkippedFormat, summary.SkippedFiles)
	}
	tokens := ""
	if summary.TotalTokens > 0 {
		tokens = fmt.Sprintf(summaryTokensFormat, summary.TotalTokens)
	}
	model := ""
	if summary.Model != "" {
		model = fmt.Sprintf(summaryModelFormat, summary.Model)
	}
	return fmt.Sprintf(summaryLineFormat, summary.TotalFiles, label, summary.TotalSize, skipped, tokens, model)
}
