// Package types defines every cross‑package data structure used by the gitfeed CLI.
package types

import (
	"strings"
)

const (
	// ExtensionSeparator prefixes every normalized extension.
	ExtensionSeparator = "."

	bytesPerMegabyte = 1024 * 1024
)

// DirectoryEntry is one filesystem node of the tree being rendered.
// Children are present only for directories and are ordered by name.
type DirectoryEntry struct {
	Name        string
	IsDirectory bool
	Children    []*DirectoryEntry
}

// FileRecord describes a single file visited by the content walk.
type FileRecord struct {
	RelativePath string
	Extension    string
	SizeBytes    int64
	Content      string
}

// ExclusionPolicy holds the rules used to skip files during concatenation.
type ExclusionPolicy struct {
	Extensions    map[string]struct{}
	MaxFileSizeMB *float64
}

// NewExclusionPolicy normalizes the provided extensions and builds a policy.
// A nil maxFileSizeMB disables the size limit.
func NewExclusionPolicy(extensions []string, maxFileSizeMB *float64) ExclusionPolicy {
	policy := ExclusionPolicy{Extensions: make(map[string]struct{}, len(extensions))}
	for _, normalized := range NormalizeExtensions(extensions) {
		policy.Extensions[normalized] = struct{}{}
	}
	if maxFileSizeMB != nil {
		limit := *maxFileSizeMB
		policy.MaxFileSizeMB = &limit
	}
	return policy
}

// NormalizeExtension lower-cases an extension and guarantees a leading dot.
// It returns an empty string for blank input.
func NormalizeExtension(extension string) string {
	trimmed := strings.ToLower(strings.TrimSpace(extension))
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, ExtensionSeparator) {
		trimmed = ExtensionSeparator + trimmed
	}
	return trimmed
}

// NormalizeExtensions normalizes every extension, dropping blanks and duplicates
// while preserving the original order.
func NormalizeExtensions(extensions []string) []string {
	seen := make(map[string]struct{}, len(extensions))
	result := make([]string, 0, len(extensions))
	for _, extension := range extensions {
		normalized := NormalizeExtension(extension)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}

// Excludes reports whether files with the lower-cased extension must be skipped.
func (policy ExclusionPolicy) Excludes(extension string) bool {
	if len(policy.Extensions) == 0 || extension == "" {
		return false
	}
	_, excluded := policy.Extensions[strings.ToLower(extension)]
	return excluded
}

// HasSizeLimit reports whether a maximum file size is configured.
func (policy ExclusionPolicy) HasSizeLimit() bool {
	return policy.MaxFileSizeMB != nil
}

// MaxSizeBytes returns the configured limit converted to bytes.
func (policy ExclusionPolicy) MaxSizeBytes() float64 {
	if policy.MaxFileSizeMB == nil {
		return 0
	}
	return *policy.MaxFileSizeMB * bytesPerMegabyte
}

// ExceedsSize reports whether a file of sizeBytes is larger than the limit.
// Files exactly at the limit are allowed.
func (policy ExclusionPolicy) ExceedsSize(sizeBytes int64) bool {
	if !policy.HasSizeLimit() {
		return false
	}
	return float64(sizeBytes) > policy.MaxSizeBytes()
}

// ConcatenationResult reports how many files were written and skipped.
type ConcatenationResult struct {
	Written      int
	Skipped      int
	WrittenBytes int64
	Tokens       int
	Model        string
}

// OutputSummary captures aggregate information about rendered files.
type OutputSummary struct {
	TotalFiles   int
	SkippedFiles int
	TotalSize    string
	TotalTokens  int
	Model        string
}
