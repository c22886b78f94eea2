package commands_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/gitfeed/internal/commands"
	"github.com/temirov/gitfeed/internal/types"
)

const (
	separator        = "================================================"
	textFileName     = "a.txt"
	logFileName      = "b.log"
	nestedDirectory  = "sub"
	nestedFileName   = "c.txt"
	textFileContent  = "alpha\n"
	logFileContent   = "beta\n"
	nestedContent    = "gamma"
	tenByteContent   = "0123456789"
	invalidUTF8Bytes = "\xff\xfe\xfd"
	displayName      = "repo"
)

type stubCounter struct{}

func (stubCounter) CountString(input string) (int, error) { return len(strings.Fields(input)), nil }

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if makeDirError := os.MkdirAll(filepath.Dir(path), 0o755); makeDirError != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), makeDirError)
	}
	if writeError := os.WriteFile(path, []byte(content), 0o644); writeError != nil {
		t.Fatalf("write %s: %v", path, writeError)
	}
}

// createSampleRepository lays out a.txt, b.log and sub/c.txt plus git metadata.
func createSampleRepository(t *testing.T) string {
	t.Helper()
	rootDirectory := t.TempDir()
	writeFile(t, filepath.Join(rootDirectory, textFileName), textFileContent)
	writeFile(t, filepath.Join(rootDirectory, logFileName), logFileContent)
	writeFile(t, filepath.Join(rootDirectory, nestedDirectory, nestedFileName), nestedContent)
	writeFile(t, filepath.Join(rootDirectory, ".git", "HEAD"), "ref: refs/heads/main\n")
	writeFile(t, filepath.Join(rootDirectory, nestedDirectory, ".git", "config"), "[core]\n")
	return rootDirectory
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func blockHeaders(contents string) []string {
	var headers []string
	for _, line := range strings.Split(contents, "\n") {
		if strings.HasPrefix(line, "File: ") {
			headers = append(headers, strings.TrimPrefix(line, "File: "))
		}
	}
	return headers
}

func maxSize(megabytes float64) *float64 {
	return &megabytes
}

// TestConcatenateWritesEveryFile verifies one block per file with forward-slash headers.
func TestConcatenateWritesEveryFile(t *testing.T) {
	rootDirectory := createSampleRepository(t)
	var sink bytes.Buffer
	concatenator := &commands.Concatenator{}

	result, concatenateError := concatenator.Concatenate(context.Background(), rootDirectory, types.NewExclusionPolicy(nil, nil), &sink)
	if concatenateError != nil {
		t.Fatalf("Concatenate error: %v", concatenateError)
	}
	if result.Written != 3 || result.Skipped != 0 {
		t.Fatalf("expected 3 written and 0 skipped, got %+v", result)
	}
	expectedHeaders := []string{textFileName, logFileName, nestedDirectory + "/" + nestedFileName}
	headers := blockHeaders(sink.String())
	if strings.Join(headers, ",") != strings.Join(expectedHeaders, ",") {
		t.Fatalf("expected headers %v, got %v", expectedHeaders, headers)
	}
	expectedBlock := separator + "\nFile: " + textFileName + "\n" + separator + "\n" + textFileContent + "\n\n"
	if !strings.HasPrefix(sink.String(), expectedBlock) {
		t.Fatalf("unexpected first block: %q", sink.String())
	}
	if strings.Contains(sink.String(), "refs/heads/main") || strings.Contains(sink.String(), "[core]") {
		t.Fatalf("git metadata leaked into contents: %q", sink.String())
	}
	if result.WrittenBytes != int64(len(textFileContent)+len(logFileContent)+len(nestedContent)) {
		t.Fatalf("unexpected written bytes: %d", result.WrittenBytes)
	}
}

func TestConcatenateExcludesExtensions(t *testing.T) {
	rootDirectory := createSampleRepository(t)
	logger, logs := newObservedLogger()
	var sink bytes.Buffer
	concatenator := &commands.Concatenator{Logger: logger}

	result, err := concatenator.Concatenate(context.Background(), rootDirectory, types.NewExclusionPolicy([]string{"LOG"}, nil), &sink)
	if err != nil {
		t.Fatalf("Concatenate error: %v", err)
	}
	if result.Written != 2 || result.Skipped != 1 {
		t.Fatalf("expected 2 written and 1 skipped, got %+v", result)
	}
	if strings.Contains(sink.String(), "File: "+logFileName) {
		t.Fatalf("excluded file present in contents")
	}
	skipLogs := logs.FilterMessage("[!] Skipping file b.log due to excluded extension (.log).").All()
	if len(skipLogs) != 1 {
		t.Fatalf("expected one skip notice, got %v", logs.All())
	}
}

func TestConcatenateSizeLimit(t *testing.T) {
	testCases := []struct {
		name          string
		limitMB       float64
		expectWritten int
		expectSkipped int
	}{
		{name: "below file size", limitMB: 2.0 / (1024 * 1024), expectWritten: 0, expectSkipped: 1},
		{name: "exactly file size", limitMB: 10.0 / (1024 * 1024), expectWritten: 1, expectSkipped: 0},
		{name: "above file size", limitMB: 1, expectWritten: 1, expectSkipped: 0},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			rootDirectory := t.TempDir()
			writeFile(t, filepath.Join(rootDirectory, "ten.txt"), tenByteContent)
			logger, logs := newObservedLogger()
			var sink bytes.Buffer
			concatenator := &commands.Concatenator{Logger: logger}

			result, err := concatenator.Concatenate(context.Background(), rootDirectory, types.NewExclusionPolicy(nil, maxSize(testCase.limitMB)), &sink)
			if err != nil {
				t.Fatalf("Concatenate error: %v", err)
			}
			if result.Written != testCase.expectWritten || result.Skipped != testCase.expectSkipped {
				t.Fatalf("unexpected result %+v", result)
			}
			skipped := logs.FilterMessageSnippet("exceeds the maximum allowed size (10 bytes)").Len()
			if skipped != testCase.expectSkipped {
				t.Fatalf("expected %d size notices, got %d", testCase.expectSkipped, skipped)
			}
		})
	}
}

func TestConcatenateReplacesUndecodableContent(t *testing.T) {
	rootDirectory := t.TempDir()
	writeFile(t, filepath.Join(rootDirectory, "a_binary.dat"), invalidUTF8Bytes)
	writeFile(t, filepath.Join(rootDirectory, "z_text.txt"), "after\n")
	logger, logs := newObservedLogger()
	var sink bytes.Buffer
	concatenator := &commands.Concatenator{Logger: logger}

	result, err := concatenator.Concatenate(context.Background(), rootDirectory, types.NewExclusionPolicy(nil, nil), &sink)
	if err != nil {
		t.Fatalf("Concatenate error: %v", err)
	}
	if result.Written != 2 {
		t.Fatalf("expected both files written, got %+v", result)
	}
	contents := sink.String()
	binaryBlockPrefix := separator + "\nFile: a_binary.dat\n" + separator + "\n[!] Error reading file: "
	if !strings.HasPrefix(contents, binaryBlockPrefix) {
		t.Fatalf("expected error placeholder block, got %q", contents)
	}
	if strings.Contains(contents, invalidUTF8Bytes) {
		t.Fatalf("partial undecodable content written")
	}
	if !strings.Contains(contents, "File: z_text.txt\n"+separator+"\nafter\n\n\n") {
		t.Fatalf("walk did not continue after decode failure: %q", contents)
	}
	if logs.FilterMessageSnippet("[!] Error reading file a_binary.dat").Len() != 1 {
		t.Fatalf("expected read failure notice, got %v", logs.All())
	}
}

func TestConcatenateCountsTokens(t *testing.T) {
	rootDirectory := createSampleRepository(t)
	var sink bytes.Buffer
	concatenator := &commands.Concatenator{TokenCounter: stubCounter{}, TokenModel: "stub-model"}

	result, err := concatenator.Concatenate(context.Background(), rootDirectory, types.NewExclusionPolicy(nil, nil), &sink)
	if err != nil {
		t.Fatalf("Concatenate error: %v", err)
	}
	if result.Tokens != 3 {
		t.Fatalf("expected 3 tokens, got %d", result.Tokens)
	}
	if result.Model != "stub-model" {
		t.Fatalf("expected model propagated, got %q", result.Model)
	}
}

func TestConcatenateFailsOnSinkError(t *testing.T) {
	rootDirectory := createSampleRepository(t)
	concatenator := &commands.Concatenator{}
	if _, err := concatenator.Concatenate(context.Background(), rootDirectory, types.NewExclusionPolicy(nil, nil), failingWriter{}); err == nil {
		t.Fatalf("expected sink failure to abort the walk")
	}
}

func TestConcatenateMissingRoot(t *testing.T) {
	concatenator := &commands.Concatenator{}
	var sink bytes.Buffer
	if _, err := concatenator.Concatenate(context.Background(), filepath.Join(t.TempDir(), "missing"), types.NewExclusionPolicy(nil, nil), &sink); err == nil {
		t.Fatalf("expected error for missing root")
	}
}

// TestRenderListing verifies header lines, connectors and ordering.
func TestRenderListing(t *testing.T) {
	rootDirectory := t.TempDir()
	writeFile(t, filepath.Join(rootDirectory, "b.txt"), "")
	writeFile(t, filepath.Join(rootDirectory, "A.md"), "")
	writeFile(t, filepath.Join(rootDirectory, "dir", "inner.go"), "")
	writeFile(t, filepath.Join(rootDirectory, "dir", "nested", "deep.txt"), "")
	if makeDirError := os.MkdirAll(filepath.Join(rootDirectory, "empty"), 0o755); makeDirError != nil {
		t.Fatalf("mkdir: %v", makeDirError)
	}

	renderer := &commands.TreeRenderer{}
	lines, renderError := renderer.RenderListing(context.Background(), rootDirectory, displayName)
	if renderError != nil {
		t.Fatalf("RenderListing error: %v", renderError)
	}
	expected := []string{
		"Directory structure:",
		"└── repo/",
		"    ├── A.md",
		"    ├── b.txt",
		"    ├── dir/",
		"    │   ├── inner.go",
		"    │   └── nested/",
		"    │       └── deep.txt",
		"    └── empty/",
	}
	if strings.Join(lines, "\n") != strings.Join(expected, "\n") {
		t.Fatalf("unexpected listing:\n%s", strings.Join(lines, "\n"))
	}
}

func TestRenderLineCountMatchesEntries(t *testing.T) {
	rootDirectory := createSampleRepository(t)
	entryCount := 0
	walkError := filepath.Walk(rootDirectory, func(path string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path != rootDirectory {
			entryCount++
		}
		return nil
	})
	if walkError != nil {
		t.Fatalf("walk: %v", walkError)
	}

	renderer := &commands.TreeRenderer{}
	lines, err := renderer.RenderListing(context.Background(), rootDirectory, displayName)
	if err != nil {
		t.Fatalf("RenderListing error: %v", err)
	}
	if len(lines) != entryCount+2 {
		t.Fatalf("expected %d lines, got %d", entryCount+2, len(lines))
	}
}

func TestRenderLinesConnectors(t *testing.T) {
	rootDirectory := t.TempDir()
	for _, name := range []string{"one", "two", "three"} {
		writeFile(t, filepath.Join(rootDirectory, name), "")
	}
	renderer := &commands.TreeRenderer{}
	lines, err := renderer.RenderLines(context.Background(), rootDirectory)
	if err != nil {
		t.Fatalf("RenderLines error: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", lines)
	}
	for index, line := range lines {
		isLast := index == len(lines)-1
		if isLast != strings.HasPrefix(line, "└── ") {
			t.Fatalf("line %d has wrong connector: %q", index, line)
		}
		if !isLast && !strings.HasPrefix(line, "├── ") {
			t.Fatalf("line %d has wrong connector: %q", index, line)
		}
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	rootDirectory := createSampleRepository(t)
	renderer := &commands.TreeRenderer{}
	first, err := renderer.RenderListing(context.Background(), rootDirectory, displayName)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := renderer.RenderListing(context.Background(), rootDirectory, displayName)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if strings.Join(first, "\n") != strings.Join(second, "\n") {
		t.Fatalf("renders differ")
	}
}

func TestRenderSkipNames(t *testing.T) {
	rootDirectory := createSampleRepository(t)
	renderer := &commands.TreeRenderer{SkipNames: []string{".git"}}
	lines, err := renderer.RenderLines(context.Background(), rootDirectory)
	if err != nil {
		t.Fatalf("RenderLines error: %v", err)
	}
	for _, line := range lines {
		if strings.Contains(line, ".git") {
			t.Fatalf("skipped name rendered: %q", line)
		}
	}
}

func TestRenderUnreadableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	rootDirectory := t.TempDir()
	lockedDirectory := filepath.Join(rootDirectory, "locked")
	writeFile(t, filepath.Join(lockedDirectory, "secret.txt"), "x")
	writeFile(t, filepath.Join(rootDirectory, "open.txt"), "x")
	if err := os.Chmod(lockedDirectory, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(lockedDirectory, 0o755) })

	aborting := &commands.TreeRenderer{}
	if _, err := aborting.RenderLines(context.Background(), rootDirectory); err == nil {
		t.Fatalf("expected render to abort on unreadable directory")
	}

	logger, logs := newObservedLogger()
	skipping := &commands.TreeRenderer{SkipUnreadable: true, Logger: logger}
	lines, err := skipping.RenderLines(context.Background(), rootDirectory)
	if err != nil {
		t.Fatalf("expected skip mode to continue: %v", err)
	}
	expected := []string{"├── locked/", "└── open.txt"}
	if strings.Join(lines, "\n") != strings.Join(expected, "\n") {
		t.Fatalf("unexpected lines %q", lines)
	}
	if logs.FilterMessageSnippet("Skipping unreadable directory").Len() != 1 {
		t.Fatalf("expected skip warning, got %v", logs.All())
	}
}

func TestSymbolicLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symbolic links require privileges on windows")
	}
	rootDirectory := t.TempDir()
	writeFile(t, filepath.Join(rootDirectory, "target.txt"), "target\n")
	writeFile(t, filepath.Join(rootDirectory, "realdir", "inner.txt"), "inner\n")
	for linkName, linkTarget := range map[string]string{"linkdir": "realdir", "linkfile": "target.txt", "broken": "missing"} {
		if err := os.Symlink(linkTarget, filepath.Join(rootDirectory, linkName)); err != nil {
			t.Fatalf("symlink %s: %v", linkName, err)
		}
	}

	renderer := &commands.TreeRenderer{}
	lines, err := renderer.RenderLines(context.Background(), rootDirectory)
	if err != nil {
		t.Fatalf("RenderLines error: %v", err)
	}
	expectedLines := []string{
		"├── broken",
		"├── linkdir/",
		"├── linkfile",
		"├── realdir/",
		"│   └── inner.txt",
		"└── target.txt",
	}
	if strings.Join(lines, "\n") != strings.Join(expectedLines, "\n") {
		t.Fatalf("unexpected lines:\n%s", strings.Join(lines, "\n"))
	}

	testCases := []struct {
		name            string
		limitMB         *float64
		expectedHeaders []string
		expectedSkipped int
		expectedNotice  string
	}{
		{
			name:            "without size limit",
			expectedHeaders: []string{"broken", "linkfile", "realdir/inner.txt", "target.txt"},
			expectedNotice:  "[!] Error reading file broken",
		},
		{
			name:            "with size limit",
			limitMB:         maxSize(1),
			expectedHeaders: []string{"linkfile", "realdir/inner.txt", "target.txt"},
			expectedSkipped: 1,
			expectedNotice:  "[!] Could not get size of broken",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			logger, logs := newObservedLogger()
			var sink bytes.Buffer
			concatenator := &commands.Concatenator{Logger: logger}
			result, err := concatenator.Concatenate(context.Background(), rootDirectory, types.NewExclusionPolicy(nil, testCase.limitMB), &sink)
			if err != nil {
				t.Fatalf("Concatenate error: %v", err)
			}
			headers := blockHeaders(sink.String())
			if strings.Join(headers, ",") != strings.Join(testCase.expectedHeaders, ",") {
				t.Fatalf("expected headers %v, got %v", testCase.expectedHeaders, headers)
			}
			if result.Written != len(testCase.expectedHeaders) || result.Skipped != testCase.expectedSkipped {
				t.Fatalf("unexpected result %+v", result)
			}
			if !strings.Contains(sink.String(), "File: linkfile\n"+separator+"\ntarget\n\n\n") {
				t.Fatalf("link to file was not read through: %q", sink.String())
			}
			if logs.FilterMessageSnippet(testCase.expectedNotice).Len() != 1 {
				t.Fatalf("expected notice %q, got %v", testCase.expectedNotice, logs.All())
			}
		})
	}
}

func TestCancelledContextStopsWork(t *testing.T) {
	rootDirectory := createSampleRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sink bytes.Buffer
	concatenator := &commands.Concatenator{}
	result, err := concatenator.Concatenate(ctx, rootDirectory, types.NewExclusionPolicy(nil, nil), &sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled from Concatenate, got %v", err)
	}
	if result.Written != 0 || sink.Len() != 0 {
		t.Fatalf("expected nothing written, got %+v and %q", result, sink.String())
	}

	renderer := &commands.TreeRenderer{}
	if _, err := renderer.RenderListing(ctx, rootDirectory, displayName); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled from RenderListing, got %v", err)
	}
}
