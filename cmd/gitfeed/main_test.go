package main

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestRunFailsWithoutWorkingDirectory(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("removing the current directory is only reliable on linux")
	}
	removedDirectory := filepath.Join(t.TempDir(), "removed")
	if err := os.Mkdir(removedDirectory, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	changeDirectory(t, removedDirectory)
	if err := os.Remove(removedDirectory); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if exitCode := run(); exitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", exitCode)
	}
}

// changeDirectory mirrors testing.T.Chdir for toolchains that predate it.
func changeDirectory(t *testing.T, directory string) {
	t.Helper()
	previous, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(directory); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(previous); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
