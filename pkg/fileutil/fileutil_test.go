package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSearchPathsOptional(t *testing.T) {
	tmpDir := t.TempDir()

	// Create test file
	file1 := filepath.Join(tmpDir, "file1.txt")
	if err := os.WriteFile(file1, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{
			"finds existing file",
			[]string{file1},
			file1,
		},
		{
			"skips missing files",
			[]string{filepath.Join(tmpDir, "nonexistent.txt"), file1},
			file1,
		},
		{
			"returns empty when nothing exists",
			[]string{filepath.Join(tmpDir, "nonexistent.txt")},
			"",
		},
		{
			"handles empty path list",
			[]string{},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SearchPathsOptional(tt.paths); got != tt.want {
				t.Errorf("SearchPathsOptional() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultConfigPaths(t *testing.T) {
	paths := DefaultConfigPaths("chatgate.yaml")

	if len(paths) != 3 {
		t.Fatalf("DefaultConfigPaths() returned %d paths, want 3", len(paths))
	}

	// Check search order: current dir, config subdir, system path
	if paths[0] != filepath.Join(".", "chatgate.yaml") {
		t.Errorf("DefaultConfigPaths()[0] = %v, want current directory first", paths[0])
	}
	if !strings.Contains(paths[1], "config") {
		t.Errorf("DefaultConfigPaths()[1] = %v, want config subdirectory", paths[1])
	}
	if !strings.HasPrefix(paths[2], "/etc/chatgate") {
		t.Errorf("DefaultConfigPaths()[2] should start with /etc/chatgate, got %v", paths[2])
	}

	for _, path := range paths {
		if !strings.HasSuffix(path, "chatgate.yaml") {
			t.Errorf("Path %v does not end with the requested filename", path)
		}
	}
}
