package walk

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func symlinkTree(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := createTree(t, "real/data.txt", "file.txt")
	links := map[string]string{
		"link-dir":    filepath.Join(root, "real"),
		"link-file":   filepath.Join(root, "file.txt"),
		"link-broken": filepath.Join(root, "missing"),
	}
	for name, target := range links {
		if err := os.Symlink(target, filepath.Join(root, name)); err != nil {
			t.Fatalf("Failed to create symlink: %v", err)
		}
	}
	return root
}

func TestSymlinkReport(t *testing.T) {
	root := symlinkTree(t)

	got := relEntries(t, root, Options{Symlinks: SymlinkReport})
	expected := []string{"file.txt", "link-broken", "link-dir/", "link-file", "real/", "real/data.txt"}

	if !reflect.DeepEqual(sorted(got), expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestSymlinkIgnore(t *testing.T) {
	root := symlinkTree(t)

	got := relEntries(t, root, Options{Symlinks: SymlinkIgnore})
	expected := []string{"file.txt", "real/", "real/data.txt"}

	if !reflect.DeepEqual(sorted(got), expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestSymlinkFollowSkipsCycles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := createTree(t, "a/inner.txt")
	if err := os.Symlink(root, filepath.Join(root, "a", "loop")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "z-alias")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	got := relEntries(t, root, Options{Symlinks: SymlinkFollow})
	expected := []string{"a/", "a/inner.txt"}

	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestSymlinkFollowDescends(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := createTree(t, "visible.txt")
	outside := createTree(t, "elsewhere/deep.txt")
	if err := os.Symlink(outside, filepath.Join(root, "mounted")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	got := relEntries(t, root, Options{Symlinks: SymlinkFollow})
	expected := []string{"mounted/", "mounted/elsewhere/", "mounted/elsewhere/deep.txt", "visible.txt"}

	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestTreeSymlinkedRootKeepsCallerPaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	target := createTree(t, "doc.txt")
	link := filepath.Join(t.TempDir(), "alias")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	var paths []string
	err := Tree(context.Background(), link, func(e Entry) error {
		paths = append(paths, e.Path)
		return nil
	}, Options{})
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}

	expected := []string{filepath.Join(link, "doc.txt")}
	if !reflect.DeepEqual(paths, expected) {
		t.Errorf("Expected %v, got %v", expected, paths)
	}
}
