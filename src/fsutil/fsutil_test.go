package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCopyFilePreservesMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "gradlew")
	write(t, src, "#!/bin/sh\n")
	if err := os.Chmod(src, 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	dst := filepath.Join(dir, "out", "gradlew")
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
}

func TestCopyFileRejectsDirectory(t *testing.T) {
	if err := CopyFile(t.TempDir(), filepath.Join(t.TempDir(), "x")); err == nil {
		t.Fatal("directory accepted as file")
	}
}

func TestCopyTreeOverlays(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	write(t, filepath.Join(src, "a", "one.txt"), "from overlay")
	write(t, filepath.Join(src, "two.txt"), "new")
	write(t, filepath.Join(dst, "a", "one.txt"), "original")
	write(t, filepath.Join(dst, "keep.txt"), "kept")

	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}

	for path, want := range map[string]string{
		filepath.Join(dst, "a", "one.txt"): "from overlay",
		filepath.Join(dst, "two.txt"):      "new",
		filepath.Join(dst, "keep.txt"):     "kept",
	} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", path, data, want)
		}
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	write(t, file, "x")

	if !Exists(file) || !Exists(dir) {
		t.Error("Exists false for present paths")
	}
	if Exists(filepath.Join(dir, "missing")) {
		t.Error("Exists true for missing path")
	}
	if !DirExists(dir) || DirExists(file) {
		t.Error("DirExists wrong for dir/file")
	}
}
