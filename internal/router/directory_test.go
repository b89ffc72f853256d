package router

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCollectDirectoryEntriesSortsAndSkipsDotEntries(t *testing.T) {
	dir := t.TempDir()
	os.Mkdir(filepath.Join(dir, "zeta"), 0o755)
	os.Mkdir(filepath.Join(dir, "alpha"), 0o755)
	os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644)

	dirs, files, err := collectDirectoryEntries(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 2 || dirs[0] != "alpha" || dirs[1] != "zeta" {
		t.Fatalf("dirs = %v", dirs)
	}
	if len(files) != 2 || files[0] != "a.txt" || files[1] != "b.txt" {
		t.Fatalf("files = %v", files)
	}
}

func TestFormatFileSize(t *testing.T) {
	cases := map[int64]string{
		0:        "0B",
		1023:     "1023B",
		2048:     "2KB",
		5 * 1024 * 1024: "5MB",
	}
	for size, want := range cases {
		if got := formatFileSize(size); got != want {
			t.Errorf("formatFileSize(%d) = %q, want %q", size, got, want)
		}
	}
}

func TestParentDirectoryLinkOmittedAtRoot(t *testing.T) {
	if parentDirectoryLink("/") != "" {
		t.Fatal("expected no parent link at root")
	}
	if !strings.Contains(parentDirectoryLink("/a/b"), `href="/a"`) {
		t.Fatalf("expected parent link to /a, got %q", parentDirectoryLink("/a/b"))
	}
}

func TestGenerateDirectoryListingIncludesEntries(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "file.txt"), []byte("hi"), 0o644)

	rt := New(testModel(), testLogger())
	resp := rt.generateDirectoryListing(dir, "/files", &rt.model.Servers[0])

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "file.txt") {
		t.Fatalf("expected listing to mention file.txt, got %s", resp.Body)
	}
}
