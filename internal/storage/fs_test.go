package storage

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func tempEvidence(t *testing.T, files map[string]string) *FS {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	s, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestReadAndOpen(t *testing.T) {
	s := tempEvidence(t, map[string]string{"ioc/list.txt": "evil.com\n"})

	got, err := s.Read("ioc/list.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "evil.com\n" {
		t.Errorf("content = %q", got)
	}

	rc, err := s.Open("ioc/list.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	streamed, _ := io.ReadAll(rc)
	if string(streamed) != "evil.com\n" {
		t.Errorf("streamed = %q", streamed)
	}
}

func TestGlob_NonRecursiveSortedCaseInsensitive(t *testing.T) {
	s := tempEvidence(t, map[string]string{
		"reports/b.PDF":        "x",
		"reports/a.pdf":        "x",
		"reports/notes.txt":    "x",
		"reports/deep/c.pdf":   "x",
		"reports/deep/d.pdf/e": "x",
	})
	items, err := s.Glob("reports", ".pdf")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	if items[0].Name != "a.pdf" || items[1].Name != "b.PDF" {
		t.Errorf("order = %s, %s", items[0].Name, items[1].Name)
	}
	if items[0].Path != "reports/a.pdf" {
		t.Errorf("path = %q", items[0].Path)
	}
}

func TestGlob_MissingDir(t *testing.T) {
	s := tempEvidence(t, nil)
	items, err := s.Glob("anomalies", ".txt")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestFind_Recursive(t *testing.T) {
	s := tempEvidence(t, map[string]string{
		"a.csv":            "h\n1\n",
		"sub/b.JSON":       "{}",
		"sub/deeper/c.txt": "x",
		"sub/ignored.bin":  "x",
	})
	items, err := s.Find("", ".csv", ".json", ".txt")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	want := []string{"a.csv", "sub/b.JSON", "sub/deeper/c.txt"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempEvidence(t, nil)

	cases := []string{
		"../../etc/passwd",
		"../outside.txt",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if _, err := s.Open(p); err == nil {
			t.Errorf("expected error for open of %q", p)
		}
	}
	if _, err := s.Glob("../", ".txt"); err == nil {
		t.Error("expected error for glob outside root")
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "evidence-*")
	_ = f.Close()
	_, err := NewFS(f.Name())
	if !errors.Is(err, ErrNotDir) {
		t.Errorf("err = %v, want ErrNotDir", err)
	}
}

func TestStem(t *testing.T) {
	cases := map[string]string{
		"apt29.txt":            "apt29",
		"reports/Q3.final.pdf": "Q3.final",
		"noext":                "noext",
	}
	for in, want := range cases {
		if got := Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}
