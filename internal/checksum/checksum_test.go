package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestSum(t *testing.T) {
	if got := Sum(nil); got != emptySHA256 {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestFile_MatchesSum(t *testing.T) {
	p := filepath.Join(t.TempDir(), "artifact.csv")
	data := []byte("host,ip\nevil.example.com,10.0.0.5\n")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := File(p)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if want := Sum(data); got != want {
		t.Errorf("File = %s, want %s", got, want)
	}
}

func TestFile_Missing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
}
