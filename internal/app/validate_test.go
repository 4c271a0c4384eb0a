package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCollectJSONFilesRecursive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.json"), `{"k":"v"}`)
	mustWriteFile(t, filepath.Join(root, "b.txt"), `x`)
	mustWriteFile(t, filepath.Join(root, ".hidden.json"), `{}`)
	mustWriteFile(t, filepath.Join(root, "nested", "c.json"), `{"k":"v2"}`)

	files, err := collectJSONFiles(root, true)
	if err != nil {
		t.Fatalf("collectJSONFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 json files, got %d (%v)", len(files), files)
	}
}

func TestCollectJSONFilesNonRecursive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.json"), `{"k":"v"}`)
	mustWriteFile(t, filepath.Join(root, "nested", "c.json"), `{"k":"v2"}`)

	files, err := collectJSONFiles(root, false)
	if err != nil {
		t.Fatalf("collectJSONFiles failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 json file, got %d (%v)", len(files), files)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestValidateFilesCountsCandidates(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	good := filepath.Join(root, "good.json")
	mustWriteFile(t, good, `{"payload_version":"v1","article":{"url":"https://news.example/a"},"candidates":[{"text":"We will win.","speaker_name":"Jane Roe"}]}`)
	broken := filepath.Join(root, "broken.json")
	mustWriteFile(t, broken, `{"payload_version":`)
	badVersion := filepath.Join(root, "bad_version.json")
	mustWriteFile(t, badVersion, `{"payload_version":"v2","article":{"url":"https://news.example/a"},"candidates":[]}`)

	var errOut strings.Builder
	result := validateFiles([]string{good, broken, badVersion}, &errOut)
	if result.Scanned != 3 || result.Valid != 1 || result.Invalid != 2 || result.Candidates != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !strings.Contains(errOut.String(), "INVALID "+broken+": malformed JSON") {
		t.Fatalf("expected malformed JSON report, got %q", errOut.String())
	}
}

func TestBundledQuoteBatchesAreValid(t *testing.T) {
	t.Parallel()

	files, err := collectJSONFiles(filepath.Join("..", "..", "testdata", "quote_batches"), true)
	if err != nil {
		t.Fatalf("collectJSONFiles failed: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("expected bundled quote batches")
	}

	var errOut strings.Builder
	result := validateFiles(files, &errOut)
	if result.Invalid != 0 {
		t.Fatalf("bundled batches failed validation: %s", errOut.String())
	}
}
