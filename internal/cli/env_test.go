package cli

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvLoaderCandidateOrder(t *testing.T) {
	t.Setenv(EnvFileVar, "/etc/quotelog/prod.env")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, "", "")
	if err := fs.Parse([]string{"--env", "deploy/staging.env"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	got := loader.candidates()
	want := []string{"/etc/quotelog/prod.env", "deploy/staging.env", "staging.env", ".env"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestEnvLoaderLoadsFlagFile(t *testing.T) {
	t.Setenv(EnvFileVar, "")
	t.Setenv("QUOTELOG_TEST_MARKER", "before")

	path := filepath.Join(t.TempDir(), "quotelog.env")
	if err := os.WriteFile(path, []byte("QUOTELOG_TEST_MARKER=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, ".env", "")
	if err := fs.Parse([]string{"--env", path}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != path {
		t.Fatalf("expected %s, got %s", path, loaded)
	}
	if got := os.Getenv("QUOTELOG_TEST_MARKER"); got != "from-file" {
		t.Fatalf("expected file value to override, got %q", got)
	}
}
