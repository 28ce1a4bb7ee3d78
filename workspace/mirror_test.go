package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMirrorConfigMissingFileIsNoop(t *testing.T) {
	mc, err := LoadMirrorConfig(filepath.Join(t.TempDir(), "mirrors.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if mc.Rewrite("github.com/foo/bar") != "github.com/foo/bar" {
		t.Error("an empty mirror config should be a no-op rewrite")
	}
}

func TestMirrorConfigSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirrors.toml")
	mc := &MirrorConfig{
		forward: map[string]string{"https://host/foo.git": "https://mirror/foo.git"},
		reverse: map[string]string{"https://mirror/foo.git": "https://host/foo.git"},
	}
	if err := mc.Save(path); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected mirrors.toml to exist: %v", err)
	}

	reloaded, err := LoadMirrorConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Rewrite("https://host/foo.git"); got != "https://mirror/foo.git" {
		t.Errorf("Rewrite: got %q, want mirror URL", got)
	}
	orig, ok := reloaded.Unrewrite("https://mirror/foo.git")
	if !ok || orig != "https://host/foo.git" {
		t.Errorf("Unrewrite: got %q, %v", orig, ok)
	}
}
