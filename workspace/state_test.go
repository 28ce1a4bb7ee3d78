package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestLoadStateMissingFileIsEmpty(t *testing.T) {
	s, err := LoadState(filepath.Join(t.TempDir(), "workspace-state.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.All()) != 0 {
		t.Error("expected empty state for a missing file")
	}
}

func TestStateSetGetSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workspace-state.json")
	s, err := LoadState(path)
	if err != nil {
		t.Fatal(err)
	}
	dep := ManagedDependency{
		RepositoryURL:  "github.com/foo/bar",
		Subpath:        "checkouts/github.com-foo-bar",
		CurrentVersion: strPtr("1.2.3"),
	}
	s.Set(dep.Identity(), dep)
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := LoadState(path)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := reloaded.Get(dep.Identity())
	if !ok {
		t.Fatal("expected the dependency to survive a save/reload round trip")
	}
	if got.Subpath != dep.Subpath || *got.CurrentVersion != *dep.CurrentVersion {
		t.Errorf("got %+v, want %+v", got, dep)
	}
}

func TestStateRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workspace-state.json")
	s, err := LoadState(path)
	if err != nil {
		t.Fatal(err)
	}
	dep := ManagedDependency{RepositoryURL: "github.com/foo/bar"}
	s.Set(dep.Identity(), dep)
	s.Remove(dep.Identity())
	if _, ok := s.Get(dep.Identity()); ok {
		t.Error("expected the row to be gone after Remove")
	}
}

func TestLoadStateRejectsUnknownSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workspace-state.json")
	if err := os.WriteFile(path, []byte(`{"version":99,"dependencies":[]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadState(path); err == nil {
		t.Error("expected an unrecognized schema version to error")
	}
}
