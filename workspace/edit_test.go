package workspace

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/golang/depgraph/gps"
)

// fakeEditRepo is a no-op gps.RepositoryProvider good enough for Edit/Unedit,
// which only need a provider to exist, not to actually fetch anything (the
// overlay is already a real git checkout copied in by shutil.CopyTree).
type fakeEditRepo struct{}

func (fakeEditRepo) Clone() error                                { return nil }
func (fakeEditRepo) Open() error                                 { return nil }
func (fakeEditRepo) OpenCheckout(gps.Revision, string) error     { return nil }
func (fakeEditRepo) OpenFileView(gps.Revision) (fs.FS, error)    { return nil, nil }
func (fakeEditRepo) ResolveRevision(string) (gps.Revision, error) { return "", nil }
func (fakeEditRepo) GetTags() ([]string, error)                  { return nil, nil }

var _ gps.RepositoryProvider = fakeEditRepo{}

func fakeEditRepoFactory(gps.PackageRef, string) (gps.RepositoryProvider, error) {
	return fakeEditRepo{}, nil
}

func newEditTestWorkspace(t *testing.T, identity gps.PackageIdentity, checkoutDir string) *Workspace {
	t.Helper()
	dataDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dataDir, editsDir), 0755); err != nil {
		t.Fatal(err)
	}
	s, err := LoadState(filepath.Join(dataDir, "workspace-state.json"))
	if err != nil {
		t.Fatal(err)
	}
	s.Set(identity, ManagedDependency{
		RepositoryURL: string(identity),
		Subpath:       checkoutDir,
	})
	return &Workspace{dataDir: dataDir, state: s, repoFactory: fakeEditRepoFactory}
}

func TestEditCreatesOverlayAndRecordsBasedOn(t *testing.T) {
	checkout := t.TempDir()
	initGitRepo(t, checkout)
	identity := gps.PackageRef{Kind: gps.KindRemote, Location: "github.com/foo/bar"}.Identity()
	w := newEditTestWorkspace(t, identity, checkout)

	if err := w.Edit(identity, "bar-edit", "", ""); err != nil {
		t.Fatal(err)
	}

	dep, ok := w.state.Get(identity)
	if !ok {
		t.Fatal("expected identity to remain tracked after edit")
	}
	if dep.BasedOn == nil {
		t.Fatal("expected BasedOn to be recorded")
	}
	overlay := filepath.Join(w.dataDir, editsDir, "bar-edit")
	if dep.Subpath != overlay {
		t.Errorf("got subpath %s, want %s", dep.Subpath, overlay)
	}
	if _, err := os.Stat(filepath.Join(overlay, "README")); err != nil {
		t.Error("expected overlay to contain a copy of the checkout")
	}
}

func TestEditUnregisteredIdentityErrors(t *testing.T) {
	identity := gps.PackageRef{Kind: gps.KindRemote, Location: "github.com/nope/nope"}.Identity()
	w := newEditTestWorkspace(t, "github.com/other/dep", t.TempDir())

	err := w.Edit(identity, "nope-edit", "", "")
	if _, ok := err.(*gps.PathNotRegisteredError); !ok {
		t.Errorf("got %T (%v), want *gps.PathNotRegisteredError", err, err)
	}
}

func TestEditAlreadyInEditModeErrors(t *testing.T) {
	checkout := t.TempDir()
	initGitRepo(t, checkout)
	identity := gps.PackageRef{Kind: gps.KindRemote, Location: "github.com/foo/bar"}.Identity()
	w := newEditTestWorkspace(t, identity, checkout)

	if err := w.Edit(identity, "bar-edit", "", ""); err != nil {
		t.Fatal(err)
	}
	err := w.Edit(identity, "bar-edit-2", "", "")
	if _, ok := err.(*gps.DependencyAlreadyInEditModeError); !ok {
		t.Errorf("got %T (%v), want *gps.DependencyAlreadyInEditModeError", err, err)
	}
}

func TestUneditRestoresManagedDependency(t *testing.T) {
	checkout := t.TempDir()
	initGitRepo(t, checkout)
	identity := gps.PackageRef{Kind: gps.KindRemote, Location: "github.com/foo/bar"}.Identity()
	w := newEditTestWorkspace(t, identity, checkout)
	before, _ := w.state.Get(identity)

	if err := w.Edit(identity, "bar-edit", "", ""); err != nil {
		t.Fatal(err)
	}
	if err := w.Unedit(identity, false); err != nil {
		t.Fatal(err)
	}

	after, ok := w.state.Get(identity)
	if !ok {
		t.Fatal("expected identity to remain tracked after unedit")
	}
	if after.Subpath != before.Subpath || after.BasedOn != nil {
		t.Errorf("got %+v, want restored %+v", after, before)
	}
	if _, err := os.Stat(filepath.Join(w.dataDir, editsDir, "bar-edit")); !os.IsNotExist(err) {
		t.Error("expected overlay directory to be removed by unedit")
	}
	if _, err := os.Stat(filepath.Join(w.dataDir, editsDir)); !os.IsNotExist(err) {
		t.Error("expected empty edits root to be removed once the last overlay is gone")
	}
}

func TestUneditNotInEditModeErrors(t *testing.T) {
	identity := gps.PackageRef{Kind: gps.KindRemote, Location: "github.com/foo/bar"}.Identity()
	w := newEditTestWorkspace(t, identity, t.TempDir())

	err := w.Unedit(identity, false)
	if _, ok := err.(*gps.DependencyNotInEditModeError); !ok {
		t.Errorf("got %T (%v), want *gps.DependencyNotInEditModeError", err, err)
	}
}

func TestUneditRefusesUncommittedChangesWithoutForce(t *testing.T) {
	checkout := t.TempDir()
	initGitRepo(t, checkout)
	identity := gps.PackageRef{Kind: gps.KindRemote, Location: "github.com/foo/bar"}.Identity()
	w := newEditTestWorkspace(t, identity, checkout)

	if err := w.Edit(identity, "bar-edit", "", ""); err != nil {
		t.Fatal(err)
	}
	dep, _ := w.state.Get(identity)
	if err := writeTestFile(filepath.Join(dep.Subpath, "README"), "dirty"); err != nil {
		t.Fatal(err)
	}

	err := w.Unedit(identity, false)
	if _, ok := err.(*gps.HasUncommittedChangesError); !ok {
		t.Errorf("got %T (%v), want *gps.HasUncommittedChangesError", err, err)
	}

	if err := w.Unedit(identity, true); err != nil {
		t.Fatalf("forceRemove should bypass the dirty-tree check: %v", err)
	}
}

func gitCommit(t *testing.T, dir, msg string) {
	t.Helper()
	cmd := exec.Command("git", "commit", "-q", "-am", msg)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git commit: %v\n%s", err, out)
	}
}

func TestUneditSucceedsOnceChangesAreCommitted(t *testing.T) {
	checkout := t.TempDir()
	initGitRepo(t, checkout)
	identity := gps.PackageRef{Kind: gps.KindRemote, Location: "github.com/foo/bar"}.Identity()
	w := newEditTestWorkspace(t, identity, checkout)

	if err := w.Edit(identity, "bar-edit", "", ""); err != nil {
		t.Fatal(err)
	}
	dep, _ := w.state.Get(identity)
	if err := writeTestFile(filepath.Join(dep.Subpath, "README"), "a real change"); err != nil {
		t.Fatal(err)
	}
	gitCommit(t, dep.Subpath, "edit")

	if err := w.Unedit(identity, false); err != nil {
		t.Fatalf("expected unedit to succeed once the overlay is clean, got %v", err)
	}
}
