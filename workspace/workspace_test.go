package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/depgraph/external"
	"github.com/golang/depgraph/gps"
)

type fakeWorkspaceManifestLoader struct {
	deps []gps.Constraint
}

func (f fakeWorkspaceManifestLoader) Load(packagePath, baseURL string, version gps.Version, filesystem fs.FS) (gps.Manifest, error) {
	return gps.Manifest{Dependencies: f.deps}, nil
}

type recordingGraphLoader struct {
	called    bool
	rootCount int
	extCount  int
}

func (g *recordingGraphLoader) Load(rootManifests, externalManifests []external.Manifest) (external.PackageGraph, error) {
	g.called = true
	g.rootCount = len(rootManifests)
	g.extCount = len(externalManifests)
	return "graph", nil
}

func TestRegisterUnregisterRoots(t *testing.T) {
	w := &Workspace{roots: make(map[string]struct{})}
	w.RegisterRoot("/src/app")
	w.RegisterRoot("/src/app") // idempotent

	roots := w.Roots()
	if len(roots) != 1 || roots[0] != "/src/app" {
		t.Errorf("got %v, want [/src/app]", roots)
	}

	if err := w.UnregisterRoot("/src/app"); err != nil {
		t.Fatal(err)
	}
	if len(w.Roots()) != 0 {
		t.Errorf("expected no roots after unregister, got %v", w.Roots())
	}

	err := w.UnregisterRoot("/never/registered")
	if _, ok := err.(*gps.PathNotRegisteredError); !ok {
		t.Errorf("got %T (%v), want *gps.PathNotRegisteredError", err, err)
	}
}

func TestLoadPackageGraphNoRootsErrors(t *testing.T) {
	w := &Workspace{roots: make(map[string]struct{})}
	_, err := w.LoadPackageGraph()
	if _, ok := err.(*gps.NoRegisteredPackagesError); !ok {
		t.Errorf("got %T (%v), want *gps.NoRegisteredPackagesError", err, err)
	}
}

func TestLoadPackageGraphSkipsResolveWhenNothingMissing(t *testing.T) {
	dep := gps.PackageRef{Kind: gps.KindRemote, Location: "github.com/foo/bar"}
	s := &State{deps: map[gps.PackageIdentity]ManagedDependency{}}
	ver := "1.0.0"
	s.Set(dep.Identity(), ManagedDependency{RepositoryURL: dep.Location, CurrentVersion: &ver})

	loader := fakeWorkspaceManifestLoader{deps: []gps.Constraint{
		{Ref: dep, Requirement: gps.VersionedRequirement(gps.AnyVersions())},
	}}
	graph := &recordingGraphLoader{}

	w := &Workspace{
		roots:               map[string]struct{}{"/src/app": {}},
		state:               s,
		manifests:           loader,
		graph:               graph,
		currentToolsVersion: 1,
	}

	out, err := w.LoadPackageGraph()
	if err != nil {
		t.Fatal(err)
	}
	if out != "graph" {
		t.Errorf("got %v, want the graph loader's return value", out)
	}
	if !graph.called {
		t.Fatal("expected the graph loader to be invoked")
	}
	if graph.rootCount != 1 {
		t.Errorf("got %d root manifests, want 1", graph.rootCount)
	}
	if graph.extCount != 0 {
		t.Errorf("got %d external manifests, want 0 (skip-resolve path)", graph.extCount)
	}
}

func TestLoadPackageGraphRejectsIncompatibleToolsVersion(t *testing.T) {
	loader := fakeWorkspaceManifestLoaderWithToolsVersion{toolsVersion: 5}
	w := &Workspace{
		roots:               map[string]struct{}{"/src/app": {}},
		state:               &State{deps: map[gps.PackageIdentity]ManagedDependency{}},
		manifests:           loader,
		currentToolsVersion: 1,
	}

	_, err := w.LoadPackageGraph()
	if _, ok := err.(*gps.IncompatibleToolsVersionError); !ok {
		t.Errorf("got %T (%v), want *gps.IncompatibleToolsVersionError", err, err)
	}
}

type fakeWorkspaceManifestLoaderWithToolsVersion struct {
	toolsVersion gps.ToolsVersion
}

func (f fakeWorkspaceManifestLoaderWithToolsVersion) Load(packagePath, baseURL string, version gps.Version, filesystem fs.FS) (gps.Manifest, error) {
	return gps.Manifest{ToolsVersion: f.toolsVersion}, nil
}

func TestOpenCreatesDirectoriesLoadsStateAndCloses(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "ws")

	w, err := Open(Config{
		DataDir:             dataDir,
		ManifestLoader:      fakeWorkspaceManifestLoader{},
		RepoFactory:         fakeEditRepoFactory,
		ToolsVersionLoader:  nil,
		GraphLoader:         &recordingGraphLoader{},
		CurrentToolsVersion: 1,
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, sub := range []string{reposDir, checkoutsDir, editsDir} {
		if _, statErr := os.Stat(filepath.Join(dataDir, sub)); statErr != nil {
			t.Errorf("expected %s to be created by Open, got %v", sub, statErr)
		}
	}
	if len(w.Roots()) != 0 {
		t.Errorf("expected a freshly opened workspace to have no registered roots")
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}
