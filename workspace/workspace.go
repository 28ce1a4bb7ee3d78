package workspace

import (
	"os"
	"path/filepath"

	"github.com/golang/depgraph/external"
	"github.com/golang/depgraph/gps"
	"github.com/golang/depgraph/internal/tracelog"
	"github.com/golang/depgraph/pin"
	"github.com/pkg/errors"
	flock "github.com/theckman/go-flock"
)

// protected subdirectories clean never removes (§4.8).
const (
	reposDir     = "repositories"
	checkoutsDir = "checkouts"
	editsDir     = "edits"
)

// Delegate receives fire-and-forget progress notifications during
// loadPackageGraph and edit/unedit (§6 "Delegate callbacks"). A nil method
// value on an embedding type is fine; Workspace always nil-checks before
// calling.
type Delegate interface {
	FetchingMissingRepositories(urls []string)
	Fetching(repo string)
	Cloning(repo string)
	CheckingOut(repo, reference string)
	Removing(repo string)
	Warning(message string)
}

// Workspace owns the on-disk state and registered roots described in §4.8.
// It is single-writer by contract (§5, §4.9): callers must not invoke two
// mutating methods concurrently. The advisory file lock below only guards
// against two separate processes racing the same data directory; it is not
// a substitute for serializing calls within one process.
type Workspace struct {
	dataDir  string
	lock     *flock.Flock
	roots    map[string]struct{}
	state    *State
	pins     *pin.Store
	mirrors  *MirrorConfig
	delegate Delegate

	manifests   gps.ManifestLoader
	repoFactory gps.RepositoryProviderFactory
	toolsVer    gps.ToolsVersionLoader
	cache       *gps.BoltDependencyCache
	containers  *gps.ContainerProvider
	graph       external.PackageGraphLoader
	trace       *tracelog.Logger

	currentToolsVersion gps.ToolsVersion
}

// Config bundles the collaborators a Workspace needs; all are required
// except Delegate.
type Config struct {
	DataDir             string
	ManifestLoader      gps.ManifestLoader
	RepoFactory         gps.RepositoryProviderFactory
	ToolsVersionLoader  gps.ToolsVersionLoader
	GraphLoader         external.PackageGraphLoader
	CurrentToolsVersion gps.ToolsVersion
	Delegate            Delegate
	Trace               *tracelog.Logger
}

// Open acquires the data directory's advisory lock, creates the mandatory
// subdirectories if absent, and loads the workspace-state, pin, and mirror
// files.
func Open(cfg Config) (*Workspace, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating workspace data directory %s", cfg.DataDir)
	}
	for _, sub := range []string{reposDir, checkoutsDir, editsDir} {
		if err := os.MkdirAll(filepath.Join(cfg.DataDir, sub), 0755); err != nil {
			return nil, errors.Wrapf(err, "creating %s", sub)
		}
	}

	l := flock.New(filepath.Join(cfg.DataDir, ".lock"))
	locked, err := l.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, "acquiring workspace lock")
	}
	if !locked {
		return nil, errors.New("workspace data directory is locked by another process")
	}

	state, err := LoadState(filepath.Join(cfg.DataDir, "workspace-state.json"))
	if err != nil {
		l.Unlock()
		return nil, err
	}

	mirrors, err := LoadMirrorConfig(filepath.Join(cfg.DataDir, "mirrors.toml"))
	if err != nil {
		l.Unlock()
		return nil, err
	}

	pins, err := pin.Open(filepath.Join(cfg.DataDir, "Package.resolved"), mirrors)
	if err != nil {
		l.Unlock()
		return nil, err
	}

	cache, err := gps.OpenBoltDependencyCache(filepath.Join(cfg.DataDir, reposDir))
	if err != nil {
		l.Unlock()
		return nil, err
	}

	w := &Workspace{
		dataDir:             cfg.DataDir,
		lock:                l,
		roots:               make(map[string]struct{}),
		state:               state,
		pins:                pins,
		mirrors:             mirrors,
		delegate:            cfg.Delegate,
		manifests:           cfg.ManifestLoader,
		repoFactory:         cfg.RepoFactory,
		toolsVer:            cfg.ToolsVersionLoader,
		cache:               cache,
		graph:               cfg.GraphLoader,
		trace:               cfg.Trace,
		currentToolsVersion: cfg.CurrentToolsVersion,
	}
	w.containers = gps.NewContainerProvider(w.containerFactory, filepath.Join(cfg.DataDir, reposDir))

	if w.currentToolsVersion == 0 && w.toolsVer != nil {
		if tv, err := w.toolsVer.Load(os.DirFS(cfg.DataDir)); err == nil {
			w.currentToolsVersion = tv
		}
	}
	return w, nil
}

// Close releases the data directory lock, the dependency cache, and stops
// any in-flight prefetch.
func (w *Workspace) Close() error {
	w.containers.Close()
	if err := w.cache.Close(); err != nil {
		return err
	}
	return w.lock.Unlock()
}

func (w *Workspace) containerFactory(ref gps.PackageRef, cacheDir string) (gps.Container, error) {
	repo, err := w.repoFactory(ref, cacheDir)
	if err != nil {
		return nil, err
	}
	return gps.NewRepoContainer(ref, repo, w.manifests, w.cache), nil
}

func (w *Workspace) warn(msg string) {
	if w.delegate != nil {
		w.delegate.Warning(msg)
	}
}

// RegisterRoot adds path to the registered-root set. Registering an
// already-registered path is a no-op.
func (w *Workspace) RegisterRoot(path string) {
	w.roots[path] = struct{}{}
}

// UnregisterRoot removes path from the registered-root set, erroring only
// if path was never registered (§4.8).
func (w *Workspace) UnregisterRoot(path string) error {
	if _, ok := w.roots[path]; !ok {
		return &gps.PathNotRegisteredError{Path: path}
	}
	delete(w.roots, path)
	return nil
}

// Roots returns the currently registered root paths, unordered.
func (w *Workspace) Roots() []string {
	out := make([]string, 0, len(w.roots))
	for r := range w.roots {
		out = append(out, r)
	}
	return out
}

// loadRootManifest reads path's manifest (a zero Version signals "the
// working copy", since a root isn't pinned to any tag) and rejects it if its
// declared tools-version exceeds the current one.
func (w *Workspace) loadRootManifest(path string) (gps.Manifest, error) {
	m, err := w.manifests.Load(path, path, gps.Version{}, os.DirFS(path))
	if err != nil {
		return gps.Manifest{}, errors.Wrapf(err, "loading root manifest for %s", path)
	}
	if m.ToolsVersion > w.currentToolsVersion {
		return gps.Manifest{}, &gps.IncompatibleToolsVersionError{
			Path:     path,
			Required: m.ToolsVersion,
			Current:  w.currentToolsVersion,
		}
	}
	return m, nil
}

// revertMissingEdits walks the managed-dependency table and, for any
// edit-mode row (BasedOn != nil) whose overlay directory has disappeared,
// silently falls back to the underlying checkout (§4.8 step 2, §4.9
// "edited-but-missing -> fall back to checkout").
func (w *Workspace) revertMissingEdits() {
	for id, dep := range w.state.All() {
		if dep.BasedOn == nil {
			continue
		}
		overlay := filepath.Join(w.dataDir, editsDir, filepath.Base(dep.Subpath))
		if _, err := os.Stat(overlay); os.IsNotExist(err) {
			w.warn("edit overlay for " + string(id) + " is missing; reverting to checkout")
			reverted := *dep.BasedOn
			w.state.Set(id, reverted)
		}
	}
}

// LoadPackageGraph is the master routine described in §4.8: validate root
// manifests and edit overlays, resolve whatever managed dependencies aren't
// already satisfied, apply the resulting package-state changes to disk, and
// hand the final manifest set to the external graph loader.
func (w *Workspace) LoadPackageGraph() (external.PackageGraph, error) {
	if len(w.roots) == 0 {
		return nil, &gps.NoRegisteredPackagesError{}
	}

	var rootManifests []gps.Manifest
	var rootConstraints []gps.Constraint
	for _, root := range w.roots {
		m, err := w.loadRootManifest(root)
		if err != nil {
			return nil, err
		}
		rootManifests = append(rootManifests, m)
		rootConstraints = append(rootConstraints, m.Dependencies...)
	}

	w.revertMissingEdits()

	missing := w.missingManifests(rootConstraints)
	if len(missing) == 0 {
		return w.graph.Load(rootManifests, nil)
	}
	if w.delegate != nil {
		w.delegate.FetchingMissingRepositories(missing)
	}

	pinConstraints := w.pinningConstraints()
	assign, err := gps.Resolve(append(append([]gps.Constraint{}, rootConstraints...), pinConstraints...), w.containers, gps.ResolveOptions{ToolsVersion: w.currentToolsVersion, Trace: w.trace})
	if err != nil {
		return nil, err
	}

	changes := computePackageStateChanges(w.state, assign)
	if err := w.applyChanges(changes, assign); err != nil {
		return nil, err
	}
	if err := w.state.Save(); err != nil {
		return nil, err
	}
	if err := w.autoPin(assign); err != nil {
		return nil, err
	}

	externalManifests, err := w.loadResolvedManifests(assign)
	if err != nil {
		return nil, err
	}
	return w.graph.Load(rootManifests, externalManifests)
}

// autoPin records every version-bound identity's resolved state into the
// pin store and writes it out, so a repeat loadPackageGraph can recognize
// nothing changed without re-resolving (§4.7, §4.8 step 5 "optionally
// auto-pin").
func (w *Workspace) autoPin(assign gps.AssignmentSet) error {
	for _, id := range assign.Identities() {
		container, bound, _ := assign.Lookup(id)
		v, ok := bound.Version()
		if !ok {
			continue
		}
		tag, _ := container.GetTag(v)
		rev, err := w.resolveTagRevision(id, tag)
		if err != nil {
			return err
		}
		ref := gps.PackageRef{Kind: gps.KindRemote, Location: string(id)}
		w.pins.Pin(ref, pinStateFor(v, rev), "")
	}
	return w.pins.SaveState()
}

func (w *Workspace) resolveTagRevision(id gps.PackageIdentity, tag string) (gps.Revision, error) {
	repo, err := w.repoFactory(gps.PackageRef{Kind: gps.KindRemote, Location: string(id)}, filepath.Join(w.dataDir, reposDir, sanitizeID(string(id))))
	if err != nil {
		return "", err
	}
	return repo.ResolveRevision(tag)
}

// missingManifests returns the fetch locations named by constraints that
// have no entry yet in the managed-dependency table (§4.8 step 3).
func (w *Workspace) missingManifests(constraints []gps.Constraint) []string {
	var out []string
	for _, c := range constraints {
		if _, ok := w.state.Get(c.Ref.Identity()); !ok {
			out = append(out, c.Ref.EffectiveLocation())
		}
	}
	return out
}

// pinningConstraints builds the per-identity pinning constraints §4.8 step 5
// describes: .exact(currentVersion) for already-resolved managed
// dependencies, .unversioned(declaredDeps) for edit-mode ones.
func (w *Workspace) pinningConstraints() []gps.Constraint {
	var out []gps.Constraint
	for _, dep := range w.state.All() {
		ref := gps.PackageRef{Kind: gps.KindRemote, Location: dep.RepositoryURL}
		if dep.BasedOn != nil {
			out = append(out, gps.Constraint{Ref: ref, Requirement: gps.UnversionedRequirement(nil)})
			continue
		}
		if dep.CurrentVersion != nil {
			v, err := gps.NewVersion(*dep.CurrentVersion)
			if err == nil {
				out = append(out, gps.Constraint{Ref: ref, Requirement: gps.VersionedRequirement(gps.ExactVersion(v))})
				continue
			}
		}
		if dep.CurrentRevision != nil {
			rev := gps.Revision(*dep.CurrentRevision)
			out = append(out, gps.Constraint{Ref: ref, Requirement: gps.VersionedRequirement(gps.ExactRevision(rev))})
		}
	}
	return out
}

// applyChanges performs the added | updated | removed actions a
// PackageStateDiff describes: materializing checkouts for new or changed
// bindings, removing checkouts for dependencies the resolve dropped.
func (w *Workspace) applyChanges(changes PackageStateDiff, assign gps.AssignmentSet) error {
	for _, id := range changes.Removed {
		dep, ok := w.state.Get(id)
		if !ok {
			continue
		}
		if w.delegate != nil {
			w.delegate.Removing(dep.RepositoryURL)
		}
		w.state.Remove(id)
	}

	for _, id := range append(append([]gps.PackageIdentity{}, changes.Added...), idsOf(changes.Updated)...) {
		container, bound, ok := assign.Lookup(id)
		if !ok {
			continue
		}
		v, isVersion := bound.Version()
		if !isVersion {
			continue // unversioned (edit-mode) bindings don't get a fresh checkout here
		}
		if w.delegate != nil {
			w.delegate.Cloning(string(id))
		}
		if err := w.materializeCheckout(container, id, v); err != nil {
			return err
		}
	}
	return nil
}

func idsOf(updates []PackageUpdate) []gps.PackageIdentity {
	out := make([]gps.PackageIdentity, len(updates))
	for i, u := range updates {
		out[i] = u.Identity
	}
	return out
}

// materializeCheckout resolves v's tag to a revision and exports a working
// checkout under checkouts/<identity>, recording the outcome in the managed
// dependency table.
func (w *Workspace) materializeCheckout(container gps.Container, id gps.PackageIdentity, v gps.Version) error {
	tag, _ := container.GetTag(v)

	repo, err := w.repoFactory(gps.PackageRef{Kind: gps.KindRemote, Location: string(id)}, filepath.Join(w.dataDir, reposDir, sanitizeID(string(id))))
	if err != nil {
		return err
	}
	rev, err := repo.ResolveRevision(tag)
	if err != nil {
		return errors.Wrapf(err, "resolving %s to install %s", id, v)
	}
	if w.delegate != nil {
		w.delegate.CheckingOut(string(id), tag)
	}

	checkoutDir := filepath.Join(w.dataDir, checkoutsDir, sanitizeID(string(id)))
	if err := repo.OpenCheckout(rev, checkoutDir); err != nil {
		return errors.Wrapf(err, "checking out %s@%s", id, v)
	}

	verStr := v.String()
	revStr := string(rev)
	w.state.Set(id, ManagedDependency{
		RepositoryURL:   string(id),
		Subpath:         checkoutDir,
		CurrentVersion:  &verStr,
		CurrentRevision: &revStr,
	})
	return nil
}

// loadResolvedManifests reads the manifest for every version-bound identity
// in assign, so they can be handed to the external graph loader alongside
// the root manifests.
func (w *Workspace) loadResolvedManifests(assign gps.AssignmentSet) ([]gps.Manifest, error) {
	var out []gps.Manifest
	for _, id := range assign.Identities() {
		container, bound, _ := assign.Lookup(id)
		v, ok := bound.Version()
		if !ok {
			continue
		}
		if w.delegate != nil {
			w.delegate.Fetching(string(id))
		}
		deps, err := container.Dependencies(v)
		if err != nil {
			return nil, err
		}
		out = append(out, gps.Manifest{Dependencies: deps})
	}
	return out, nil
}

func pinStateFor(v gps.Version, rev gps.Revision) pin.State {
	s := pin.State{Revision: string(rev)}
	if !v.IsZero() {
		s.Version = v.String()
	}
	return s
}

func sanitizeID(s string) string {
	b := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b = append(b, r)
		default:
			b = append(b, '-')
		}
	}
	return string(b)
}
