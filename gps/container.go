package gps

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Container is a single package's source of versions and per-version
// dependency declarations (§3, §4.5). Exactly one Container exists per
// identity for the life of a resolve; ContainerProvider owns that identity
// map.
type Container interface {
	Identity() PackageIdentity

	// Versions lazily lists the container's known versions, newest first,
	// filtered to those whose declared tools-version does not exceed
	// currentToolsVersion.
	Versions(currentToolsVersion ToolsVersion) ([]Version, error)

	// GetTag reverse-looks-up the repository tag that produced v.
	GetTag(v Version) (string, bool)

	// Dependencies returns the Constraints v's manifest declares, with child
	// PackageRefs carrying ref's mirror table. The result is cached per
	// version.
	Dependencies(v Version) ([]Constraint, error)

	// VersionForRevision looks up the tagged Version, if any, whose revision
	// equals rev. It backs the resolver's revision-pinning hack (§12): a
	// bare-revision requirement is only resolvable against a tag that
	// happens to point at it, since Versions never surfaces untagged
	// revisions on its own.
	VersionForRevision(rev Revision) (Version, bool, error)
}

// DependencyCache persists per-version dependency lists across resolver
// runs, keyed by identity and revision (§4.5's "memoize under a per-
// identifier lock" extended to on-disk persistence so a repeat resolve
// doesn't re-clone and re-parse every manifest from scratch).
type DependencyCache interface {
	Get(id PackageIdentity, rev Revision) (Manifest, bool, error)
	Put(id PackageIdentity, rev Revision, m Manifest) error
}

// repoContainer is the default Container, backed by a RepositoryProvider and
// the pluggable ManifestLoader/ToolsVersionLoader (§4.5).
type repoContainer struct {
	ref      PackageRef
	repo     RepositoryProvider
	manifest ManifestLoader
	cache    DependencyCache

	tagsMu     sync.Mutex
	tagsLoaded bool
	versions   []taggedVersion // sorted descending by v
	byVersion  map[string]string

	manifestsMu sync.Mutex
	manifests   map[string]*manifestMemo // keyed by tag
}

type manifestMemo struct {
	once sync.Once
	m    Manifest
	err  error
}

// NewRepoContainer builds the default Container implementation for ref, with
// dependency lookups persisted through cache.
func NewRepoContainer(ref PackageRef, repo RepositoryProvider, manifest ManifestLoader, cache DependencyCache) Container {
	return &repoContainer{
		ref:       ref,
		repo:      repo,
		manifest:  manifest,
		cache:     cache,
		byVersion: make(map[string]string),
		manifests: make(map[string]*manifestMemo),
	}
}

func (c *repoContainer) Identity() PackageIdentity { return c.ref.Identity() }

func (c *repoContainer) loadTags() error {
	c.tagsMu.Lock()
	defer c.tagsMu.Unlock()
	if c.tagsLoaded {
		return nil
	}

	if err := c.repo.Clone(); err != nil {
		return &UnavailableRepositoryError{Identity: c.ref.Identity(), Cause: err}
	}
	tags, err := c.repo.GetTags()
	if err != nil {
		return &UnavailableRepositoryError{Identity: c.ref.Identity(), Cause: err}
	}

	tvs := parseTagsToVersions(tags)
	sort.Sort(byTaggedVersionDescending(tvs))

	c.versions = tvs
	c.byVersion = make(map[string]string, len(tvs))
	for _, tv := range tvs {
		c.byVersion[tv.v.String()] = tv.tag
	}
	c.tagsLoaded = true
	return nil
}

// Versions lists known versions newest first, dropping any whose manifest
// declares a tools-version this loader cannot service. A version whose
// manifest can't be read at all is also dropped from the list; the resolver
// hits the same error via Dependencies if it ever tries to bind that version
// directly (e.g. through an exact-version constraint).
func (c *repoContainer) Versions(currentToolsVersion ToolsVersion) ([]Version, error) {
	if err := c.loadTags(); err != nil {
		return nil, err
	}

	c.tagsMu.Lock()
	tvs := append([]taggedVersion(nil), c.versions...)
	c.tagsMu.Unlock()

	out := make([]Version, 0, len(tvs))
	for _, tv := range tvs {
		m, err := c.loadManifest(tv)
		if err != nil {
			continue
		}
		if m.ToolsVersion > currentToolsVersion {
			continue
		}
		out = append(out, tv.v)
	}
	return out, nil
}

func (c *repoContainer) GetTag(v Version) (string, bool) {
	c.tagsMu.Lock()
	defer c.tagsMu.Unlock()
	tag, ok := c.byVersion[v.String()]
	return tag, ok
}

func (c *repoContainer) Dependencies(v Version) ([]Constraint, error) {
	if err := c.loadTags(); err != nil {
		return nil, err
	}
	tag, ok := c.GetTag(v)
	if !ok {
		return nil, errors.Errorf("container %s: no tag for version %s", c.ref.Identity(), v)
	}
	m, err := c.loadManifest(taggedVersion{v: v, tag: tag})
	if err != nil {
		return nil, errors.Wrapf(err, "%s@%s (tag %s)", c.ref.Identity(), v, tag)
	}
	return m.Dependencies, nil
}

// VersionForRevision scans the loaded tags for one whose resolved revision
// equals rev, returning its Version. This resolves a tag, not a manifest, so
// it doesn't touch the manifest cache; repeated calls cost one
// ResolveRevision per tag, same as loadTags would for any other lookup.
func (c *repoContainer) VersionForRevision(rev Revision) (Version, bool, error) {
	if err := c.loadTags(); err != nil {
		return Version{}, false, err
	}
	c.tagsMu.Lock()
	tvs := append([]taggedVersion(nil), c.versions...)
	c.tagsMu.Unlock()

	for _, tv := range tvs {
		r, err := c.repo.ResolveRevision(tv.tag)
		if err != nil {
			return Version{}, false, errors.Wrapf(err, "resolving tag %s", tv.tag)
		}
		if r == rev {
			return tv.v, true, nil
		}
	}
	return Version{}, false, nil
}

// loadManifest memoizes the manifest read for tv.tag behind a per-tag
// sync.Once, so concurrent callers (Versions scanning ahead while Dependencies
// is asked for a specific version) collapse to one fetch.
func (c *repoContainer) loadManifest(tv taggedVersion) (Manifest, error) {
	c.manifestsMu.Lock()
	memo, ok := c.manifests[tv.tag]
	if !ok {
		memo = &manifestMemo{}
		c.manifests[tv.tag] = memo
	}
	c.manifestsMu.Unlock()

	memo.once.Do(func() {
		memo.m, memo.err = c.fetchManifest(tv)
	})
	return memo.m, memo.err
}

func (c *repoContainer) fetchManifest(tv taggedVersion) (Manifest, error) {
	rev, err := c.repo.ResolveRevision(tv.tag)
	if err != nil {
		return Manifest{}, errors.Wrap(err, "resolving tag to revision")
	}

	m, err := c.cachedOrLoaded(rev, tv)
	if err != nil {
		return Manifest{}, err
	}

	// Mirrors is an interface field and so is never itself persisted to the
	// cache (it can't round-trip through JSON); attach it fresh from the
	// currently configured ref on every read, whether the manifest came from
	// cache or a live load.
	for i := range m.Dependencies {
		if m.Dependencies[i].Ref.Mirrors == nil {
			m.Dependencies[i].Ref.Mirrors = c.ref.Mirrors
		}
	}
	return m, nil
}

// cachedOrLoaded returns rev's manifest from the persistent cache if present,
// otherwise loads it via the RepositoryProvider/ManifestLoader and stores it.
func (c *repoContainer) cachedOrLoaded(rev Revision, tv taggedVersion) (Manifest, error) {
	if c.cache != nil {
		if cm, hit, cerr := c.cache.Get(c.ref.Identity(), rev); cerr == nil && hit {
			return cm, nil
		}
	}

	view, err := c.repo.OpenFileView(rev)
	if err != nil {
		return Manifest{}, errors.Wrap(err, "opening file view")
	}

	m, err := c.manifest.Load(c.ref.EffectiveLocation(), c.ref.EffectiveLocation(), tv.v, view)
	if err != nil {
		return Manifest{}, errors.Wrap(err, "loading manifest")
	}

	if c.cache != nil {
		if err := c.cache.Put(c.ref.Identity(), rev, m); err != nil {
			return Manifest{}, errors.Wrap(err, "writing dependency cache")
		}
	}
	return m, nil
}

// byTaggedVersionDescending sorts tagged versions newest-first.
type byTaggedVersionDescending []taggedVersion

func (s byTaggedVersionDescending) Len() int      { return len(s) }
func (s byTaggedVersionDescending) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byTaggedVersionDescending) Less(i, j int) bool {
	return s[j].v.Less(s[i].v)
}
