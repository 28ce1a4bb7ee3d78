package gps

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sdboyer/constext"
	"golang.org/x/sync/singleflight"
)

// ContainerFactory builds the Container for a PackageRef the first time its
// identity is observed. It is where the RepositoryProvider, ManifestLoader,
// and DependencyCache this module ships get assembled into a Container.
type ContainerFactory func(ref PackageRef, cacheDir string) (Container, error)

// DefaultContainerFactory returns a ContainerFactory backed by
// VCSRepository, loader, and cache, the default RepositoryProvider,
// ManifestLoader, and DependencyCache this package ships.
func DefaultContainerFactory(loader ManifestLoader, cache DependencyCache) ContainerFactory {
	return func(ref PackageRef, cacheDir string) (Container, error) {
		repo, err := NewVCSRepository(ref.EffectiveLocation(), cacheDir)
		if err != nil {
			return nil, err
		}
		return NewRepoContainer(ref, repo, loader, cache), nil
	}
}

// ContainerProvider looks up or creates the Container for an identity,
// collapsing concurrent duplicate requests for the same identity into one
// clone operation (§4.6). It also owns cancelable background prefetching: a
// container observed once can be asked to eagerly warm its tag/version list
// without blocking the caller that triggered the prefetch.
type ContainerProvider struct {
	factory  ContainerFactory
	cacheDir string

	group singleflight.Group

	mu         sync.RWMutex
	containers map[PackageIdentity]Container

	prefetchMu  sync.Mutex
	prefetchCtx context.Context
	cancelAll   context.CancelFunc
}

// NewContainerProvider builds a ContainerProvider that stores repository
// clones under subdirectories of cacheDir.
func NewContainerProvider(factory ContainerFactory, cacheDir string) *ContainerProvider {
	ctx, cancel := context.WithCancel(context.Background())
	return &ContainerProvider{
		factory:     factory,
		cacheDir:    cacheDir,
		containers:  make(map[PackageIdentity]Container),
		prefetchCtx: ctx,
		cancelAll:   cancel,
	}
}

// GetContainer returns the Container for ref, invoking onFirstObserved
// exactly once for a given identity, the first time it's built (§4.6). Two
// concurrent calls for the same identity block on one clone rather than
// racing two.
func (p *ContainerProvider) GetContainer(ref PackageRef, onFirstObserved func(Container)) (Container, error) {
	id := ref.Identity()

	p.mu.RLock()
	c, ok := p.containers[id]
	p.mu.RUnlock()
	if ok {
		return c, nil
	}

	v, err, _ := p.group.Do(string(id), func() (interface{}, error) {
		p.mu.RLock()
		if c, ok := p.containers[id]; ok {
			p.mu.RUnlock()
			return c, nil
		}
		p.mu.RUnlock()

		built, err := p.factory(ref, p.containerCacheDir(id))
		if err != nil {
			return nil, errors.Wrapf(err, "building container for %s", id)
		}

		p.mu.Lock()
		p.containers[id] = built
		p.mu.Unlock()

		if onFirstObserved != nil {
			onFirstObserved(built)
		}
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Container), nil
}

func (p *ContainerProvider) containerCacheDir(id PackageIdentity) string {
	return filepath.Join(p.cacheDir, sanitizeForPath(string(id)))
}

// Prefetch warms refs' containers in the background, joining the caller's
// ctx with the provider's own lifetime context via constext so that
// cancelling either the caller's request or releasing the provider stops the
// prefetch; it never blocks the caller and never surfaces errors (§4.4's
// up-front-merge step: "prefetch never blocks correctness; its sole purpose
// is latency hiding").
func (p *ContainerProvider) Prefetch(ctx context.Context, refs []PackageRef) {
	joined, _ := constext.Cons(ctx, p.prefetchCtx)
	for _, ref := range refs {
		ref := ref
		go func() {
			select {
			case <-joined.Done():
				return
			default:
			}
			c, err := p.GetContainer(ref, nil)
			if err != nil {
				return
			}
			_, _ = c.Versions(maxToolsVersion)
		}()
	}
}

// Close stops any in-flight prefetches. It does not release repository
// clones on disk.
func (p *ContainerProvider) Close() {
	p.cancelAll()
}

// maxToolsVersion is used by Prefetch, which has no caller-supplied
// tools-version to filter by; it only wants to warm the tag cache.
const maxToolsVersion = ToolsVersion(1<<63 - 1)

func sanitizeForPath(s string) string {
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
