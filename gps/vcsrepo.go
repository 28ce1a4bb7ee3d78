package gps

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	mvcs "github.com/Masterminds/vcs"
	"github.com/pkg/errors"
	shutil "github.com/termie/go-shutil"
)

// VCSRepository is the default RepositoryProvider, backed by
// Masterminds/vcs. It auto-detects git, hg, bzr, or svn from the remote URL
// and keeps a single local clone under cacheDir, used both for tag/revision
// metadata and as the content source for checkouts and file views.
type VCSRepository struct {
	remote   string
	cacheDir string

	mu     sync.Mutex
	repo   mvcs.Repo
	cloned bool
}

// NewVCSRepository builds a RepositoryProvider for remote, caching its local
// clone under cacheDir (a directory dedicated to this one repository).
func NewVCSRepository(remote, cacheDir string) (*VCSRepository, error) {
	repo, err := mvcs.NewRepo(remote, cacheDir)
	if err != nil {
		return nil, errors.Wrapf(err, "detecting VCS type for %s", remote)
	}
	return &VCSRepository{remote: remote, cacheDir: cacheDir, repo: repo}, nil
}

func (v *VCSRepository) ensureClonedLocked() error {
	if v.cloned {
		return nil
	}
	if v.repo.CheckLocal() {
		v.cloned = true
		return nil
	}
	if err := v.repo.Get(); err != nil {
		return errors.Wrapf(err, "cloning %s", v.remote)
	}
	v.cloned = true
	return nil
}

// Clone ensures a local cache of the repository exists.
func (v *VCSRepository) Clone() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ensureClonedLocked()
}

// Open ensures the local clone's refs are current.
func (v *VCSRepository) Open() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ensureClonedLocked(); err != nil {
		return err
	}
	if err := v.repo.Update(); err != nil {
		return errors.Wrapf(err, "updating %s", v.remote)
	}
	return nil
}

// GetTags lists the repository's known tags.
func (v *VCSRepository) GetTags() ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ensureClonedLocked(); err != nil {
		return nil, err
	}
	tags, err := v.repo.Tags()
	if err != nil {
		return nil, errors.Wrapf(err, "listing tags for %s", v.remote)
	}
	return tags, nil
}

// ResolveRevision maps a tag or branch to the revision it currently points
// at.
func (v *VCSRepository) ResolveRevision(tagOrBranch string) (Revision, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ensureClonedLocked(); err != nil {
		return "", err
	}
	id, err := v.repo.CommitInfo(tagOrBranch)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s in %s", tagOrBranch, v.remote)
	}
	return Revision(id.Commit), nil
}

// OpenCheckout materializes a full working tree at rev under dir, using the
// local clone as the content source so no second network round trip is
// required.
func (v *VCSRepository) OpenCheckout(rev Revision, dir string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ensureClonedLocked(); err != nil {
		return err
	}
	if err := v.repo.UpdateVersion(string(rev)); err != nil {
		return errors.Wrapf(err, "checking out %s at %s", v.remote, rev)
	}

	cfg := &shutil.CopyTreeOptions{
		Symlinks:     true,
		CopyFunction: shutil.Copy,
		Ignore: func(src string, contents []os.FileInfo) (ignore []string) {
			for _, fi := range contents {
				if fi.IsDir() && fi.Name() == ".git" {
					ignore = append(ignore, fi.Name())
				}
			}
			return
		},
	}
	if err := shutil.CopyTree(v.repo.LocalPath(), dir, cfg); err != nil {
		return errors.Wrapf(err, "exporting %s at %s to %s", v.remote, rev, dir)
	}
	return nil
}

// OpenFileView returns a read-only view of the repository at rev, backed by
// a checkout into a scratch directory under the cache that is reused across
// calls for the same revision.
func (v *VCSRepository) OpenFileView(rev Revision) (fs.FS, error) {
	viewDir := filepath.Join(v.cacheDir, ".view-"+string(rev))
	if _, err := os.Stat(viewDir); os.IsNotExist(err) {
		if err := v.OpenCheckout(rev, viewDir); err != nil {
			return nil, err
		}
	}
	return os.DirFS(viewDir), nil
}

var _ RepositoryProvider = (*VCSRepository)(nil)
