package workspace

import (
	"os"
	"path/filepath"

	"github.com/golang/depgraph/gps"
	"github.com/pkg/errors"
	shutil "github.com/termie/go-shutil"
)

// Edit puts identity into edit mode: its checkout is copied into a
// dedicated overlay directory under edits/, optionally checked out to
// revision (defaulting to its current one) and optionally given a new
// branch, so local changes can be made without the resolver ever
// overwriting them (§4.8 "edit").
func (w *Workspace) Edit(identity gps.PackageIdentity, name string, revision gps.Revision, branch string) error {
	dep, ok := w.state.Get(identity)
	if !ok {
		return &gps.PathNotRegisteredError{Path: string(identity)}
	}
	if dep.BasedOn != nil {
		return &gps.DependencyAlreadyInEditModeError{Identity: identity}
	}

	overlay := filepath.Join(w.dataDir, editsDir, name)
	if _, err := os.Stat(overlay); err == nil {
		return &gps.DependencyAlreadyInEditModeError{Identity: identity}
	}

	if err := shutil.CopyTree(dep.Subpath, overlay, nil); err != nil {
		return errors.Wrapf(err, "copying %s into edit overlay", identity)
	}

	repo, err := w.repoFactory(gps.PackageRef{Kind: gps.KindRemote, Location: dep.RepositoryURL}, overlay)
	if err != nil {
		return err
	}

	target := revision
	if target == "" && dep.CurrentRevision != nil {
		target = gps.Revision(*dep.CurrentRevision)
	}
	if target != "" {
		if err := repo.OpenCheckout(target, overlay); err != nil {
			return errors.Wrapf(err, "checking out %s at %s for edit", identity, target)
		}
	}

	if branch != "" {
		if err := createBranch(overlay, branch); err != nil {
			return err
		}
	}

	basedOn := dep
	w.state.Set(identity, ManagedDependency{
		RepositoryURL: dep.RepositoryURL,
		Subpath:       overlay,
		BasedOn:       &basedOn,
	})
	return w.state.Save()
}

// Unedit takes identity back out of edit mode, restoring the
// pre-edit managed dependency. Without forceRemove it refuses when the
// overlay has uncommitted changes or commits the underlying remote doesn't
// have, to avoid silently discarding work (§4.8 "unedit").
func (w *Workspace) Unedit(identity gps.PackageIdentity, forceRemove bool) error {
	dep, ok := w.state.Get(identity)
	if !ok || dep.BasedOn == nil {
		return &gps.DependencyNotInEditModeError{Identity: identity}
	}

	if !forceRemove {
		dirty, err := hasUncommittedChanges(dep.Subpath)
		if err != nil {
			return err
		}
		if dirty {
			return &gps.HasUncommittedChangesError{Path: dep.Subpath}
		}
		unpushed, err := hasUnpushedCommits(dep.Subpath)
		if err != nil {
			return err
		}
		if unpushed {
			return &gps.HasUnpushedCommitsError{Path: dep.Subpath}
		}
	}

	overlay := dep.Subpath
	restored := *dep.BasedOn
	w.state.Set(identity, restored)

	if err := os.RemoveAll(overlay); err != nil {
		return errors.Wrapf(err, "removing edit overlay for %s", identity)
	}
	if err := removeEditsRootIfEmpty(filepath.Join(w.dataDir, editsDir)); err != nil {
		return err
	}
	return w.state.Save()
}

func removeEditsRootIfEmpty(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return errors.Wrap(err, "reading edits directory")
	}
	if len(entries) > 0 {
		return nil
	}
	return os.Remove(root)
}
