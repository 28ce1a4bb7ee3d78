package workspace

import (
	"os"
	"path/filepath"

	"github.com/golang/depgraph/gps"
	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

// protectedEntries is the set clean never removes, relative to dataDir
// (§4.8 "clean deletes everything in the data directory except the
// protected set").
var protectedEntries = map[string]bool{
	reposDir:              true,
	checkoutsDir:          true,
	"workspace-state.json": true,
}

// Clean deletes everything in the data directory except the protected set
// {repositories, checkouts, workspace-state.json}.
func (w *Workspace) Clean() error {
	entries, err := godirwalk.ReadDirents(w.dataDir, nil)
	if err != nil {
		return errors.Wrapf(err, "listing %s", w.dataDir)
	}
	for _, e := range entries {
		if protectedEntries[e.Name()] {
			continue
		}
		target := filepath.Join(w.dataDir, e.Name())
		if w.delegate != nil {
			w.delegate.Removing(target)
		}
		if err := os.RemoveAll(target); err != nil {
			return errors.Wrapf(err, "removing %s", target)
		}
	}
	return nil
}

// Reset clears the managed-dependency map, discards the repository cache,
// removes the entire data directory, and recreates the mandatory
// subdirectories, for a start-from-scratch resolve. The BoltDB dependency
// cache is closed before dataDir is removed and reopened against the
// recreated repositories/ subdirectory, so w.cache never outlives the file
// it was backed by.
func (w *Workspace) Reset() error {
	w.containers.Close()
	if err := w.cache.Close(); err != nil {
		return errors.Wrap(err, "closing dependency cache")
	}

	w.state = &State{path: w.state.path, deps: make(map[gps.PackageIdentity]ManagedDependency)}
	if err := os.RemoveAll(w.dataDir); err != nil {
		return errors.Wrapf(err, "removing data directory %s", w.dataDir)
	}
	for _, sub := range []string{reposDir, checkoutsDir, editsDir} {
		if err := os.MkdirAll(filepath.Join(w.dataDir, sub), 0755); err != nil {
			return errors.Wrapf(err, "recreating %s", sub)
		}
	}

	cache, err := gps.OpenBoltDependencyCache(filepath.Join(w.dataDir, reposDir))
	if err != nil {
		return errors.Wrap(err, "reopening dependency cache")
	}
	w.cache = cache
	w.containers = gps.NewContainerProvider(w.containerFactory, filepath.Join(w.dataDir, reposDir))

	return w.state.Save()
}
