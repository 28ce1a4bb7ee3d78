package workspace

import (
	"fmt"
	"sort"

	"github.com/golang/depgraph/gps"
	"github.com/pelletier/go-toml"
)

// PackageUpdate describes one identity whose managed-dependency row is
// changing from old to new.
type PackageUpdate struct {
	Identity gps.PackageIdentity
	Old      ManagedDependency
	New      ManagedDependency
}

// PackageStateDiff is computePackageStateChanges's result: the resolver
// output classified against the current managed-dependency table (§4.8).
type PackageStateDiff struct {
	Added     []gps.PackageIdentity
	Updated   []PackageUpdate
	Unchanged []gps.PackageIdentity
	Removed   []gps.PackageIdentity
}

// computePackageStateChanges walks assign and compares each binding to
// state's current table, classifying every identity as added, updated,
// unchanged, or removed. unversioned bindings (edit-mode) always map to
// unchanged; excluded is a programming error here, since Resolve never
// emits excluded for an identity that also appears in root dependencies
// without pre-seeding it via ResolveOptions.Exclusions.
func computePackageStateChanges(state *State, assign gps.AssignmentSet) PackageStateDiff {
	var diff PackageStateDiff

	seen := make(map[gps.PackageIdentity]bool)
	for _, id := range assign.Identities() {
		seen[id] = true
		_, bound, _ := assign.Lookup(id)

		switch {
		case bound.IsUnversioned():
			diff.Unchanged = append(diff.Unchanged, id)
		case bound.IsExcluded():
			panic(fmt.Sprintf("programming error: %s resolved to excluded outside ResolveOptions.Exclusions", id))
		default:
			v, _ := bound.Version()
			old, existed := state.Get(id)
			if !existed {
				diff.Added = append(diff.Added, id)
				continue
			}
			if old.CurrentVersion != nil && *old.CurrentVersion == v.String() {
				diff.Unchanged = append(diff.Unchanged, id)
				continue
			}
			newVer := v.String()
			diff.Updated = append(diff.Updated, PackageUpdate{
				Identity: id,
				Old:      old,
				New:      ManagedDependency{RepositoryURL: old.RepositoryURL, Subpath: old.Subpath, CurrentVersion: &newVer},
			})
		}
	}

	for id := range state.All() {
		if !seen[id] {
			diff.Removed = append(diff.Removed, id)
		}
	}

	sort.Slice(diff.Added, func(i, j int) bool { return diff.Added[i] < diff.Added[j] })
	sort.Slice(diff.Updated, func(i, j int) bool { return diff.Updated[i].Identity < diff.Updated[j].Identity })
	sort.Slice(diff.Unchanged, func(i, j int) bool { return diff.Unchanged[i] < diff.Unchanged[j] })
	sort.Slice(diff.Removed, func(i, j int) bool { return diff.Removed[i] < diff.Removed[j] })
	return diff
}

type tomlUpdate struct {
	Identity string `toml:"identity"`
	Old      string `toml:"old"`
	New      string `toml:"new"`
}

type tomlDiff struct {
	Added   []string     `toml:"added,omitempty"`
	Updated []tomlUpdate `toml:"updated,omitempty"`
	Removed []string     `toml:"removed,omitempty"`
}

// Format renders diff as a human-readable TOML report (§12's "solve-diff
// reporting", grounded on txn_writer.go's LockDiff/Format, using
// go-toml as the formatter in place of the teacher's own ad hoc string
// builder).
func (d PackageStateDiff) Format() (string, error) {
	out := tomlDiff{}
	for _, id := range d.Added {
		out.Added = append(out.Added, string(id))
	}
	for _, u := range d.Updated {
		oldVer, newVer := "?", "?"
		if u.Old.CurrentVersion != nil {
			oldVer = *u.Old.CurrentVersion
		}
		if u.New.CurrentVersion != nil {
			newVer = *u.New.CurrentVersion
		}
		out.Updated = append(out.Updated, tomlUpdate{Identity: string(u.Identity), Old: oldVer, New: newVer})
	}
	for _, id := range d.Removed {
		out.Removed = append(out.Removed, string(id))
	}

	b, err := toml.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
