package gps

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrUnsatisfiable is returned (wrapped) when a merge cannot produce a
// satisfiable ConstraintSet.
var ErrUnsatisfiable = errors.New("unsatisfiable constraint set")

// ConstraintSet maps each identity reached so far in a resolve to the
// Requirement placed on it. It is a persistent value: Merge returns a new
// set and leaves the receiver untouched, so a branch of the resolver can
// backtrack simply by discarding the ConstraintSet it built and resuming
// from the one it started with (§4.2, §9 "backtracking via persistent
// state").
type ConstraintSet struct {
	m map[PackageIdentity]Requirement
}

// NewConstraintSet returns the empty ConstraintSet.
func NewConstraintSet() ConstraintSet {
	return ConstraintSet{}
}

// Get returns the Requirement entered for id, or AnyVersions() if id has no
// entry (§3: "lookup of missing key returns versionSet(any)").
func (cs ConstraintSet) Get(id PackageIdentity) Requirement {
	if r, ok := cs.m[id]; ok {
		return r
	}
	return VersionedRequirement(AnyVersions())
}

// Len reports the number of identities with an entry in cs.
func (cs ConstraintSet) Len() int { return len(cs.m) }

// Identities returns cs's keys in a stable, sorted order.
func (cs ConstraintSet) Identities() []PackageIdentity {
	out := make([]PackageIdentity, 0, len(cs.m))
	for id := range cs.m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Merge returns a new ConstraintSet combining cs with the merge of req into
// id's existing entry, applying §4.2's three-case policy:
//
//  1. versionSet ∩ versionSet intersects the two sets; empty intersection is
//     unsatisfiable.
//  2. unversioned ∩ unversioned is permitted only when the two unversioned
//     requirements are structurally equal; the merged entry is the existing
//     one.
//  3. unversioned ∩ versionSet (either order) always yields unversioned.
func (cs ConstraintSet) Merge(id PackageIdentity, req Requirement) (ConstraintSet, error) {
	existing := cs.Get(id)
	merged, err := mergeRequirement(existing, req)
	if err != nil {
		return ConstraintSet{}, errors.Wrapf(err, "merging constraint for %s", id)
	}

	out := make(map[PackageIdentity]Requirement, len(cs.m)+1)
	for k, v := range cs.m {
		out[k] = v
	}
	out[id] = merged
	return ConstraintSet{m: out}, nil
}

// MergeSet merges every entry of other into cs in identity order, short-
// circuiting on the first unsatisfiable merge (§4.2: "merging a whole set
// into another is iterative merge; short-circuits on unsatisfiability").
func (cs ConstraintSet) MergeSet(other ConstraintSet) (ConstraintSet, error) {
	out := cs
	for _, id := range other.Identities() {
		var err error
		out, err = out.Merge(id, other.Get(id))
		if err != nil {
			return ConstraintSet{}, err
		}
	}
	return out, nil
}

func mergeRequirement(a, b Requirement) (Requirement, error) {
	switch {
	case !a.IsVersioned() && !b.IsVersioned():
		aExtras, _ := a.Extras()
		bExtras, _ := b.Extras()
		if !equalExtras(aExtras, bExtras) {
			return Requirement{}, errors.Wrap(ErrUnsatisfiable, "conflicting unversioned requirements")
		}
		return a, nil
	case !a.IsVersioned():
		return a, nil
	case !b.IsVersioned():
		return b, nil
	default:
		avs, _ := a.VersionSet()
		bvs, _ := b.VersionSet()
		merged := avs.Intersect(bvs)
		if merged.IsEmpty() {
			return Requirement{}, errors.Wrapf(ErrUnsatisfiable, "%s does not intersect %s", avs, bvs)
		}
		return VersionedRequirement(merged), nil
	}
}
