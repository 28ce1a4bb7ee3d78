package gps

import (
	"sort"

	"github.com/pkg/errors"
)

// bindingKind distinguishes BoundVersion's three shapes (§3).
type bindingKind int

const (
	boundVersion bindingKind = iota
	boundUnversioned
	boundExcluded
)

// BoundVersion is the resolver's chosen outcome for one identity: bound to a
// specific version, bound unversioned (edit mode), or excluded entirely.
// excluded is only a legal binding when no other package places any
// constraint (other than any) on that identity — it exists for the
// Exclusions input to ResolveOptions, not as something the solver produces
// on its own.
type BoundVersion struct {
	kind bindingKind
	v    Version
}

// Bound returns the BoundVersion binding an identity to v.
func Bound(v Version) BoundVersion { return BoundVersion{kind: boundVersion, v: v} }

// Unversioned returns the BoundVersion marking an identity as edit-mode.
func Unversioned() BoundVersion { return BoundVersion{kind: boundUnversioned} }

// Excluded returns the BoundVersion marking an identity as deliberately
// absent from the resolve.
func Excluded() BoundVersion { return BoundVersion{kind: boundExcluded} }

func (b BoundVersion) IsVersion() bool     { return b.kind == boundVersion }
func (b BoundVersion) IsUnversioned() bool { return b.kind == boundUnversioned }
func (b BoundVersion) IsExcluded() bool    { return b.kind == boundExcluded }

// Version returns b's bound version and true, if b is a version binding.
func (b BoundVersion) Version() (Version, bool) {
	if b.kind != boundVersion {
		return Version{}, false
	}
	return b.v, true
}

func (b BoundVersion) String() string {
	switch b.kind {
	case boundVersion:
		return b.v.String()
	case boundUnversioned:
		return "unversioned"
	default:
		return "excluded"
	}
}

// binding pairs a Container with the BoundVersion the resolver chose for it.
type binding struct {
	container Container
	bound     BoundVersion
}

// AssignmentSet maps every identity the resolver has bound so far to its
// Container and BoundVersion (§3, §4.3). Like ConstraintSet it is a
// persistent value: Bind returns a new set, leaving the receiver intact for
// backtracking.
type AssignmentSet struct {
	m map[PackageIdentity]binding
}

// NewAssignmentSet returns the empty AssignmentSet.
func NewAssignmentSet() AssignmentSet {
	return AssignmentSet{}
}

// Lookup returns id's binding and true, if id has been bound.
func (as AssignmentSet) Lookup(id PackageIdentity) (Container, BoundVersion, bool) {
	b, ok := as.m[id]
	return b.container, b.bound, ok
}

// Identities returns as's bound identities in a stable, sorted order.
func (as AssignmentSet) Identities() []PackageIdentity {
	out := make([]PackageIdentity, 0, len(as.m))
	for id := range as.m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len reports the number of bound identities.
func (as AssignmentSet) Len() int { return len(as.m) }

// Bind returns a new AssignmentSet with container's identity bound to
// bound. If that identity is already bound, the existing and new bindings
// must agree (§4.4 "identical identities reached via two paths must agree
// on binding; otherwise the merge fails").
func (as AssignmentSet) Bind(container Container, bound BoundVersion) (AssignmentSet, error) {
	id := container.Identity()
	if existing, ok := as.m[id]; ok {
		if !bindingsAgree(existing.bound, bound) {
			return AssignmentSet{}, errors.Errorf("%s: binding %s conflicts with existing binding %s", id, bound, existing.bound)
		}
		return as, nil
	}

	out := make(map[PackageIdentity]binding, len(as.m)+1)
	for k, v := range as.m {
		out[k] = v
	}
	out[id] = binding{container: container, bound: bound}
	return AssignmentSet{m: out}, nil
}

// BindExcluded returns a new AssignmentSet with id bound to Excluded,
// without requiring a Container — used to pre-seed ResolveOptions'
// Exclusions before the solver ever needs to fetch that identity's
// container. If id is already bound, the existing and new bindings must
// agree, exactly as in Bind.
func (as AssignmentSet) BindExcluded(id PackageIdentity) (AssignmentSet, error) {
	if existing, ok := as.m[id]; ok {
		if !bindingsAgree(existing.bound, Excluded()) {
			return AssignmentSet{}, errors.Errorf("%s: excluding conflicts with existing binding %s", id, existing.bound)
		}
		return as, nil
	}

	out := make(map[PackageIdentity]binding, len(as.m)+1)
	for k, v := range as.m {
		out[k] = v
	}
	out[id] = binding{bound: Excluded()}
	return AssignmentSet{m: out}, nil
}

func bindingsAgree(a, b BoundVersion) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind == boundVersion {
		return a.v.Equal(b.v)
	}
	return true
}

// InducedConstraints computes the ConstraintSet implied by every version(·)
// binding in as: for each, container.Dependencies(v) is fetched (cached) and
// merged in. unversioned and excluded bindings contribute nothing (§4.3).
func (as AssignmentSet) InducedConstraints() (ConstraintSet, error) {
	cs := NewConstraintSet()
	for _, id := range as.Identities() {
		b := as.m[id]
		v, ok := b.bound.Version()
		if !ok {
			continue
		}
		deps, err := b.container.Dependencies(v)
		if err != nil {
			return ConstraintSet{}, errors.Wrapf(err, "induced constraints for %s@%s", id, v)
		}
		for _, dep := range deps {
			var merr error
			cs, merr = cs.Merge(dep.Ref.Identity(), dep.Requirement)
			if merr != nil {
				return ConstraintSet{}, merr
			}
		}
	}
	return cs, nil
}

// Complete reports whether every identity present in constraints or induced
// has a non-excluded binding, per §4.4's completeness check. excluded is
// permitted only when that identity's entry in constraints is versionSet(any)
// (no residual constraint).
func (as AssignmentSet) Complete(constraints ConstraintSet) bool {
	for _, id := range constraints.Identities() {
		b, ok := as.m[id]
		if !ok {
			return false
		}
		if b.bound.IsExcluded() {
			req := constraints.Get(id)
			vs, versioned := req.VersionSet()
			if !versioned || !vs.IsAny() {
				return false
			}
		}
	}
	return true
}
