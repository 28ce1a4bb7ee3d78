package gps

import (
	"github.com/golang/depgraph/internal/tracelog"
	"github.com/pkg/errors"
)

// ContainerGetter looks up or builds the Container for a PackageRef.
// *ContainerProvider is the production implementation; the resolver only
// depends on this narrower interface so tests can supply fakes.
type ContainerGetter interface {
	GetContainer(ref PackageRef, onFirstObserved func(Container)) (Container, error)
}

// ResolveOptions configures a single Resolve call.
type ResolveOptions struct {
	// ToolsVersion filters out versions whose manifest declares a newer
	// tools-version than this (§4.5).
	ToolsVersion ToolsVersion

	// Exclusions force these identities to an excluded binding up front,
	// bypassing container lookup entirely. Resolve fails if any later turns
	// out to carry a constraint other than versionSet(any) (§4.4, §3).
	Exclusions []PackageIdentity

	// Trace, if non-nil, receives a line per version tried and per
	// backtrack, for diagnosing why a resolve failed or chose what it chose.
	Trace *tracelog.Logger
}

// Resolve runs the depth-first, newest-first backtracking solver described
// in §4.4 against roots, returning the first satisfying AssignmentSet found.
// Resolve only ever returns the first solution along the traversal order; it
// does not expose the rest of the lazy sequence, matching the "only the
// first element is consumed" public contract.
func Resolve(roots []Constraint, containers ContainerGetter, opts ResolveOptions) (AssignmentSet, error) {
	assign := NewAssignmentSet()
	for _, id := range opts.Exclusions {
		var err error
		assign, err = assign.BindExcluded(id)
		if err != nil {
			return AssignmentSet{}, err
		}
	}

	cs := NewConstraintSet()
	for _, c := range roots {
		var err error
		cs, err = cs.Merge(c.Ref.Identity(), c.Requirement)
		if err != nil {
			return AssignmentSet{}, &PackageRequirementUnsatisfiableError{Identity: c.Ref.Identity(), Requirement: c.Requirement}
		}
	}

	st := &resolveState{containers: containers, toolsVersion: opts.ToolsVersion, trace: opts.Trace}
	finalAssign, finalCS, err := st.resolveQueue(roots, assign, cs)
	if err != nil {
		if st.firstIOErr != nil {
			return AssignmentSet{}, st.firstIOErr
		}
		return AssignmentSet{}, errors.Wrap(ErrUnsatisfiable, err.Error())
	}

	induced, err := finalAssign.InducedConstraints()
	if err != nil {
		return AssignmentSet{}, err
	}
	finalCS, err = finalCS.MergeSet(induced)
	if err != nil {
		return AssignmentSet{}, errors.Wrap(ErrUnsatisfiable, err.Error())
	}
	if !finalAssign.Complete(finalCS) {
		return AssignmentSet{}, errors.New("resolver produced an incomplete assignment")
	}
	return finalAssign, nil
}

// resolveState carries the parts of a resolve that are shared read-only
// across the whole recursive walk: where to fetch containers from, and the
// first non-recoverable I/O error seen in any subtree, which §4.4 says to
// re-raise only if the walk never finds a solution at all.
type resolveState struct {
	containers   ContainerGetter
	toolsVersion ToolsVersion
	firstIOErr   error
	trace        *tracelog.Logger
}

func (st *resolveState) recordIOErr(err error) {
	if st.firstIOErr == nil {
		st.firstIOErr = err
	}
}

// resolveQueue implements §4.4 steps 2-3: pop the next pending Constraint,
// merge it into the running ConstraintSet, bind (or verify) its identity,
// and recurse over the rest of the queue plus whatever new Constraints that
// binding's dependencies add. Every return is either a complete
// (assignment, constraintSet) for the whole queue, or an error that tells
// the caller to try the next candidate (a version, or nothing left to try).
func (st *resolveState) resolveQueue(queue []Constraint, assign AssignmentSet, cs ConstraintSet) (AssignmentSet, ConstraintSet, error) {
	if len(queue) == 0 {
		return assign, cs, nil
	}
	head, rest := queue[0], queue[1:]
	id := head.Ref.Identity()

	cs2, err := cs.Merge(id, head.Requirement)
	if err != nil {
		return AssignmentSet{}, ConstraintSet{}, err
	}

	if container, bound, ok := assign.Lookup(id); ok {
		if !bindingSatisfies(bound, cs2.Get(id)) {
			return AssignmentSet{}, ConstraintSet{}, errors.Errorf("%s: binding %s does not satisfy %s", id, bound, cs2.Get(id))
		}
		_ = container // already bound; nothing further to fetch for it
		return st.resolveQueue(rest, assign, cs2)
	}

	container, err := st.containers.GetContainer(head.Ref, nil)
	if err != nil {
		st.recordIOErr(err)
		return AssignmentSet{}, ConstraintSet{}, err
	}

	req := cs2.Get(id)
	if extras, ok := req.Extras(); ok {
		assign2, err := assign.Bind(container, Unversioned())
		if err != nil {
			return AssignmentSet{}, ConstraintSet{}, err
		}
		return st.resolveQueue(appendConstraints(rest, extras), assign2, cs2)
	}

	vs, _ := req.VersionSet()

	if rev, ok := vs.ExactRevisionValue(); ok {
		v, found, err := container.VersionForRevision(rev)
		if err != nil {
			st.recordIOErr(err)
			return AssignmentSet{}, ConstraintSet{}, err
		}
		if !found {
			return AssignmentSet{}, ConstraintSet{}, errors.Errorf("%s: no tag resolves to revision %s", id, rev)
		}
		return st.tryVersion(container, v, rest, assign, cs2)
	}

	versions, err := container.Versions(st.toolsVersion)
	if err != nil {
		st.recordIOErr(err)
		return AssignmentSet{}, ConstraintSet{}, err
	}

	lastErr := errors.Errorf("%s: no version satisfies %s", id, vs)
	for _, v := range versions {
		if !vs.Contains(v) {
			continue
		}
		st.trace.LogTracefln("trying %s@%s", id, v)
		result, resultCS, err := st.tryVersion(container, v, rest, assign, cs2)
		if err == nil {
			return result, resultCS, nil
		}
		st.trace.LogTracefln("backtrack %s@%s: %s", id, v, err)
		lastErr = err
	}
	return AssignmentSet{}, ConstraintSet{}, lastErr
}

// tryVersion binds container to v and recurses with v's dependencies merged
// onto the front of the remaining queue, preserving pre-order, depth-first
// traversal: a dependency's own subtree is fully explored before the solver
// advances to whatever came after container in the outer queue.
func (st *resolveState) tryVersion(container Container, v Version, rest []Constraint, assign AssignmentSet, cs ConstraintSet) (AssignmentSet, ConstraintSet, error) {
	deps, err := container.Dependencies(v)
	if err != nil {
		st.recordIOErr(err)
		return AssignmentSet{}, ConstraintSet{}, err
	}
	assign2, err := assign.Bind(container, Bound(v))
	if err != nil {
		return AssignmentSet{}, ConstraintSet{}, err
	}
	return st.resolveQueue(appendConstraints(rest, deps), assign2, cs)
}

func appendConstraints(rest, more []Constraint) []Constraint {
	out := make([]Constraint, 0, len(rest)+len(more))
	out = append(out, more...)
	out = append(out, rest...)
	return out
}

// bindingSatisfies reports whether an already-bound identity's binding still
// satisfies req, the constraint just merged in for it (§4.4: "identical
// identities reached via two paths must agree on binding; otherwise the
// merge fails and the enumerator advances"). This is also what makes a
// dependency cycle (A->B->A) terminate rather than loop: the second time A
// is popped off the queue, it's already bound, so this check (not a second
// container walk) decides the branch's fate.
func bindingSatisfies(bound BoundVersion, req Requirement) bool {
	switch {
	case bound.IsUnversioned():
		// ConstraintSet.Merge's unversioned-dominates rule guarantees req is
		// unversioned too once any occurrence of this identity went
		// unversioned; equality of the extras was already checked there.
		return true
	case bound.IsExcluded():
		vs, versioned := req.VersionSet()
		return versioned && vs.IsAny()
	default:
		v, _ := bound.Version()
		vs, versioned := req.VersionSet()
		if !versioned {
			return false
		}
		return vs.Contains(v)
	}
}
