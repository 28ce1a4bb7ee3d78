package gps

import "testing"

func TestConstraintSetGetMissingIsAny(t *testing.T) {
	cs := NewConstraintSet()
	req := cs.Get(PackageIdentity("github.com/foo/bar"))
	vs, versioned := req.VersionSet()
	if !versioned || !vs.IsAny() {
		t.Error("a missing identity's Requirement should be versionSet(any)")
	}
}

func TestConstraintSetMergeVersionSetIntersects(t *testing.T) {
	id := PackageIdentity("github.com/foo/bar")
	cs := NewConstraintSet()
	cs, err := cs.Merge(id, VersionedRequirement(RangeVersions(mustVersion(t, "1.0.0"), mustVersion(t, "3.0.0"))))
	if err != nil {
		t.Fatal(err)
	}
	cs, err = cs.Merge(id, VersionedRequirement(RangeVersions(mustVersion(t, "2.0.0"), mustVersion(t, "4.0.0"))))
	if err != nil {
		t.Fatal(err)
	}
	lo, hi, ok := cs.Get(id).VersionSetBounds(t)
	if !ok {
		t.Fatal("expected a range result")
	}
	if lo.String() != "2.0.0" || hi.String() != "3.0.0" {
		t.Errorf("got [%s,%s), want [2.0.0,3.0.0)", lo, hi)
	}
}

func TestConstraintSetMergeEmptyIntersectionErrors(t *testing.T) {
	id := PackageIdentity("github.com/foo/bar")
	cs := NewConstraintSet()
	cs, err := cs.Merge(id, VersionedRequirement(ExactVersion(mustVersion(t, "1.0.0"))))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cs.Merge(id, VersionedRequirement(ExactVersion(mustVersion(t, "2.0.0")))); err == nil {
		t.Error("expected disjoint exact constraints to be unsatisfiable")
	}
}

func TestConstraintSetMergeUnversionedDominates(t *testing.T) {
	id := PackageIdentity("github.com/foo/bar")
	cs := NewConstraintSet()
	cs, err := cs.Merge(id, VersionedRequirement(RangeVersions(mustVersion(t, "1.0.0"), mustVersion(t, "2.0.0"))))
	if err != nil {
		t.Fatal(err)
	}
	cs, err = cs.Merge(id, UnversionedRequirement(nil))
	if err != nil {
		t.Fatal(err)
	}
	if cs.Get(id).IsVersioned() {
		t.Error("unversioned should dominate a prior versionSet constraint")
	}
}

func TestConstraintSetMergeUnversionedMustAgree(t *testing.T) {
	id := PackageIdentity("github.com/foo/bar")
	extrasA := []Constraint{{Ref: PackageRef{Location: "a"}, Requirement: VersionedRequirement(AnyVersions())}}
	extrasB := []Constraint{{Ref: PackageRef{Location: "b"}, Requirement: VersionedRequirement(AnyVersions())}}

	cs := NewConstraintSet()
	cs, err := cs.Merge(id, UnversionedRequirement(extrasA))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cs.Merge(id, UnversionedRequirement(extrasB)); err == nil {
		t.Error("structurally different unversioned requirements should be unsatisfiable")
	}
	if _, err := cs.Merge(id, UnversionedRequirement(extrasA)); err != nil {
		t.Error("identical unversioned requirements should merge cleanly")
	}
}

// VersionSetBounds is a small test-only helper exposing Requirement's range,
// since production code never needs the bounds directly (only Contains).
func (r Requirement) VersionSetBounds(t *testing.T) (lo, hi Version, ok bool) {
	t.Helper()
	vs, versioned := r.VersionSet()
	if !versioned {
		return Version{}, Version{}, false
	}
	return vs.Bounds()
}
