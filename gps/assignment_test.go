package gps

import "testing"

// fakeContainer is a minimal Container for exercising AssignmentSet/resolver
// logic without a real repository.
type fakeContainer struct {
	id       PackageIdentity
	versions []Version
	deps     map[string][]Constraint // keyed by version string
	tags     map[string]string       // version string -> tag
	revs     map[string]Revision     // tag -> revision, for VersionForRevision
}

func (c *fakeContainer) Identity() PackageIdentity { return c.id }

func (c *fakeContainer) Versions(ToolsVersion) ([]Version, error) {
	return c.versions, nil
}

func (c *fakeContainer) GetTag(v Version) (string, bool) {
	t, ok := c.tags[v.String()]
	return t, ok
}

func (c *fakeContainer) Dependencies(v Version) ([]Constraint, error) {
	return c.deps[v.String()], nil
}

func (c *fakeContainer) VersionForRevision(rev Revision) (Version, bool, error) {
	for vs, tag := range c.tags {
		if c.revs[tag] == rev {
			v, _ := NewVersion(vs)
			return v, true, nil
		}
	}
	return Version{}, false, nil
}

var _ Container = (*fakeContainer)(nil)

func TestAssignmentSetBindAndLookup(t *testing.T) {
	c := &fakeContainer{id: "github.com/foo/bar"}
	as := NewAssignmentSet()
	as, err := as.Bind(c, Bound(mustVersion(t, "1.0.0")))
	if err != nil {
		t.Fatal(err)
	}
	gotC, gotB, ok := as.Lookup(c.id)
	if !ok || gotC != Container(c) || gotB.String() != "1.0.0" {
		t.Errorf("lookup mismatch: %v %v %v", gotC, gotB, ok)
	}
}

func TestAssignmentSetBindAgreeingTwiceIsNoop(t *testing.T) {
	c := &fakeContainer{id: "github.com/foo/bar"}
	as := NewAssignmentSet()
	as, err := as.Bind(c, Bound(mustVersion(t, "1.0.0")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := as.Bind(c, Bound(mustVersion(t, "1.0.0"))); err != nil {
		t.Errorf("agreeing re-bind should succeed, got %v", err)
	}
}

func TestAssignmentSetBindConflictErrors(t *testing.T) {
	c := &fakeContainer{id: "github.com/foo/bar"}
	as := NewAssignmentSet()
	as, err := as.Bind(c, Bound(mustVersion(t, "1.0.0")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := as.Bind(c, Bound(mustVersion(t, "2.0.0"))); err == nil {
		t.Error("conflicting re-bind of the same identity should error")
	}
}

func TestAssignmentSetBindExcluded(t *testing.T) {
	id := PackageIdentity("github.com/foo/bar")
	as := NewAssignmentSet()
	as, err := as.BindExcluded(id)
	if err != nil {
		t.Fatal(err)
	}
	_, b, ok := as.Lookup(id)
	if !ok || !b.IsExcluded() {
		t.Error("expected id to be bound excluded")
	}
}

func TestAssignmentSetIsPersistent(t *testing.T) {
	c := &fakeContainer{id: "github.com/foo/bar"}
	as1 := NewAssignmentSet()
	as2, err := as1.Bind(c, Bound(mustVersion(t, "1.0.0")))
	if err != nil {
		t.Fatal(err)
	}
	if as1.Len() != 0 {
		t.Error("original AssignmentSet must not be mutated by Bind")
	}
	if as2.Len() != 1 {
		t.Error("the returned AssignmentSet should carry the new binding")
	}
}

func TestAssignmentSetComplete(t *testing.T) {
	id := PackageIdentity("github.com/foo/bar")
	cs := NewConstraintSet()
	cs, _ = cs.Merge(id, VersionedRequirement(AnyVersions()))

	as := NewAssignmentSet()
	if as.Complete(cs) {
		t.Error("an unbound identity should make the assignment incomplete")
	}

	as, err := as.BindExcluded(id)
	if err != nil {
		t.Fatal(err)
	}
	if !as.Complete(cs) {
		t.Error("excluded binding against a versionSet(any) constraint should be complete")
	}
}

func TestAssignmentSetCompleteExcludedWithRealConstraintIsIncomplete(t *testing.T) {
	id := PackageIdentity("github.com/foo/bar")
	cs := NewConstraintSet()
	cs, _ = cs.Merge(id, VersionedRequirement(ExactVersion(mustVersion(t, "1.0.0"))))

	as := NewAssignmentSet()
	as, err := as.BindExcluded(id)
	if err != nil {
		t.Fatal(err)
	}
	if as.Complete(cs) {
		t.Error("excluded binding against a real constraint should be incomplete")
	}
}
