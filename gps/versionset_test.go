package gps

import "testing"

func TestVersionSetContains(t *testing.T) {
	v1 := mustVersion(t, "1.0.0")
	v2 := mustVersion(t, "2.0.0")
	v3 := mustVersion(t, "3.0.0")

	if !AnyVersions().Contains(v1) {
		t.Error("AnyVersions should contain every version")
	}
	if NoVersions().Contains(v1) {
		t.Error("NoVersions should contain nothing")
	}
	if !ExactVersion(v2).Contains(v2) || ExactVersion(v2).Contains(v1) {
		t.Error("ExactVersion should contain only its own version")
	}

	r := RangeVersions(v1, v3)
	if !r.Contains(v1) {
		t.Error("range should contain its lo bound")
	}
	if r.Contains(v3) {
		t.Error("range should not contain its hi bound (half-open)")
	}
	if !r.Contains(v2) {
		t.Error("range should contain a version strictly between its bounds")
	}
}

func TestRangeVersionsCollapsesWhenInverted(t *testing.T) {
	v1 := mustVersion(t, "1.0.0")
	v2 := mustVersion(t, "2.0.0")
	r := RangeVersions(v2, v1)
	if !r.IsEmpty() {
		t.Error("RangeVersions(hi, lo) should collapse to NoVersions")
	}
}

func TestVersionSetIntersect(t *testing.T) {
	v1 := mustVersion(t, "1.0.0")
	v2 := mustVersion(t, "2.0.0")
	v3 := mustVersion(t, "3.0.0")
	v4 := mustVersion(t, "4.0.0")

	cases := []struct {
		name     string
		a, b     VersionSet
		wantKind string // "any", "empty", "exact", "range"
	}{
		{"any ∩ any", AnyVersions(), AnyVersions(), "any"},
		{"any ∩ exact", AnyVersions(), ExactVersion(v1), "exact"},
		{"empty ∩ any", NoVersions(), AnyVersions(), "empty"},
		{"exact ∩ exact match", ExactVersion(v1), ExactVersion(v1), "exact"},
		{"exact ∩ exact mismatch", ExactVersion(v1), ExactVersion(v2), "empty"},
		{"range ∩ range overlap", RangeVersions(v1, v3), RangeVersions(v2, v4), "range"},
		{"range ∩ range disjoint", RangeVersions(v1, v2), RangeVersions(v3, v4), "empty"},
	}
	for _, c := range cases {
		got := c.a.Intersect(c.b)
		var gotKind string
		switch {
		case got.IsAny():
			gotKind = "any"
		case got.IsEmpty():
			gotKind = "empty"
		default:
			if _, ok := got.Exact(); ok {
				gotKind = "exact"
			} else {
				gotKind = "range"
			}
		}
		if gotKind != c.wantKind {
			t.Errorf("%s: got kind %s, want %s", c.name, gotKind, c.wantKind)
		}
	}
}

func TestVersionSetIntersectCommutative(t *testing.T) {
	v1 := mustVersion(t, "1.0.0")
	v2 := mustVersion(t, "3.0.0")
	a := RangeVersions(v1, v2)
	b := ExactVersion(mustVersion(t, "2.0.0"))
	ab := a.Intersect(b)
	ba := b.Intersect(a)
	if ab.IsEmpty() != ba.IsEmpty() {
		t.Fatalf("intersect should be commutative in emptiness, got %v vs %v", ab, ba)
	}
	av, _ := ab.Exact()
	bv, _ := ba.Exact()
	if !av.Equal(bv) {
		t.Errorf("intersect should be commutative in value, got %s vs %s", av, bv)
	}
}

func TestVersionSetIntersectAssociative(t *testing.T) {
	v1 := mustVersion(t, "1.0.0")
	v2 := mustVersion(t, "2.0.0")
	v3 := mustVersion(t, "3.0.0")
	v4 := mustVersion(t, "4.0.0")

	a := RangeVersions(v1, v4)
	b := RangeVersions(v2, v4)
	c := ExactVersion(v3)

	left := a.Intersect(b).Intersect(c)
	right := a.Intersect(b.Intersect(c))

	if left.IsEmpty() != right.IsEmpty() {
		t.Fatalf("intersect should be associative in emptiness, got %v vs %v", left, right)
	}
	lv, lok := left.Exact()
	rv, rok := right.Exact()
	if lok != rok || (lok && !lv.Equal(rv)) {
		t.Errorf("intersect should be associative in value, got %v vs %v", left, right)
	}
}

// TestEmptyIntersectIsAbsorbing checks that once two version sets produce an
// empty intersection, intersecting that result with any further set stays
// empty -- a resolve that hits an unsatisfiable pair never needs to check
// whether adding a third constraint could somehow recover satisfiability.
func TestEmptyIntersectIsAbsorbing(t *testing.T) {
	v1 := mustVersion(t, "1.0.0")
	v2 := mustVersion(t, "2.0.0")
	v3 := mustVersion(t, "3.0.0")

	empty := ExactVersion(v1).Intersect(ExactVersion(v2))
	if !empty.IsEmpty() {
		t.Fatal("expected two disjoint exact versions to intersect to empty")
	}

	if !empty.Intersect(AnyVersions()).IsEmpty() {
		t.Error("empty ∩ any should stay empty")
	}
	if !empty.Intersect(ExactVersion(v3)).IsEmpty() {
		t.Error("empty ∩ exact should stay empty")
	}
	if !empty.Intersect(RangeVersions(v1, v3)).IsEmpty() {
		t.Error("empty ∩ range should stay empty")
	}
}

func TestExactRevisionIntersect(t *testing.T) {
	rev := Revision("deadbeefcafefeed")
	ers := ExactRevision(rev)
	if !ers.Intersect(AnyVersions()).ContainsRevision(rev) {
		t.Error("ExactRevision ∩ Any should still contain the revision")
	}
	if !ers.ContainsRevision(rev) {
		t.Error("ExactRevision should contain its own revision")
	}
	if ers.Contains(mustVersion(t, "1.0.0")) {
		t.Error("ExactRevision should never contain a parsed semver Version")
	}
	other := ExactVersion(mustVersion(t, "1.0.0"))
	if !ers.Intersect(other).IsEmpty() {
		t.Error("a bare-revision exact set should not intersect an unrelated exact semver set")
	}
}
