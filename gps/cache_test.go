package gps

import (
	"os"
	"testing"
)

func TestBoltDependencyCacheRoundTrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "gps-cache-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cache, err := OpenBoltDependencyCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	id := PackageIdentity("github.com/foo/bar")
	rev := Revision("deadbeefcafefeed")

	if _, found, err := cache.Get(id, rev); err != nil || found {
		t.Fatalf("expected a miss on an empty cache, got found=%v err=%v", found, err)
	}

	rangeLo := mustVersion(t, "1.0.0")
	rangeHi := mustVersion(t, "2.0.0")
	m := Manifest{
		ToolsVersion: 3,
		Dependencies: []Constraint{
			{Ref: PackageRef{Location: "github.com/baz/qux"}, Requirement: VersionedRequirement(AnyVersions())},
			{Ref: PackageRef{Location: "github.com/baz/range"}, Requirement: VersionedRequirement(RangeVersions(rangeLo, rangeHi))},
			{Ref: PackageRef{Location: "github.com/baz/edited"}, Requirement: UnversionedRequirement([]Constraint{
				{Ref: PackageRef{Location: "github.com/baz/extra"}, Requirement: VersionedRequirement(ExactVersion(rangeLo))},
			})},
		},
	}
	if err := cache.Put(id, rev, m); err != nil {
		t.Fatal(err)
	}

	got, found, err := cache.Get(id, rev)
	if err != nil || !found {
		t.Fatalf("expected a hit after Put, got found=%v err=%v", found, err)
	}
	if got.ToolsVersion != 3 || len(got.Dependencies) != 3 {
		t.Fatalf("round-tripped manifest mismatch: %+v", got)
	}
	if got.Dependencies[0].Ref.Location != "github.com/baz/qux" {
		t.Errorf("round-tripped dependency ref mismatch: %+v", got.Dependencies[0])
	}

	// The Requirement itself -- not just the exported Ref -- must survive the
	// round trip: Requirement, VersionSet, and Version carry only unexported
	// fields, so a cache that serialized them naively would silently come
	// back as a zero, unversioned Requirement.
	anyReq := got.Dependencies[0].Requirement
	if !anyReq.IsVersioned() {
		t.Fatal("round-tripped AnyVersions() requirement came back unversioned")
	}
	if vs, _ := anyReq.VersionSet(); !vs.IsAny() {
		t.Errorf("round-tripped AnyVersions() requirement lost its VersionSet: %v", vs)
	}

	rangeReq := got.Dependencies[1].Requirement
	vs, ok := rangeReq.VersionSet()
	if !ok {
		t.Fatal("round-tripped range requirement came back unversioned")
	}
	lo, hi, ok := vs.Bounds()
	if !ok || !lo.Equal(rangeLo) || !hi.Equal(rangeHi) {
		t.Errorf("round-tripped range requirement mismatch: lo=%v hi=%v ok=%v", lo, hi, ok)
	}

	editedReq := got.Dependencies[2].Requirement
	extras, ok := editedReq.Extras()
	if !ok {
		t.Fatal("round-tripped unversioned requirement came back versioned")
	}
	if len(extras) != 1 || extras[0].Ref.Location != "github.com/baz/extra" {
		t.Fatalf("round-tripped unversioned requirement lost its extras: %+v", extras)
	}
	extraVS, ok := extras[0].Requirement.VersionSet()
	if !ok {
		t.Fatal("round-tripped extra constraint came back unversioned")
	}
	if ev, exOk := extraVS.Exact(); !exOk || !ev.Equal(rangeLo) {
		t.Errorf("round-tripped extra constraint's exact version mismatch: %v", ev)
	}
}

func TestBoltDependencyCacheSeparatesIdentities(t *testing.T) {
	dir, err := os.MkdirTemp("", "gps-cache-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cache, err := OpenBoltDependencyCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	rev := Revision("deadbeefcafefeed")
	if err := cache.Put("a", rev, Manifest{ToolsVersion: 1}); err != nil {
		t.Fatal(err)
	}
	if err := cache.Put("ab", rev, Manifest{ToolsVersion: 2}); err != nil {
		t.Fatal(err)
	}
	m1, _, err := cache.Get("a", rev)
	if err != nil {
		t.Fatal(err)
	}
	m2, _, err := cache.Get("ab", rev)
	if err != nil {
		t.Fatal(err)
	}
	if m1.ToolsVersion == m2.ToolsVersion {
		t.Error("length-prefixed bucket keys should keep 'a' and 'ab' from colliding")
	}
}
