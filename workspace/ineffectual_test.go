package workspace

import (
	"testing"

	"github.com/golang/depgraph/gps"
)

func TestFindIneffectualConstraints(t *testing.T) {
	used := gps.PackageRef{Location: "github.com/used/pkg"}
	unused := gps.PackageRef{Location: "github.com/unused/pkg"}
	manifest := gps.Manifest{
		Dependencies: []gps.Constraint{
			{Ref: used, Requirement: gps.VersionedRequirement(gps.AnyVersions())},
			{Ref: unused, Requirement: gps.VersionedRequirement(gps.AnyVersions())},
		},
	}
	direct := map[gps.PackageIdentity]bool{used.Identity(): true}

	got := FindIneffectualConstraints(manifest, direct)
	if len(got) != 1 || got[0] != unused.Identity() {
		t.Errorf("got %v, want [%s]", got, unused.Identity())
	}
}

func TestFindIneffectualConstraintsNoneWhenAllUsed(t *testing.T) {
	ref := gps.PackageRef{Location: "github.com/used/pkg"}
	manifest := gps.Manifest{
		Dependencies: []gps.Constraint{{Ref: ref, Requirement: gps.VersionedRequirement(gps.AnyVersions())}},
	}
	direct := map[gps.PackageIdentity]bool{ref.Identity(): true}

	got := FindIneffectualConstraints(manifest, direct)
	if len(got) != 0 {
		t.Errorf("expected no ineffectual constraints, got %v", got)
	}
}
