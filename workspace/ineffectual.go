package workspace

import (
	"sort"

	"github.com/golang/depgraph/gps"
)

// FindIneffectualConstraints reports constraints in manifest that name an
// identity not present in directDeps: these place a requirement the solver
// will never consult, since nothing actually imports that package
// (grounded on project.go's FindIneffectualConstraints). It's a diagnostic,
// not a solve-blocking error.
func FindIneffectualConstraints(manifest gps.Manifest, directDeps map[gps.PackageIdentity]bool) []gps.PackageIdentity {
	var ineffectual []gps.PackageIdentity
	for _, c := range manifest.Dependencies {
		if !directDeps[c.Ref.Identity()] {
			ineffectual = append(ineffectual, c.Ref.Identity())
		}
	}
	sort.Slice(ineffectual, func(i, j int) bool { return ineffectual[i] < ineffectual[j] })
	return ineffectual
}
