// Package external declares the pluggable collaborators this module treats
// as out of scope: the build driver, command-line surface, toolchain
// detection, registry client, and signing/archiver utilities never appear
// here at all. What remains is the one interface that sits above gps:
// turning resolved manifests into a compile graph. The lower-level
// collaborators gps.Container itself drives (manifest loading, repository
// access, tools-version detection) are declared directly on gps, and are
// re-exported here under the same names so callers have one place to look.
package external

import "github.com/golang/depgraph/gps"

// ManifestLoader reads dependency declarations out of a package's manifest
// file at a given revision.
type ManifestLoader = gps.ManifestLoader

// RepositoryProvider clones, opens, and reads from a single upstream
// repository.
type RepositoryProvider = gps.RepositoryProvider

// ToolsVersionLoader reads the declared tools-version out of a package's
// local filesystem view.
type ToolsVersionLoader = gps.ToolsVersionLoader

// Manifest is the set of dependency declarations a ManifestLoader produces.
type Manifest = gps.Manifest

// PackageGraph is the compile graph a PackageGraphLoader assembles from
// resolved manifests. Its shape is owned entirely by the caller; the core
// treats it as an opaque result.
type PackageGraph interface{}

// PackageGraphLoader turns a set of root and external manifests into a
// PackageGraph ready for a build driver to consume.
type PackageGraphLoader interface {
	Load(rootManifests, externalManifests []Manifest) (PackageGraph, error)
}
