package gps

import "io/fs"

// ToolsVersion is the declared minimum toolchain version a manifest or root
// requires. Comparison is a simple ordinal: higher means newer.
type ToolsVersion int

// Manifest is the set of dependency declarations a ManifestLoader produces
// for a single package at a single revision.
type Manifest struct {
	ToolsVersion ToolsVersion
	Dependencies []Constraint
}

// ManifestLoader reads dependency declarations out of a package's manifest
// file at a given revision (§4.5, §6).
type ManifestLoader interface {
	Load(packagePath, baseURL string, version Version, filesystem fs.FS) (Manifest, error)
}

// RepositoryProvider clones, opens, and reads from a single upstream
// repository. An instance is scoped to one PackageRef (§4.5, §6).
type RepositoryProvider interface {
	Clone() error
	Open() error
	OpenCheckout(rev Revision, dir string) error
	OpenFileView(rev Revision) (fs.FS, error)
	ResolveRevision(tagOrBranch string) (Revision, error)
	GetTags() ([]string, error)
}

// ToolsVersionLoader reads the declared tools-version out of the local
// filesystem view of a package.
type ToolsVersionLoader interface {
	Load(filesystem fs.FS) (ToolsVersion, error)
}

// RepositoryProviderFactory opens a RepositoryProvider scoped to ref. A
// ContainerProvider is configured with one of these so it can construct a
// fresh RepositoryProvider the first time an identity is observed.
type RepositoryProviderFactory func(ref PackageRef, cacheDir string) (RepositoryProvider, error)
