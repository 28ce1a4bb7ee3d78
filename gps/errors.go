package gps

import "fmt"

// The error kinds §7 names for the core. Resolve and its callers return
// ErrUnsatisfiable (constraintset.go) wrapped with context via
// github.com/pkg/errors; the rest are concrete types so callers can
// errors.As them out of a wrapped chain.

// PackageRequirementUnsatisfiableError reports a specific constraint
// conflict detected up front, before any container was ever walked.
type PackageRequirementUnsatisfiableError struct {
	Identity    PackageIdentity
	Requirement Requirement
}

func (e *PackageRequirementUnsatisfiableError) Error() string {
	return fmt.Sprintf("requirement on %s is unsatisfiable: %s", e.Identity, e.Requirement)
}

// UnavailableRepositoryError reports a clone or fetch that failed in an
// unrecoverable way; it's what a Container's backing RepositoryProvider
// surfaces up through Versions/Dependencies when the repository itself
// can't be reached.
type UnavailableRepositoryError struct {
	Identity PackageIdentity
	Cause    error
}

func (e *UnavailableRepositoryError) Error() string {
	return fmt.Sprintf("repository for %s unavailable: %v", e.Identity, e.Cause)
}

func (e *UnavailableRepositoryError) Unwrap() error { return e.Cause }

// IncompatibleToolsVersionError reports a root manifest that demands a
// newer tools-version than the current one.
type IncompatibleToolsVersionError struct {
	Path     string
	Required ToolsVersion
	Current  ToolsVersion
}

func (e *IncompatibleToolsVersionError) Error() string {
	return fmt.Sprintf("%s requires tools-version %d, current is %d", e.Path, e.Required, e.Current)
}

// NoRegisteredPackagesError reports a workspace operation that requires at
// least one registered root but found none.
type NoRegisteredPackagesError struct{}

func (e *NoRegisteredPackagesError) Error() string { return "no registered root packages" }

// PathNotRegisteredError reports an unregister or lookup against a root
// path the workspace doesn't know about.
type PathNotRegisteredError struct {
	Path string
}

func (e *PathNotRegisteredError) Error() string {
	return fmt.Sprintf("%s is not a registered root package", e.Path)
}

// HasUncommittedChangesError blocks an unedit that would discard local
// work, unless the caller passes forceRemove.
type HasUncommittedChangesError struct {
	Path string
}

func (e *HasUncommittedChangesError) Error() string {
	return fmt.Sprintf("%s has uncommitted changes", e.Path)
}

// HasUnpushedCommitsError blocks an unedit that would discard commits no
// other clone has a copy of, unless the caller passes forceRemove.
type HasUnpushedCommitsError struct {
	Path string
}

func (e *HasUnpushedCommitsError) Error() string {
	return fmt.Sprintf("%s has unpushed commits", e.Path)
}

// DependencyNotInEditModeError reports an unedit against a dependency that
// was never put into edit mode.
type DependencyNotInEditModeError struct {
	Identity PackageIdentity
}

func (e *DependencyNotInEditModeError) Error() string {
	return fmt.Sprintf("%s is not in edit mode", e.Identity)
}

// DependencyAlreadyInEditModeError reports an edit against a dependency
// already edited.
type DependencyAlreadyInEditModeError struct {
	Identity PackageIdentity
}

func (e *DependencyAlreadyInEditModeError) Error() string {
	return fmt.Sprintf("%s is already in edit mode", e.Identity)
}

// BranchAlreadyExistsError reports an edit request asking for a branch name
// the overlay checkout already has.
type BranchAlreadyExistsError struct {
	Branch string
}

func (e *BranchAlreadyExistsError) Error() string {
	return fmt.Sprintf("branch %s already exists", e.Branch)
}

// CorruptPinFileError reports a pin file that failed to parse or that
// violated an invariant (e.g. a duplicate identity) on load.
type CorruptPinFileError struct {
	Detail string
}

func (e *CorruptPinFileError) Error() string { return "corrupt pin file: " + e.Detail }

// CorruptStateFileError reports a workspace-state file that failed to parse
// or carried an unknown schema version.
type CorruptStateFileError struct {
	Detail string
}

func (e *CorruptStateFileError) Error() string { return "corrupt workspace state file: " + e.Detail }

// DuplicatedPinError reports two pins resolving to the same identity on
// load (§4.7).
type DuplicatedPinError struct {
	Identity PackageIdentity
}

func (e *DuplicatedPinError) Error() string {
	return fmt.Sprintf("duplicate pin for %s", e.Identity)
}
