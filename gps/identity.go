package gps

import "strings"

// PackageKind distinguishes how a PackageRef's Location should be
// interpreted.
type PackageKind int

const (
	// KindRemote is a package hosted in a remote VCS repository, addressed by
	// URL.
	KindRemote PackageKind = iota
	// KindLocal is a package that lives on the local filesystem, addressed by
	// path.
	KindLocal
	// KindRegistry is a package resolved through a registry client rather
	// than a direct VCS URL.
	KindRegistry
)

// PackageIdentity is the canonical key for a package: a normalized
// host+path string, insensitive to case and to the handful of URL-ish
// spellings (scheme, trailing ".git", trailing slash) that all name the same
// repository. Two PackageRefs that differ only in those ways, or that are
// related by a mirror rewrite, normalize to the same PackageIdentity.
type PackageIdentity string

// normalizeLocation collapses scheme, case, and trailing decoration out of a
// VCS URL or import path so that equivalent spellings compare equal.
func normalizeLocation(loc string) string {
	s := strings.ToLower(strings.TrimSpace(loc))
	for _, scheme := range []string{"https://", "http://", "git://", "ssh://", "git+ssh://"} {
		s = strings.TrimPrefix(s, scheme)
	}
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")
	if i := strings.Index(s, "@"); i >= 0 && strings.Contains(s[:i], ":") == false {
		// strip a "user@host" prefix some git remotes carry
		s = s[i+1:]
	}
	s = strings.Replace(s, ":", "/", 1)
	return s
}

// PackageRef is an addressable package: the identity it resolves to, plus
// enough information (kind + location) to actually go get it. Identity is a
// deterministic function of Kind+Location, modulo the mirror table (see
// Mirrors).
type PackageRef struct {
	Kind     PackageKind
	Location string
	// Mirrors, if non-nil, is consulted to rewrite Location to an effective
	// fetch URL before identity is derived. It is the caller's
	// responsibility to supply the same table consistently; the PinStore
	// relies on this to round-trip original URLs (see pin.Store).
	Mirrors Mirrors
}

// Mirrors rewrites a canonical location to the address it should actually be
// fetched from. A nil Mirrors or a miss is the identity rewrite (no-op).
type Mirrors interface {
	Rewrite(location string) string
	// Unrewrite inverts Rewrite for a location that was previously rewritten,
	// returning the original and true, or ("", false) if loc doesn't
	// correspond to any configured mirror target.
	Unrewrite(location string) (string, bool)
}

// Identity derives this ref's canonical PackageIdentity.
func (r PackageRef) Identity() PackageIdentity {
	loc := r.Location
	if r.Mirrors != nil {
		loc = r.Mirrors.Rewrite(loc)
	}
	switch r.Kind {
	case KindLocal:
		return PackageIdentity("local:" + strings.TrimSuffix(strings.TrimSpace(loc), "/"))
	default:
		return PackageIdentity(normalizeLocation(loc))
	}
}

// EffectiveLocation returns the location this ref should actually be fetched
// from, after mirror rewriting.
func (r PackageRef) EffectiveLocation() string {
	if r.Mirrors != nil {
		return r.Mirrors.Rewrite(r.Location)
	}
	return r.Location
}
