package gps

import "encoding/json"

// setVariant enumerates VersionSet's four shapes (§3, §4.1).
type setVariant int

const (
	setAny setVariant = iota
	setEmpty
	setExact
	setRange
)

// VersionSet specifies which versions of a package are acceptable. It is one
// of four shapes: any version, no version, exactly one version, or a
// half-open range [lo, hi). VersionSet is a value type; its zero value is
// setAny's zero-valued fields, so use AnyVersions() rather than a bare
// VersionSet{} to be explicit.
type VersionSet struct {
	variant  setVariant
	exact    Version
	lo, hi   Version
	rev      Revision // set when variant==setExact and this is a bare-revision exact match
	isRevExt bool
}

// AnyVersions returns the VersionSet containing every version.
func AnyVersions() VersionSet { return VersionSet{variant: setAny} }

// NoVersions returns the empty VersionSet.
func NoVersions() VersionSet { return VersionSet{variant: setEmpty} }

// ExactVersion returns the VersionSet containing only v.
func ExactVersion(v Version) VersionSet { return VersionSet{variant: setExact, exact: v} }

// ExactRevision returns the VersionSet containing only the package snapshot
// at revision r. It is handled identically to ExactVersion by the algebra,
// but carries the bare Revision so the resolver's revision-pinning hack
// (§12) can recognize it and seed a container's version queue with it
// directly, since ListVersions never surfaces bare revisions.
func ExactRevision(r Revision) VersionSet {
	return VersionSet{variant: setExact, rev: r, isRevExt: true}
}

// RangeVersions returns the half-open VersionSet [lo, hi). If lo >= hi the
// result collapses to NoVersions(), per §4.1.
func RangeVersions(lo, hi Version) VersionSet {
	if !lo.Less(hi) {
		return NoVersions()
	}
	return VersionSet{variant: setRange, lo: lo, hi: hi}
}

// IsAny reports whether vs is the wildcard set.
func (vs VersionSet) IsAny() bool { return vs.variant == setAny }

// IsEmpty reports whether vs contains no versions.
func (vs VersionSet) IsEmpty() bool { return vs.variant == setEmpty }

// Bounds returns vs's half-open bounds and true, if vs is a range.
func (vs VersionSet) Bounds() (lo, hi Version, ok bool) {
	if vs.variant != setRange {
		return Version{}, Version{}, false
	}
	return vs.lo, vs.hi, true
}

// Exact returns the single version vs matches and true, if vs is an exact
// set over a parsed semver Version (as opposed to a bare revision).
func (vs VersionSet) Exact() (Version, bool) {
	if vs.variant == setExact && !vs.isRevExt {
		return vs.exact, true
	}
	return Version{}, false
}

// ExactRevisionValue returns the bare revision vs matches and true, if vs was
// built with ExactRevision.
func (vs VersionSet) ExactRevisionValue() (Revision, bool) {
	if vs.variant == setExact && vs.isRevExt {
		return vs.rev, true
	}
	return "", false
}

// Contains reports whether v is a member of vs.
func (vs VersionSet) Contains(v Version) bool {
	switch vs.variant {
	case setAny:
		return true
	case setEmpty:
		return false
	case setExact:
		if vs.isRevExt {
			return false // a bare revision is never matched by a parsed semver Version
		}
		return vs.exact.Equal(v)
	case setRange:
		return !v.Less(vs.lo) && v.Less(vs.hi)
	default:
		return false
	}
}

// ContainsRevision reports whether r is a member of vs; only an
// ExactRevision set (or AnyVersions) can contain a bare revision.
func (vs VersionSet) ContainsRevision(r Revision) bool {
	switch vs.variant {
	case setAny:
		return true
	case setExact:
		return vs.isRevExt && vs.rev == r
	default:
		return false
	}
}

// Equal reports whether vs and other denote the same set: same variant, and
// for exact/range, equal endpoints.
func (vs VersionSet) Equal(other VersionSet) bool {
	if vs.variant != other.variant {
		return false
	}
	switch vs.variant {
	case setExact:
		if vs.isRevExt || other.isRevExt {
			return vs.isRevExt == other.isRevExt && vs.rev == other.rev
		}
		return vs.exact.Equal(other.exact)
	case setRange:
		return vs.lo.Equal(other.lo) && vs.hi.Equal(other.hi)
	default:
		return true
	}
}

// Intersect computes the intersection of vs and other, per §4.1's
// commutative tie-break table:
//
//	(any, X)          -> X
//	(empty, _)        -> empty
//	(exact v, S)      -> S contains v ? exact v : empty
//	(range r1,range2) -> range(max lo, min hi), collapsing to empty if lo>=hi
func (vs VersionSet) Intersect(other VersionSet) VersionSet {
	switch {
	case vs.variant == setEmpty || other.variant == setEmpty:
		return NoVersions()
	case vs.variant == setAny:
		return other
	case other.variant == setAny:
		return vs
	case vs.variant == setExact:
		return intersectExactWith(vs, other)
	case other.variant == setExact:
		return intersectExactWith(other, vs)
	case vs.variant == setRange && other.variant == setRange:
		lo := vs.lo
		if lo.Less(other.lo) {
			lo = other.lo
		}
		hi := vs.hi
		if other.hi.Less(hi) {
			hi = other.hi
		}
		return RangeVersions(lo, hi)
	default:
		return NoVersions()
	}
}

// intersectExactWith intersects an exact-variant set e with an arbitrary set
// other (which is known not to be any/empty/exact at the call sites above,
// though the bare-revision path is handled directly here).
func intersectExactWith(e, other VersionSet) VersionSet {
	if e.isRevExt {
		if other.ContainsRevision(e.rev) || other.variant == setAny {
			return e
		}
		return NoVersions()
	}
	if other.Contains(e.exact) {
		return e
	}
	return NoVersions()
}

// versionSetDTO mirrors VersionSet's unexported fields with exported ones,
// so encoding/json has something to walk; VersionSet itself stays a value
// type with no exported state.
type versionSetDTO struct {
	Variant  setVariant
	Exact    Version
	Lo       Version
	Hi       Version
	Rev      Revision
	IsRevExt bool
}

// MarshalJSON renders vs via versionSetDTO, so a VersionSet (and anything
// that embeds one, like Requirement) round-trips through the dependency
// cache instead of degenerating to "{}".
func (vs VersionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(versionSetDTO{
		Variant:  vs.variant,
		Exact:    vs.exact,
		Lo:       vs.lo,
		Hi:       vs.hi,
		Rev:      vs.rev,
		IsRevExt: vs.isRevExt,
	})
}

// UnmarshalJSON restores vs from the form MarshalJSON produced.
func (vs *VersionSet) UnmarshalJSON(data []byte) error {
	var dto versionSetDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	*vs = VersionSet{
		variant:  dto.Variant,
		exact:    dto.Exact,
		lo:       dto.Lo,
		hi:       dto.Hi,
		rev:      dto.Rev,
		isRevExt: dto.IsRevExt,
	}
	return nil
}

// String renders vs for diagnostics and manifest round-tripping.
func (vs VersionSet) String() string {
	switch vs.variant {
	case setAny:
		return "*"
	case setEmpty:
		return "<none>"
	case setExact:
		if vs.isRevExt {
			return string(vs.rev)
		}
		return vs.exact.String()
	case setRange:
		return "[" + vs.lo.String() + "," + vs.hi.String() + ")"
	default:
		return "?"
	}
}
