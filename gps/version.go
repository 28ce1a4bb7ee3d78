package gps

import (
	"encoding/json"
	"strings"

	"github.com/Masterminds/semver"
)

// Version is a semantic version: major, minor, patch, prerelease, and build
// metadata, with the total order semver defines (prerelease precedes the
// release of the same major.minor.patch).
type Version struct {
	sv *semver.Version
}

// NewVersion parses body (optionally prefixed with a leading "v") as a
// semantic version. An error is returned if body is not valid semver.
func NewVersion(body string) (Version, error) {
	sv, err := semver.NewVersion(strings.TrimPrefix(body, "v"))
	if err != nil {
		return Version{}, err
	}
	return Version{sv: sv}, nil
}

// String renders the version without a leading "v", e.g. "1.2.3-beta.1".
func (v Version) String() string {
	if v.sv == nil {
		return ""
	}
	return v.sv.String()
}

// IsZero reports whether v is the zero Version (no parsed semver).
func (v Version) IsZero() bool { return v.sv == nil }

// MarshalJSON renders v as its string form (empty string for the zero
// Version), so a Version round-trips through the dependency cache and any
// other JSON-backed persistence rather than degenerating to "{}" (semver.Version
// carries only unexported fields).
func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON parses the string form MarshalJSON produced, treating "" as
// the zero Version.
func (v *Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*v = Version{}
		return nil
	}
	parsed, err := NewVersion(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Major, Minor, Patch return the numeric core of the version.
func (v Version) Major() int64 { return v.sv.Major() }
func (v Version) Minor() int64 { return v.sv.Minor() }
func (v Version) Patch() int64 { return v.sv.Patch() }

// Prerelease returns the prerelease component, or "" if this is a release
// version.
func (v Version) Prerelease() string { return v.sv.Prerelease() }

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, using full semver precedence (prerelease sorts before its release).
func (v Version) Compare(other Version) int {
	return v.sv.Compare(other.sv)
}

// Less reports whether v sorts strictly before other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

// Equal reports whether v and other denote the same version.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// byVersionDescending sorts newest-first, the order the resolver always
// walks a container's versions in.
type byVersionDescending []Version

func (s byVersionDescending) Len() int      { return len(s) }
func (s byVersionDescending) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byVersionDescending) Less(i, j int) bool {
	return s[j].Less(s[i])
}

// taggedVersion pairs a parsed Version with the repository tag it came from,
// so that getTag() (§4.5) can do the reverse lookup and so that tie-breaks
// between tags mapping to the same semver can be resolved deterministically.
type taggedVersion struct {
	v   Version
	tag string
}

// components counts the dot-separated numeric/prerelease segments in a raw
// tag body (ignoring a leading "v"), used to tie-break tags that normalize to
// the same semantic version: prefer the tag with the most components, then
// prefer the one without a leading "v" (§4.5).
func components(tag string) int {
	body := strings.TrimPrefix(tag, "v")
	return len(strings.FieldsFunc(body, func(r rune) bool {
		return r == '.' || r == '-' || r == '+'
	}))
}

// pickCanonicalTag resolves a tie between multiple tags that parsed to an
// equal semantic version, per §4.5's tie-break rule.
func pickCanonicalTag(tags []string) string {
	best := tags[0]
	for _, t := range tags[1:] {
		switch {
		case components(t) > components(best):
			best = t
		case components(t) == components(best) && !strings.HasPrefix(t, "v") && strings.HasPrefix(best, "v"):
			best = t
		}
	}
	return best
}

// parseTagsToVersions parses each tag as a Version (stripping a leading
// "v"), silently dropping tags that aren't valid semver, and collapses
// tags that map to the same Version using pickCanonicalTag.
func parseTagsToVersions(tags []string) []taggedVersion {
	byVer := make(map[string][]string)
	var order []string
	parsed := make(map[string]Version)
	for _, t := range tags {
		v, err := NewVersion(t)
		if err != nil {
			continue
		}
		key := v.String()
		if _, seen := byVer[key]; !seen {
			order = append(order, key)
		}
		byVer[key] = append(byVer[key], t)
		parsed[key] = v
	}

	out := make([]taggedVersion, 0, len(order))
	for _, key := range order {
		out = append(out, taggedVersion{v: parsed[key], tag: pickCanonicalTag(byVer[key])})
	}
	return out
}

// Revision is an immutable, source-control-specific identifier (a commit
// hash) for a single snapshot of a repository. It participates in
// VersionSet.exact as a degenerate, non-semver version: Pin.state and
// ManagedDependency.currentRevision both ultimately bottom out at one.
type Revision string

func (r Revision) String() string { return string(r) }

// parseRevisionRequirement reports whether body looks like a bare revision
// (hex, at least 7 characters) rather than a semver body, matching the
// solver's "revision pinning hack" (§12 supplement, grounded in the
// teacher's solver.go Revision-constraint special case).
func parseRevisionRequirement(body string) (Revision, bool) {
	if len(body) < 7 {
		return "", false
	}
	for _, r := range body {
		if !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'f') && !(r >= 'A' && r <= 'F') {
			return "", false
		}
	}
	return Revision(body), true
}
