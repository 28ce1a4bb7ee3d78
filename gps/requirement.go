package gps

import "encoding/json"

// Requirement is what a manifest asks for a single dependency: either a
// VersionSet (the dependency must resolve to a version inside the set) or an
// unversioned requirement, which pins the dependency to edit-mode status and
// carries the edited package's own currently-declared dependencies as extra
// constraints to merge in (so that editing a package doesn't silently drop
// its dependency requirements from the solve).
type Requirement struct {
	versioned bool
	vs        VersionSet
	extras    []Constraint
}

// Constraint is a demand on a single identity: a PackageRef (so the resolver
// knows where to fetch it) paired with the Requirement placed on it.
type Constraint struct {
	Ref         PackageRef
	Requirement Requirement
}

// VersionedRequirement builds a Requirement satisfied by any version in vs.
func VersionedRequirement(vs VersionSet) Requirement {
	return Requirement{versioned: true, vs: vs}
}

// UnversionedRequirement builds a Requirement that takes this dependency out
// of version selection (edit mode), carrying extras as additional
// constraints to merge into the solve per §4.2's unversioned-dominates rule.
func UnversionedRequirement(extras []Constraint) Requirement {
	return Requirement{versioned: false, extras: extras}
}

// IsVersioned reports whether r constrains by VersionSet rather than by
// unversioned override.
func (r Requirement) IsVersioned() bool { return r.versioned }

// VersionSet returns r's VersionSet and true, if r is versioned.
func (r Requirement) VersionSet() (VersionSet, bool) {
	if !r.versioned {
		return VersionSet{}, false
	}
	return r.vs, true
}

// Extras returns r's extra constraints and true, if r is unversioned.
func (r Requirement) Extras() ([]Constraint, bool) {
	if r.versioned {
		return nil, false
	}
	return r.extras, true
}

// equalExtras reports whether two unversioned requirements' extra constraint
// lists are structurally equal, per §4.2 rule 2: identical unversioned
// requirements merge, differing ones are unsatisfiable. Order matters, since
// extras are derived deterministically from a single manifest read.
func equalExtras(a, b []Constraint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Ref.Identity() != b[i].Ref.Identity() {
			return false
		}
		if a[i].Requirement.versioned != b[i].Requirement.versioned {
			return false
		}
		if a[i].Requirement.versioned {
			if !a[i].Requirement.vs.Equal(b[i].Requirement.vs) {
				return false
			}
		} else if !equalExtras(a[i].Requirement.extras, b[i].Requirement.extras) {
			return false
		}
	}
	return true
}

// requirementDTO mirrors Requirement's unexported fields with exported ones,
// for the same reason versionSetDTO exists: Requirement needs to round-trip
// through the JSON-backed dependency cache (§4.5, §11) without losing its
// VersionSet or extras to "{}".
type requirementDTO struct {
	Versioned bool
	VS        VersionSet
	Extras    []Constraint
}

// MarshalJSON renders r via requirementDTO.
func (r Requirement) MarshalJSON() ([]byte, error) {
	return json.Marshal(requirementDTO{Versioned: r.versioned, VS: r.vs, Extras: r.extras})
}

// UnmarshalJSON restores r from the form MarshalJSON produced.
func (r *Requirement) UnmarshalJSON(data []byte) error {
	var dto requirementDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	*r = Requirement{versioned: dto.Versioned, vs: dto.VS, extras: dto.Extras}
	return nil
}

func (r Requirement) String() string {
	if r.versioned {
		return r.vs.String()
	}
	return "unversioned"
}
