// Package workspace implements the root-registration, managed-dependency
// table, and loadPackageGraph routine described in §4.8 of the
// specification: the layer that turns a resolver run into on-disk state and
// keeps that state self-repairing across partial failures (§4.9).
package workspace

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/golang/depgraph/gps"
	"github.com/pkg/errors"
)

const stateSchemaVersion = 1

// ManagedDependency is one row of the workspace-state file: the resolver's
// chosen outcome for a single dependency, persisted so the next
// loadPackageGraph can tell what's already satisfied without re-resolving.
type ManagedDependency struct {
	RepositoryURL   string             `json:"repositoryURL"`
	Subpath         string             `json:"subpath"`
	CurrentVersion  *string            `json:"currentVersion"`
	CurrentRevision *string            `json:"currentRevision"`
	BasedOn         *ManagedDependency `json:"basedOn"`
}

// Identity derives the PackageIdentity this row's RepositoryURL resolves to.
func (m ManagedDependency) Identity() gps.PackageIdentity {
	return gps.PackageRef{Kind: gps.KindRemote, Location: m.RepositoryURL}.Identity()
}

type rawState struct {
	Version      int                 `json:"version"`
	Dependencies []ManagedDependency `json:"dependencies"`
}

// State is the in-memory form of workspace-state.json: a map from identity
// to its ManagedDependency row, for O(1) lookup during loadPackageGraph.
type State struct {
	path string
	deps map[gps.PackageIdentity]ManagedDependency
}

// LoadState reads path, treating a missing file as empty state (§6). A
// present file with an unrecognized schema version is rejected with
// CorruptStateFileError, per §4.8 "discarded on mismatch" (discarding means
// the caller gets a clear error to act on, not a silent reset).
func LoadState(path string) (*State, error) {
	s := &State{path: path, deps: make(map[gps.PackageIdentity]ManagedDependency)}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading workspace state %s", path)
	}

	var raw rawState
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, &gps.CorruptStateFileError{Detail: err.Error()}
	}
	if raw.Version != stateSchemaVersion {
		return nil, &gps.CorruptStateFileError{Detail: "unknown schema version"}
	}

	for _, d := range raw.Dependencies {
		s.deps[d.Identity()] = d
	}
	return s, nil
}

// Get returns identity's managed row and true, if tracked.
func (s *State) Get(identity gps.PackageIdentity) (ManagedDependency, bool) {
	d, ok := s.deps[identity]
	return d, ok
}

// Set records or replaces identity's managed row.
func (s *State) Set(identity gps.PackageIdentity, dep ManagedDependency) {
	s.deps[identity] = dep
}

// Remove drops identity's row, if present.
func (s *State) Remove(identity gps.PackageIdentity) {
	delete(s.deps, identity)
}

// All returns every managed identity, unordered.
func (s *State) All() map[gps.PackageIdentity]ManagedDependency {
	out := make(map[gps.PackageIdentity]ManagedDependency, len(s.deps))
	for k, v := range s.deps {
		out[k] = v
	}
	return out
}

// Save writes the workspace-state file. Rows are sorted by identity first,
// since s.deps is a map and iteration order is otherwise unspecified; this
// keeps the output diffable across runs that change no dependency.
func (s *State) Save() error {
	raw := rawState{Version: stateSchemaVersion, Dependencies: make([]ManagedDependency, 0, len(s.deps))}
	for _, d := range s.deps {
		raw.Dependencies = append(raw.Dependencies, d)
	}
	sort.Slice(raw.Dependencies, func(i, j int) bool {
		return raw.Dependencies[i].Identity() < raw.Dependencies[j].Identity()
	})

	f, err := os.Create(s.path)
	if err != nil {
		return errors.Wrapf(err, "creating workspace state %s", s.path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raw); err != nil {
		return errors.Wrap(err, "encoding workspace state")
	}
	return nil
}
