// Package pin persists the resolver's chosen versions to a pin file
// (Package.resolved, schema 1), so a repeat loadPackageGraph can skip
// resolution entirely when nothing has changed (§4.7, §6).
package pin

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"syscall"

	"github.com/golang/depgraph/gps"
	"github.com/pkg/errors"
)

const schemaVersion = 1

// State is the concrete outcome a Pin records for one identity: either a
// tagged version, a branch name, or a bare revision, always alongside the
// revision it bottoms out at.
type State struct {
	Version  string `json:"version,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Revision string `json:"revision"`
}

// Pin is one entry in the pin file.
type Pin struct {
	Package       string `json:"package"`
	RepositoryURL string `json:"repositoryURL"`
	State         State  `json:"state"`
	Reason        string `json:"reason,omitempty"`

	mirrorOriginal string // original (pre-mirror) URL, never serialized directly
}

type rawFile struct {
	Pins []Pin `json:"pins"`
}

// Store is the in-memory pin table plus the on-disk file it round-trips
// through. It is not safe for concurrent use; the workspace that owns it is
// single-writer by contract (§5).
type Store struct {
	path    string
	mirrors gps.Mirrors
	pinsMap map[gps.PackageIdentity]Pin
}

// Open loads path if it exists (an absent file is treated as empty state),
// rewriting every entry's RepositoryURL from its original form to the
// mirror's effective URL so that mirror-config changes never invalidate the
// file (§4.7 "mirror handling on round-trip").
func Open(path string, mirrors gps.Mirrors) (*Store, error) {
	s := &Store{path: path, mirrors: mirrors, pinsMap: make(map[gps.PackageIdentity]Pin)}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading pin file %s", path)
	}

	var raw rawFile
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, &gps.CorruptPinFileError{Detail: err.Error()}
	}

	for _, p := range raw.Pins {
		original := p.RepositoryURL
		effective := original
		if mirrors != nil {
			effective = mirrors.Rewrite(original)
		}
		p.mirrorOriginal = original
		p.RepositoryURL = effective

		ref := gps.PackageRef{Kind: gps.KindRemote, Location: effective}
		id := ref.Identity()
		if _, dup := s.pinsMap[id]; dup {
			return nil, &gps.DuplicatedPinError{Identity: id}
		}
		s.pinsMap[id] = p
	}
	return s, nil
}

// Pin records state for ref, overwriting any existing entry for its
// identity.
func (s *Store) Pin(ref gps.PackageRef, state State, reason string) {
	id := ref.Identity()
	s.pinsMap[id] = Pin{
		Package:        string(id),
		RepositoryURL:  ref.EffectiveLocation(),
		State:          state,
		Reason:         reason,
		mirrorOriginal: ref.Location,
	}
}

// Add inserts p verbatim (used when reconstructing pins from a source other
// than a live PackageRef, e.g. replaying a prior resolve's AssignmentSet).
func (s *Store) Add(identity gps.PackageIdentity, p Pin) {
	s.pinsMap[identity] = p
}

// UnpinAll clears every entry.
func (s *Store) UnpinAll() {
	s.pinsMap = make(map[gps.PackageIdentity]Pin)
}

// Get returns identity's pin and true, if pinned.
func (s *Store) Get(identity gps.PackageIdentity) (Pin, bool) {
	p, ok := s.pinsMap[identity]
	return p, ok
}

// Len reports how many identities are pinned.
func (s *Store) Len() int { return len(s.pinsMap) }

// SaveState writes the pin file atomically, sorted by identity ascending.
// If the table is empty the file is deleted instead (§4.7's save policy).
func (s *Store) SaveState() error {
	if len(s.pinsMap) == 0 {
		err := os.Remove(s.path)
		if err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing empty pin file %s", s.path)
		}
		return nil
	}

	ids := make([]gps.PackageIdentity, 0, len(s.pinsMap))
	for id := range s.pinsMap {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	raw := rawFile{Pins: make([]Pin, len(ids))}
	for i, id := range ids {
		p := s.pinsMap[id]
		out := p
		// write back the original, pre-mirror URL so a later mirror-config
		// change doesn't spuriously perturb the file.
		if p.mirrorOriginal != "" {
			out.RepositoryURL = p.mirrorOriginal
		}
		raw.Pins[i] = out
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(raw); err != nil {
		return errors.Wrap(err, "encoding pin file")
	}

	return writeFileAtomic(s.path, buf.Bytes())
}

// writeFileAtomic writes contents to a sibling temp file and renames it into
// place, falling back to copy+remove across a cross-device rename error.
func writeFileAtomic(path string, contents []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pin-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp pin file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(contents); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "writing temp pin file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "closing temp pin file")
	}
	if err := renameWithFallback(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "installing pin file")
	}
	return nil
}

// renameWithFallback attempts os.Rename, falling back to a copy when src and
// dest are on different devices (syscall.EXDEV), matching the on-disk
// state-mutation pattern the workspace layer uses throughout (§4.9).
func renameWithFallback(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return err
	}
	terr, ok := err.(*os.LinkError)
	if !ok || terr.Err != syscall.EXDEV {
		return err
	}

	data, rerr := os.ReadFile(src)
	if rerr != nil {
		return rerr
	}
	if werr := os.WriteFile(dest, data, 0644); werr != nil {
		return werr
	}
	return os.Remove(src)
}
