package workspace

import (
	"os"

	"github.com/golang/depgraph/gps"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// MirrorConfig implements gps.Mirrors, rewriting a canonical repository
// location to an alternate fetch URL, backed by a mirrors.toml file
// (grounded on registry_config.go's TOML-backed config pattern).
type MirrorConfig struct {
	// forward maps an original location to its mirror.
	forward map[string]string
	// reverse maps a mirror back to its original location, for Unrewrite.
	reverse map[string]string
}

type rawMirrorConfig struct {
	Mirrors map[string]string `toml:"mirrors"`
}

// LoadMirrorConfig reads path (a TOML document with a top-level `[mirrors]`
// table mapping original locations to mirror URLs). A missing file yields an
// empty, no-op MirrorConfig.
func LoadMirrorConfig(path string) (*MirrorConfig, error) {
	mc := &MirrorConfig{forward: map[string]string{}, reverse: map[string]string{}}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return mc, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading mirror config %s", path)
	}

	var raw rawMirrorConfig
	if err := toml.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing mirror config %s", path)
	}
	for orig, mirror := range raw.Mirrors {
		mc.forward[orig] = mirror
		mc.reverse[mirror] = orig
	}
	return mc, nil
}

// Rewrite implements gps.Mirrors.
func (mc *MirrorConfig) Rewrite(location string) string {
	if m, ok := mc.forward[location]; ok {
		return m
	}
	return location
}

// Unrewrite implements gps.Mirrors.
func (mc *MirrorConfig) Unrewrite(location string) (string, bool) {
	orig, ok := mc.reverse[location]
	return orig, ok
}

// Save writes mc back out as TOML, sorted by original location for
// diff-stable output.
func (mc *MirrorConfig) Save(path string) error {
	raw := rawMirrorConfig{Mirrors: mc.forward}
	b, err := toml.Marshal(raw)
	if err != nil {
		return errors.Wrap(err, "encoding mirror config")
	}
	return os.WriteFile(path, b, 0644)
}

var _ gps.Mirrors = (*MirrorConfig)(nil)
