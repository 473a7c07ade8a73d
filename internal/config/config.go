// Package config loads the shell manifest (rill.toml).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the manifest file looked up from the working
// directory upward.
const ManifestName = "rill.toml"

// Manifest is the decoded shell configuration.
type Manifest struct {
	// ModulePaths are directories searched for modules given by bare
	// name, in order.
	ModulePaths []string `toml:"module_paths"`

	// MaxDiagnostics caps how many parse diagnostics are kept.
	MaxDiagnostics int `toml:"max_diagnostics"`

	// Cache toggles the on-disk module metadata cache.
	Cache bool `toml:"cache"`
}

// Default returns the manifest used when no rill.toml exists.
func Default() Manifest {
	return Manifest{
		MaxDiagnostics: 100,
		Cache:          true,
	}
}

// Load decodes a manifest file, filling unset keys with defaults.
func Load(path string) (Manifest, error) {
	m := Default()
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Manifest{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if m.MaxDiagnostics <= 0 {
		m.MaxDiagnostics = Default().MaxDiagnostics
	}
	return m, nil
}

// Find walks from dir upward looking for the manifest. Returns the
// manifest path and whether one was found.
func Find(dir string) (string, bool, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false, err
	}
	for {
		candidate := filepath.Join(abs, ManifestName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", false, nil
		}
		abs = parent
	}
}

// LoadOrDefault resolves the manifest for dir, falling back to
// defaults when none exists.
func LoadOrDefault(dir string) (Manifest, error) {
	path, found, err := Find(dir)
	if err != nil {
		return Manifest{}, err
	}
	if !found {
		return Default(), nil
	}
	return Load(path)
}
