// Package driver performs file-system loading for module parsing:
// reading a module's files off disk before the (serial) parse runs.
package driver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ModuleExt is the extension module source files carry.
const ModuleExt = ".rill"

// FileContent is one file read off disk.
type FileContent struct {
	Path    string
	Content []byte
}

// ReadModuleFile reads a single module source file.
func ReadModuleFile(path string) (FileContent, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return FileContent{}, err
	}
	return FileContent{Path: path, Content: content}, nil
}

// ReadModuleDir reads every module source file directly inside dir,
// concurrently, and returns them in deterministic path order. Only the
// reads run in parallel; parsing stays serial.
func ReadModuleDir(dir string) ([]FileContent, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ModuleExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	results := make([]FileContent, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			fc, err := ReadModuleFile(path)
			if err != nil {
				return err
			}
			results[i] = fc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
