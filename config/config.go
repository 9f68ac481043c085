// Package config loads scriptc.toml build manifests.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
)

// FileName is the manifest file name looked up by Find.
const FileName = "scriptc.toml"

// tomlManifest is the manifest as it is encoded in TOML.
type tomlManifest struct {
	Project *tomlProject  `toml:"project"`
	Targets []*tomlTarget `toml:"targets"`
}

type tomlProject struct {
	Name      string   `toml:"name"`
	OutputDir string   `toml:"output-dir,omitempty"`
	Stores    []string `toml:"stores,omitempty"`
}

type tomlTarget struct {
	Name      string `toml:"name"`
	Source    string `toml:"source"`
	SourceMap string `toml:"source-map,omitempty"`
	URL       string `toml:"url,omitempty"`
	Output    string `toml:"output,omitempty"`
}

// Manifest is a validated build manifest. Paths are absolute.
type Manifest struct {
	Name      string
	Root      string // directory holding the manifest
	OutputDir string
	Stores    []string
	Targets   []Target
}

// Target is one script to compile.
type Target struct {
	Name      string
	Source    string
	SourceMap string // empty when the target has no source map
	URL       string // source URL recorded in diagnostics and debug info
	Output    string
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data, filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes manifest text. Relative paths resolve against root.
func Parse(data []byte, root string) (*Manifest, error) {
	tm := &tomlManifest{}
	if err := toml.Unmarshal(data, tm); err != nil {
		return nil, err
	}
	if tm.Project == nil || tm.Project.Name == "" {
		return nil, errors.New("missing project name")
	}
	if len(tm.Targets) == 0 {
		return nil, errors.New("no targets defined")
	}

	m := &Manifest{
		Name:      tm.Project.Name,
		Root:      root,
		OutputDir: resolve(root, tm.Project.OutputDir),
		Stores:    tm.Project.Stores,
	}
	if tm.Project.OutputDir == "" {
		m.OutputDir = filepath.Join(root, "build")
	}

	seen := map[string]bool{}
	for i, tt := range tm.Targets {
		if tt.Source == "" {
			return nil, fmt.Errorf("target %d: missing source", i+1)
		}
		name := tt.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(tt.Source), filepath.Ext(tt.Source))
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate target name %q", name)
		}
		seen[name] = true

		target := Target{
			Name:      name,
			Source:    resolve(root, tt.Source),
			SourceMap: resolve(root, tt.SourceMap),
			URL:       tt.URL,
			Output:    tt.Output,
		}
		if target.URL == "" {
			target.URL = filepath.ToSlash(tt.Source)
		}
		if target.Output == "" {
			target.Output = name + ".hbc"
		}
		target.Output = resolve(m.OutputDir, target.Output)
		m.Targets = append(m.Targets, target)
	}
	return m, nil
}

func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// Find searches dir and its parents for a manifest and returns its path.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found", FileName)
		}
		dir = parent
	}
}
