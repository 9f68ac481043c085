package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const manifest = `
[project]
name = "app"
stores = ["file://artifacts", "s3://builds/hbc"]

[[targets]]
name = "main"
source = "src/main.js"
source-map = "src/main.js.map"

[[targets]]
source = "src/worker.js"
url = "https://example.com/worker.js"
output = "/abs/worker.hbc"
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(manifest), "/proj")
	require.Nil(t, err)
	require.Equal(t, "app", m.Name)
	require.Equal(t, "/proj/build", m.OutputDir)
	require.Equal(t, []string{"file://artifacts", "s3://builds/hbc"}, m.Stores)
	require.Equal(t, []Target{
		{
			Name:      "main",
			Source:    "/proj/src/main.js",
			SourceMap: "/proj/src/main.js.map",
			URL:       "src/main.js",
			Output:    "/proj/build/main.hbc",
		},
		{
			Name:   "worker",
			Source: "/proj/src/worker.js",
			URL:    "https://example.com/worker.js",
			Output: "/abs/worker.hbc",
		},
	}, m.Targets)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   string
	}{
		{"no project", `[[targets]]
source = "a.js"`, "missing project name"},
		{"no targets", `[project]
name = "x"`, "no targets defined"},
		{"no source", `[project]
name = "x"
[[targets]]
name = "a"`, "target 1: missing source"},
		{"duplicate", `[project]
name = "x"
[[targets]]
source = "a.js"
[[targets]]
source = "lib/a.js"`, `duplicate target name "a"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), "/proj")
			require.EqualError(t, err, tt.err)
		})
	}

	_, err := Parse([]byte("[project"), "/proj")
	require.Error(t, err)
}

func TestLoadAndFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "lib")
	require.Nil(t, os.MkdirAll(nested, 0o755))
	path := filepath.Join(root, FileName)
	require.Nil(t, os.WriteFile(path, []byte(`[project]
name = "app"
output-dir = "out"
[[targets]]
source = "src/main.js"
`), 0o644))

	found, err := Find(nested)
	require.Nil(t, err)
	require.Equal(t, path, found)

	m, err := Load(found)
	require.Nil(t, err)
	require.Equal(t, root, m.Root)
	require.Equal(t, filepath.Join(root, "out", "main.hbc"), m.Targets[0].Output)

	_, err = Load(filepath.Join(root, "missing.toml"))
	require.Error(t, err)
}
