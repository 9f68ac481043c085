package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/scriptc"
	"github.com/deepnoodle-ai/scriptc/artifact"
	"github.com/deepnoodle-ai/scriptc/hbc"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.Nil(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.Nil(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSelftest(t *testing.T) {
	var out bytes.Buffer
	require.Nil(t, selftest(context.Background(), scriptc.New(), &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "Generated "), lines[0])
	require.True(t, strings.HasPrefix(lines[1], "Error x.js:1:"), lines[1])
}

func TestBuildSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.js")
	writeFile(t, src, "function twice(n) { return n * 2 }\nvar r = twice(4);")
	storeDir := filepath.Join(dir, "store")

	_, err := run(t, "build", src, "--store", "file://"+storeDir)
	require.Nil(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "app.hbc"))
	require.Nil(t, err)
	f, err := hbc.Read(data)
	require.Nil(t, err)
	require.Equal(t, []string{"global", "twice"}, f.Module.FunctionNames())

	store, err := artifact.NewFileStore(storeDir)
	require.Nil(t, err)
	published, err := store.Get(context.Background(), artifact.Digest(data))
	require.Nil(t, err)
	require.Equal(t, data, published)
}

func TestBuildManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.js"), "var a = 1;")
	writeFile(t, filepath.Join(dir, "src", "b.js"), "var b = 2;")
	manifest := filepath.Join(dir, "scriptc.toml")
	writeFile(t, manifest, `[project]
name = "demo"

[[targets]]
source = "src/a.js"

[[targets]]
name = "second"
source = "src/b.js"
`)
	_, err := run(t, "build", "--manifest", manifest)
	require.Nil(t, err)
	for _, name := range []string{"a.hbc", "second.hbc"} {
		_, err := os.Stat(filepath.Join(dir, "build", name))
		require.Nil(t, err, name)
	}
}

func TestBuildFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.js")
	writeFile(t, src, "var x = 1 + ;")
	_, err := run(t, "build", src)
	require.EqualError(t, err, "1 of 1 targets failed")
	_, statErr := os.Stat(filepath.Join(dir, "bad.hbc"))
	require.True(t, os.IsNotExist(statErr))
}

func TestInspect(t *testing.T) {
	res := scriptc.Compile(scriptc.Request{Source: []byte("function f() {}\x00"), SourceURL: "f.js"})
	defer res.Free()
	require.Nil(t, res.Err())

	info, err := inspect(res.Bytecode())
	require.Nil(t, err)
	require.Equal(t, res.Size(), info.Size)
	require.Equal(t, uint32(1), info.Version)
	require.True(t, info.DebugInfo)
	require.False(t, info.SourceMap)
	require.Equal(t, []string{"f.js"}, info.Files)
	require.Len(t, info.Functions, 2)
	require.Equal(t, "f", info.Functions[1].Name)

	_, err = inspect([]byte("short"))
	require.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.js")
	writeFile(t, good, "let a = 1;")
	_, err := run(t, "check", good)
	require.Nil(t, err)

	bad := filepath.Join(dir, "bad.js")
	writeFile(t, bad, "return 1;")
	_, err = run(t, "check", bad, "--format", "json")
	require.IsType(t, &exitError{}, err)

	_, err = run(t, "check", good, "--format", "xml")
	require.EqualError(t, err, "unknown output format: xml")
}

func TestDisCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "d.js")
	writeFile(t, src, "function g(x) { return x + 1 }")

	out, err := run(t, "dis", src, "--func", "g")
	require.Nil(t, err)
	require.Contains(t, out, "LOAD_FAST")
	require.Contains(t, out, "RETURN_VALUE")

	_, err = run(t, "dis", src, "--func", "missing")
	require.EqualError(t, err, `function "missing" not found`)
}
