package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/apicatalog/pkg/compiler"
)

func TestCompileCommand_ToDirectory(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "catalogs")
	writeFile(t, src, "pets.yaml", petsYAML)
	writeFile(t, src, "nested/more-pets.yml", petsYAML)
	writeFile(t, src, "README.md", "not a description")

	env := newTestEnv()
	err := NewRootCommand(env.Env).Execute(context.Background(), []string{"compile", "-out", out, "-workers", "2", src})
	require.NoError(t, err)

	for _, name := range []string{"pets.catalog.json", "more-pets.catalog.json"} {
		data, err := os.ReadFile(filepath.Join(out, name))
		require.NoError(t, err, name)
		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Contains(t, doc, "Service")
	}
	assert.Empty(t, env.out.String())
	assert.Contains(t, env.logs.String(), "compiled")
}

func TestCompileCommand_Stdout(t *testing.T) {
	file := writeFile(t, t.TempDir(), "pets.yaml", petsYAML)

	env := newTestEnv()
	require.NoError(t, NewRootCommand(env.Env).Execute(context.Background(), []string{"compile", file}))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &doc))
	services := doc["Service"].([]interface{})
	assert.Equal(t, "Pets", services[0].(map[string]interface{})["title"])
}

func TestCompileCommand_Failures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pets.yaml", petsYAML)
	writeFile(t, dir, "broken.yaml", brokenYAML)

	env := newTestEnv()
	err := NewRootCommand(env.Env).Execute(context.Background(), []string{"compile", "-out", dir, dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 descriptions failed")
	assert.Contains(t, env.logs.String(), "broken_reference")

	_, err = os.Stat(filepath.Join(dir, "pets.catalog.json"))
	assert.NoError(t, err, "healthy files are still written")
	_, err = os.Stat(filepath.Join(dir, "broken.catalog.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestCompileCommand_NoInput(t *testing.T) {
	env := newTestEnv()
	err := NewRootCommand(env.Env).Execute(context.Background(), []string{"compile", t.TempDir()})
	assert.ErrorContains(t, err, "no descriptions found")

	err = NewRootCommand(env.Env).Execute(context.Background(), []string{"compile", "/does/not/exist.yaml"})
	assert.Error(t, err)
}

func TestCompileFiles_Cancelled(t *testing.T) {
	file := writeFile(t, t.TempDir(), "pets.yaml", petsYAML)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newTestEnv().runner(compiler.DefaultLimits())
	_, err := compileFiles(ctx, runner, []string{file, file}, "", 1, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectDescriptions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", "{}")
	writeFile(t, dir, "a.yaml", "")
	writeFile(t, dir, "a.catalog.json", "{}")
	writeFile(t, dir, "notes.txt", "")

	files, err := collectDescriptions([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.json")}, files)

	assert.Equal(t, filepath.Join("out", "a.catalog.json"), outputPath("out", "specs/a.yaml"))
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	pets := writeFile(t, dir, "pets.yaml", petsYAML)
	broken := writeFile(t, dir, "broken.yaml", brokenYAML)
	missing := writeFile(t, dir, "missing.yaml", `info: {title: x, version: "1"}`)

	env := newTestEnv()
	root := NewRootCommand(env.Env)

	require.NoError(t, root.Execute(context.Background(), []string{"validate", pets}))
	assert.Contains(t, env.out.String(), "ok      "+pets)

	env.out.Reset()
	err := root.Execute(context.Background(), []string{"validate", broken, missing})
	assert.EqualError(t, err, "validation failed for 2 of 2 descriptions")
	assert.Contains(t, env.out.String(), "broken_reference")
	assert.Contains(t, env.out.String(), "malformed_description: required field is missing (at #/openapi)")
}
