package cli

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/apicatalog/pkg/api"
	"github.com/platinummonkey/apicatalog/pkg/observability"
	"github.com/platinummonkey/apicatalog/pkg/storage"
)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(api.NewServer(api.Options{
		Store:  storage.NewMemoryStore(),
		Logger: observability.NewLogger(observability.ErrorLevel, io.Discard),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPushAndPull(t *testing.T) {
	srv := newAPIServer(t)
	dir := t.TempDir()
	file := writeFile(t, dir, "pets.yaml", petsYAML)

	env := newTestEnv()
	root := NewRootCommand(env.Env)
	require.NoError(t, root.Execute(context.Background(), []string{"push", "-server", srv.URL, file}))

	line := strings.TrimSpace(env.out.String())
	id, name, ok := strings.Cut(line, "\t")
	require.True(t, ok, line)
	assert.Len(t, id, 24)
	assert.Equal(t, file, name)

	env.out.Reset()
	require.NoError(t, root.Execute(context.Background(), []string{"pull", "-server", srv.URL, "-id", id, "-original"}))
	assert.Equal(t, petsYAML, env.out.String())

	target := filepath.Join(dir, "pets.catalog.json")
	require.NoError(t, root.Execute(context.Background(), []string{"pull", "-server", srv.URL, "-id", id, "-out", target}))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title":"Pets"`)
}

func TestPush_CompileError(t *testing.T) {
	srv := newAPIServer(t)
	file := writeFile(t, t.TempDir(), "broken.yaml", brokenYAML)

	env := newTestEnv()
	err := NewRootCommand(env.Env).Execute(context.Background(), []string{"push", "-server", srv.URL, file})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[broken_reference] at #/components/responses/Missing")
}

func TestPull_Errors(t *testing.T) {
	srv := newAPIServer(t)
	env := newTestEnv()
	root := NewRootCommand(env.Env)

	assert.EqualError(t, root.Execute(context.Background(), []string{"pull", "-server", srv.URL}), "id is required")

	id := storage.NewID()
	err := root.Execute(context.Background(), []string{"pull", "-server", srv.URL, "-id", id})
	assert.EqualError(t, err, "description "+id+" not found")

	err = root.Execute(context.Background(), []string{"pull", "-server", srv.URL, "-id", "short"})
	assert.ErrorContains(t, err, "400")
}
