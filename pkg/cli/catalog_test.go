package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/apicatalog/pkg/query"
)

func TestCatalogCommand(t *testing.T) {
	env := newTestEnv()
	root := NewRootCommand(env.Env)

	require.NoError(t, root.Execute(context.Background(), []string{"catalog"}))
	var all []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &all))
	assert.Len(t, all, 18)

	env.out.Reset()
	require.NoError(t, root.Execute(context.Background(), []string{"catalog", "-kind", "Response"}))
	var one map[string]interface{}
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &one))
	assert.Equal(t, "Response", one["kind"])

	env.out.Reset()
	require.NoError(t, root.Execute(context.Background(), []string{"catalog", "-edges"}))
	var edges []string
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &edges))
	assert.Contains(t, edges, "Request.Response")

	assert.Error(t, root.Execute(context.Background(), []string{"catalog", "-kind", "Widget"}))
}

func TestJoinsCommand(t *testing.T) {
	env := newTestEnv()
	root := NewRootCommand(env.Env)

	err := root.Execute(context.Background(), []string{"joins", "-root", "Service:s", "-join", "s.Request:r", "-join", "r.Response"})
	require.NoError(t, err)
	var res query.Resolution
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &res))
	assert.Equal(t, "Service", res.Paths["s"])
	assert.Equal(t, "Service.Request", res.Paths["r"])
	assert.Equal(t, "Service.Request.Response", res.Paths["Response"])

	err = root.Execute(context.Background(), []string{"joins", "-join", "Service.Header"})
	assert.ErrorIs(t, err, query.ErrInvalidJoin)
}
