package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/apicatalog/pkg/compiler"
)

func waitOutcome(t *testing.T, ch <-chan CompileOutcome) CompileOutcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a recompilation")
		return CompileOutcome{}
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	writeFile(t, dir, "pets.yaml", petsYAML)

	env := newTestEnv()
	w := NewWatcher(dir, out, 20*time.Millisecond, env.runner(compiler.DefaultLimits()), env.Log)
	w.compiled = make(chan CompileOutcome, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	o := waitOutcome(t, w.compiled)
	require.NoError(t, o.Err)
	assert.Equal(t, filepath.Join(out, "pets.catalog.json"), o.Output)

	writeFile(t, dir, "broken.yaml", brokenYAML)
	o = waitOutcome(t, w.compiled)
	assert.Equal(t, "broken_reference", compiler.ErrorKind(o.Err))
	_, err := os.Stat(filepath.Join(out, "broken.catalog.json"))
	assert.True(t, os.IsNotExist(err))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_Debounce(t *testing.T) {
	w := NewWatcher("specs", "", time.Second, nil, newTestEnv().Log)
	assert.Equal(t, "specs", w.out)

	start := time.Now()
	w.enqueue("a.yaml", start)
	w.enqueue("a.yaml", start.Add(500*time.Millisecond))

	assert.Empty(t, w.ready(start.Add(time.Second)))
	assert.Equal(t, []string{"a.yaml"}, w.ready(start.Add(1500*time.Millisecond)))
	assert.Empty(t, w.ready(start.Add(time.Hour)))
}
