package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/apicatalog/pkg/compiler"
)

// Watcher recompiles descriptions under a directory after they stop changing
type Watcher struct {
	dir    string
	out    string
	delay  time.Duration
	runner *compiler.Runner
	log    *logrus.Logger

	mu    sync.Mutex
	queue map[string]time.Time

	// compiled is signalled after each recompilation; used by tests
	compiled chan CompileOutcome
}

// NewWatcher creates a watcher writing catalogs to out, or next to each
// source when out is empty
func NewWatcher(dir, out string, delay time.Duration, runner *compiler.Runner, log *logrus.Logger) *Watcher {
	if out == "" {
		out = dir
	}
	return &Watcher{
		dir:    dir,
		out:    out,
		delay:  delay,
		runner: runner,
		log:    log,
		queue:  make(map[string]time.Time),
	}
}

func newWatchCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "watch",
		Description: "Recompile descriptions in a directory whenever they change",
		Flags:       flag.NewFlagSet("watch", flag.ContinueOnError),
	}
	dir := cmd.Flags.String("dir", ".", "Directory to watch")
	out := cmd.Flags.String("out", "", "Output directory (defaults to the watched directory)")
	delay := cmd.Flags.Duration("delay", 2*time.Second, "Quiet period before recompiling a changed file")
	limits := limitFlags(cmd.Flags)

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		return NewWatcher(*dir, *out, *delay, env.runner(*limits), env.Log).Run(ctx)
	}
	return cmd
}

// Run compiles every existing description once and then watches for
// changes until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.out, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.setup(watcher); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}
	w.log.WithField("dir", w.dir).Info("watching for description changes")

	tick := w.delay / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handle(watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watcher error")
		case now := <-ticker.C:
			for _, file := range w.ready(now) {
				w.recompile(ctx, file)
			}
		}
	}
}

// setup adds every directory below the root and queues existing descriptions
func (w *Watcher) setup(watcher *fsnotify.Watcher) error {
	return filepath.Walk(w.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		if isDescription(path) {
			w.enqueue(path, time.Now().Add(-w.delay))
		}
		return nil
	})
}

func (w *Watcher) handle(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if err := watcher.Add(event.Name); err != nil {
				w.log.WithError(err).WithField("dir", event.Name).Warn("failed to watch new directory")
			}
			return
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && isDescription(event.Name) {
		w.enqueue(event.Name, time.Now())
	}
}

// enqueue records a change; repeated changes push the compile back
func (w *Watcher) enqueue(file string, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue[file] = at
}

// ready removes and returns the files that have been quiet for the delay
func (w *Watcher) ready(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var files []string
	for file, changed := range w.queue {
		if now.Sub(changed) >= w.delay {
			files = append(files, file)
			delete(w.queue, file)
		}
	}
	return files
}

func (w *Watcher) recompile(ctx context.Context, file string) {
	o := compileFile(ctx, w.runner, file, w.out, false)
	if o.Err != nil {
		w.log.WithError(o.Err).WithFields(logrus.Fields{
			"file": file,
			"kind": compiler.ErrorKind(o.Err),
		}).Error("recompilation failed")
	} else {
		w.log.WithFields(logrus.Fields{
			"file":     file,
			"output":   o.Output,
			"requests": o.Stats.Requests,
		}).Info("recompiled")
	}
	if w.compiled != nil {
		w.compiled <- o
	}
}
