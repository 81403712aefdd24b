package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/apicatalog/pkg/compiler"
)

// CompileOutcome is the result of compiling one file
type CompileOutcome struct {
	Source string
	Output string
	Data   []byte
	Stats  compiler.Stats
	Err    error
}

func newCompileCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "compile",
		Description: "Compile OpenAPI descriptions into catalog JSON",
		Flags:       flag.NewFlagSet("compile", flag.ContinueOnError),
	}
	out := cmd.Flags.String("out", "", "Output directory for *.catalog.json files (stdout when empty)")
	workers := cmd.Flags.Int("workers", runtime.NumCPU(), "Files compiled in parallel")
	indent := cmd.Flags.Bool("indent", false, "Indent the JSON output")
	limits := limitFlags(cmd.Flags)

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		files, err := collectDescriptions(cmd.Flags.Args())
		if err != nil {
			return err
		}
		if *out != "" {
			if err := os.MkdirAll(*out, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		outcomes, err := compileFiles(ctx, env.runner(*limits), files, *out, *workers, *indent)
		if err != nil {
			return err
		}
		var failed []error
		for _, o := range outcomes {
			if o.Err != nil {
				env.Log.WithField("file", o.Source).WithField("kind", compiler.ErrorKind(o.Err)).Error(o.Err)
				failed = append(failed, fmt.Errorf("%s: %w", o.Source, o.Err))
				continue
			}
			env.Log.WithFields(logrus.Fields{
				"file":     o.Source,
				"requests": o.Stats.Requests,
				"variants": o.Stats.Variants,
			}).Info("compiled")
			if *out == "" {
				_, _ = env.Out.Write(o.Data)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d descriptions failed: %w", len(failed), len(files), errors.Join(failed...))
		}
		return nil
	}
	return cmd
}

// compileFiles compiles files on at most workers goroutines. Each file's
// catalog is written to outDir, or only kept in memory when outDir is empty.
// Per-file failures are reported in the outcomes; the error is only set when
// the run itself was cancelled.
func compileFiles(ctx context.Context, runner *compiler.Runner, files []string, outDir string, workers int, indent bool) ([]CompileOutcome, error) {
	if workers < 1 {
		workers = 1
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	outcomes := make([]CompileOutcome, len(files))
	for i, file := range files {
		i, file := i, file
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = compileFile(ctx, runner, file, outDir, indent)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func compileFile(ctx context.Context, runner *compiler.Runner, file, outDir string, indent bool) CompileOutcome {
	outcome := CompileOutcome{Source: file}
	raw, err := os.ReadFile(file)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to read file: %w", err)
		return outcome
	}
	res, err := runner.Run(ctx, raw)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Stats = res.Stats

	data, err := res.Compiled.MarshalJSON()
	if err != nil {
		outcome.Err = err
		return outcome
	}
	if indent {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			outcome.Err = err
			return outcome
		}
		data = buf.Bytes()
	}
	outcome.Data = append(data, '\n')
	if outDir == "" {
		return outcome
	}

	outcome.Output = outputPath(outDir, file)
	if err := os.WriteFile(outcome.Output, outcome.Data, 0644); err != nil {
		outcome.Err = fmt.Errorf("failed to write %s: %w", outcome.Output, err)
	}
	return outcome
}
