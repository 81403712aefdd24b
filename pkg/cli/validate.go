package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/platinummonkey/apicatalog/pkg/compiler"
)

func newValidateCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "validate",
		Description: "Check that OpenAPI descriptions compile, without writing output",
		Flags:       flag.NewFlagSet("validate", flag.ContinueOnError),
	}
	limits := limitFlags(cmd.Flags)

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		files, err := collectDescriptions(cmd.Flags.Args())
		if err != nil {
			return err
		}

		runner := env.runner(*limits)
		var failed int
		for _, file := range files {
			o := compileFile(ctx, runner, file, "", false)
			if o.Err == nil {
				fmt.Fprintf(env.Out, "ok      %s\n", file)
				continue
			}
			failed++
			fmt.Fprintf(env.Out, "FAIL    %s\n", file)
			fmt.Fprintf(env.Out, "        %s: %v\n", compiler.ErrorKind(o.Err), describeFailure(o.Err))
		}
		if failed > 0 {
			return fmt.Errorf("validation failed for %d of %d descriptions", failed, len(files))
		}
		return nil
	}
	return cmd
}

// describeFailure points at the offending location when the compiler
// reported one
func describeFailure(err error) string {
	var merr *compiler.MalformedError
	if errors.As(err, &merr) {
		return fmt.Sprintf("%s (at %s)", merr.Reason, merr.Path)
	}
	return err.Error()
}
