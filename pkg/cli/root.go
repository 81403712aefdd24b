package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/apicatalog/pkg/catalog"
	"github.com/platinummonkey/apicatalog/pkg/compiler"
	"github.com/platinummonkey/apicatalog/pkg/observability"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// Env carries what every command writes to and talks through
type Env struct {
	Out    io.Writer
	Log    *logrus.Logger
	Client *http.Client
}

// DefaultEnv writes results to stdout and logs text to stderr
func DefaultEnv() *Env {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return &Env{
		Out:    os.Stdout,
		Log:    log,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *Env) runner(limits compiler.Limits) *compiler.Runner {
	// compile failures are reported through the CLI log, not the service logger
	r := compiler.NewRunner(observability.NewLogger(observability.ErrorLevel, io.Discard), nil, nil)
	r.Limits = limits
	return r
}

// NewRootCommand creates the root command
func NewRootCommand(env *Env) *Command {
	if env == nil {
		env = DefaultEnv()
	}
	root := &Command{
		Name:        "apicatalog",
		Description: "apicatalog - compile OpenAPI descriptions into an entity catalog",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("apicatalog", flag.ContinueOnError),
	}

	for _, cmd := range []*Command{
		newCompileCommand(env),
		newValidateCommand(env),
		newCatalogCommand(env, catalog.Default()),
		newJoinsCommand(env, catalog.Default()),
		newWatchCommand(env),
		newPushCommand(env),
		newPullCommand(env),
	} {
		cmd.Flags.SetOutput(env.Out)
		root.Subcommands[cmd.Name] = cmd
	}
	root.Flags.SetOutput(env.Out)
	return root
}

// Execute runs the subcommand named by args[0]
func (c *Command) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		return c.usage(c.Flags.Output())
	}
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(ctx, args[1:])
	}
	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage(w io.Writer) error {
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range names {
		fmt.Fprintf(w, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

// limitFlags registers the compiler limit flags shared by compile, validate
// and watch
func limitFlags(fs *flag.FlagSet) *compiler.Limits {
	limits := compiler.DefaultLimits()
	fs.IntVar(&limits.MaxVariants, "max-variants", limits.MaxVariants, "Largest schema variant set allowed")
	fs.IntVar(&limits.MaxDepth, "max-depth", limits.MaxDepth, "Deepest schema nesting allowed")
	return &limits
}
