package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/platinummonkey/apicatalog/pkg/catalog"
	"github.com/platinummonkey/apicatalog/pkg/query"
)

// joinList collects repeated -join flags
type joinList []query.JoinSpec

func (l *joinList) String() string {
	parts := make([]string, 0, len(*l))
	for _, j := range *l {
		parts = append(parts, j.Parent+"."+j.Kind)
	}
	return strings.Join(parts, ",")
}

func (l *joinList) Set(value string) error {
	spec, err := parseJoin(value)
	if err != nil {
		return err
	}
	*l = append(*l, spec)
	return nil
}

// parseJoin reads "parent.Kind[:alias]"
func parseJoin(value string) (query.JoinSpec, error) {
	target, alias, _ := strings.Cut(value, ":")
	dot := strings.LastIndex(target, ".")
	if dot <= 0 || dot == len(target)-1 {
		return query.JoinSpec{}, fmt.Errorf("join %q must look like parent.Kind[:alias]", value)
	}
	return query.JoinSpec{Parent: target[:dot], Kind: target[dot+1:], Alias: alias}, nil
}

// parseRoot reads "Kind[:alias]"
func parseRoot(value string) query.JoinSpec {
	kind, alias, _ := strings.Cut(value, ":")
	return query.JoinSpec{Kind: kind, Alias: alias}
}

func newJoinsCommand(env *Env, cat *catalog.Catalog) *Command {
	cmd := &Command{
		Name:        "joins",
		Description: "Resolve a join tree to the full path of every alias",
		Flags:       flag.NewFlagSet("joins", flag.ContinueOnError),
	}
	root := cmd.Flags.String("root", catalog.Service.String(), "Root kind, as Kind[:alias]")
	var joins joinList
	cmd.Flags.Var(&joins, "join", "Join as parent.Kind[:alias]; repeatable")

	cmd.Run = func(ctx context.Context, args []string) error {
		joins = joins[:0]
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		res, err := query.NewResolver(cat, nil, nil).Resolve(ctx, query.Request{
			Root:  parseRoot(*root),
			Joins: joins,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(env.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return cmd
}
