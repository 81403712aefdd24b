package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/platinummonkey/apicatalog/pkg/catalog"
)

func newCatalogCommand(env *Env, cat *catalog.Catalog) *Command {
	cmd := &Command{
		Name:        "catalog",
		Description: "Print the entity kinds, their containment paths and fields",
		Flags:       flag.NewFlagSet("catalog", flag.ContinueOnError),
	}
	kind := cmd.Flags.String("kind", "", "Describe only this kind")
	edges := cmd.Flags.Bool("edges", false, "Print the containment edges instead")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		var body interface{}
		switch {
		case *edges:
			list := make([]string, 0, len(cat.Edges()))
			for _, e := range cat.Edges() {
				list = append(list, e.String())
			}
			body = list
		case *kind != "":
			k, err := catalog.ParseKind(*kind)
			if err != nil {
				return err
			}
			body = cat.DescribeKind(k)
		default:
			body = cat.Describe()
		}

		enc := json.NewEncoder(env.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(body); err != nil {
			return fmt.Errorf("failed to write catalog: %w", err)
		}
		return nil
	}
	return cmd
}
