package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

func newPullCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "pull",
		Description: "Download a stored description or its compiled catalog",
		Flags:       flag.NewFlagSet("pull", flag.ContinueOnError),
	}
	server := cmd.Flags.String("server", defaultServer, "Server URL")
	id := cmd.Flags.String("id", "", "Description id")
	original := cmd.Flags.Bool("original", false, "Fetch the submitted document instead of the catalog")
	out := cmd.Flags.String("out", "", "Write to this file instead of stdout")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *id == "" {
			return fmt.Errorf("id is required")
		}

		url := strings.TrimSuffix(*server, "/") + "/descriptions/" + *id
		if !*original {
			url += "/compiled"
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := env.Client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to get description: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("description %s not found", *id)
		}
		if resp.StatusCode != http.StatusOK {
			return responseError(resp)
		}

		w := env.Out
		if *out != "" {
			f, err := os.Create(*out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", *out, err)
			}
			defer f.Close()
			w = f
		}
		if _, err := io.Copy(w, resp.Body); err != nil {
			return fmt.Errorf("failed to write description: %w", err)
		}
		if *out != "" {
			env.Log.WithField("file", *out).Info("pulled")
		}
		return nil
	}
	return cmd
}
