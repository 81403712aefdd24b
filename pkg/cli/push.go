package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/platinummonkey/apicatalog/pkg/api"
	"github.com/platinummonkey/apicatalog/pkg/httputil"
)

const defaultServer = "http://localhost:8080"

func newPushCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "push",
		Description: "Upload descriptions to an apicatalog server",
		Flags:       flag.NewFlagSet("push", flag.ContinueOnError),
	}
	server := cmd.Flags.String("server", defaultServer, "Server URL")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		files, err := collectDescriptions(cmd.Flags.Args())
		if err != nil {
			return err
		}
		for _, file := range files {
			created, err := pushFile(ctx, env.Client, *server, file)
			if err != nil {
				return fmt.Errorf("failed to push %s: %w", file, err)
			}
			env.Log.WithField("file", file).WithField("requests", created.Stats.Requests).Info("pushed")
			fmt.Fprintf(env.Out, "%s\t%s\n", created.ID, file)
		}
		return nil
	}
	return cmd
}

func contentTypeFor(file string) string {
	if strings.EqualFold(filepath.Ext(file), ".json") {
		return "application/json"
	}
	return "application/yaml"
}

func pushFile(ctx context.Context, client *http.Client, server, file string) (*api.CreateDescriptionResponse, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(server, "/")+"/descriptions", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentTypeFor(file))

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return nil, responseError(resp)
	}
	var created api.CreateDescriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &created, nil
}

// responseError turns an error answer from the server into an error that
// carries its kind and location
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var e httputil.ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
		return fmt.Errorf("server answered %s", resp.Status)
	}
	msg := fmt.Sprintf("server answered %s: %s", resp.Status, e.Error)
	if e.Kind != "" {
		msg += " [" + e.Kind + "]"
	}
	if e.Path != "" {
		msg += " at " + e.Path
	}
	return fmt.Errorf("%s", msg)
}
