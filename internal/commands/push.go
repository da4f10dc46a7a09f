package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"streaktodo/internal/backend/googletasks"
	"streaktodo/internal/config"
	"streaktodo/internal/exitcode"
	"streaktodo/internal/service"
)

func init() {
	Register(&PushCmd{})
}

// Mirror receives a copy of the task collection.
type Mirror interface {
	Push(ctx context.Context, listTitle string, tasks []service.Task) (googletasks.PushResult, error)
}

// NewMirror creates the remote mirror. Replaced in tests.
var NewMirror = func(ctx context.Context, cfg *config.Config) (Mirror, error) {
	return googletasks.New(ctx, cfg)
}

// PushCmd implements the push command.
type PushCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *PushCmd) SetListName(name string) {
	c.listName = name
}

func (c *PushCmd) Name() string      { return "push" }
func (c *PushCmd) Aliases() []string { return nil }
func (c *PushCmd) Synopsis() string  { return "Copy tasks to a Google Tasks list" }
func (c *PushCmd) Usage() string     { return "streaktodo push [--list <list-name>]" }
func (c *PushCmd) NeedsStore() bool  { return true }

func (c *PushCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *PushCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	listName := strings.TrimSpace(c.listName)
	if listName == "" {
		listName = cfg.Settings.Mirror.List
	}
	if listName == "" {
		fmt.Fprintln(errOut, "error: list name required")
		return exitcode.UserError
	}

	if !cfg.HasOAuthClient() {
		fmt.Fprintf(errOut, "error: oauth_client.json not found in %s\n", cfg.Dir)
		return exitcode.AuthError
	}
	if !cfg.HasToken() {
		fmt.Fprintln(errOut, "error: not logged in (run: streaktodo login)")
		return exitcode.AuthError
	}

	mirror, err := NewMirror(ctx, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	}

	res, err := mirror.Push(ctx, listName, svc.Tasks())
	if err != nil {
		if strings.Contains(err.Error(), "login") {
			fmt.Fprintf(errOut, "error: auth error: %v\n", err)
			return exitcode.AuthError
		}
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "created %d, completed %d, unchanged %d\n", res.Created, res.Completed, res.Unchanged)
	}
	return exitcode.Success
}
