package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"streaktodo/internal/config"
	"streaktodo/internal/exitcode"
	"streaktodo/internal/output"
	"streaktodo/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `streaktodo` (no args) and `streaktodo list`.
type ListCmd struct {
	now func() time.Time
}

// SetNow sets the clock used for the saved indicator (for testing).
func (c *ListCmd) SetNow(now func() time.Time) {
	c.now = now
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks with their streaks" }
func (c *ListCmd) Usage() string     { return "streaktodo list" }
func (c *ListCmd) NeedsStore() bool  { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	tasks := svc.Tasks()
	if len(tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, output.EmptyMessage)
		}
		return exitcode.Success
	}

	output.FormatTasks(out, tasks)

	if cfg.Quiet {
		return exitcode.Success
	}
	now := c.now
	if now == nil {
		now = time.Now
	}
	if label := output.SavedLabel(svc.LastSavedAt(), now()); label != "" {
		fmt.Fprintln(out, label)
	}
	return exitcode.Success
}
