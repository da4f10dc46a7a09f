package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"streaktodo/internal/config"
	"streaktodo/internal/exitcode"
	"streaktodo/internal/output"
	"streaktodo/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"complete"} }
func (c *DoneCmd) Synopsis() string  { return "Mark a task completed today" }
func (c *DoneCmd) Usage() string     { return "streaktodo done <ref>" }
func (c *DoneCmd) NeedsStore() bool  { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	task, code, ok := resolveArgs(svc, args, errOut)
	if !ok {
		return code
	}

	outcome, ok := svc.MarkComplete(task.ID)
	if !ok {
		fmt.Fprintf(errOut, "error: task not found: %s\n", task.ID)
		return exitcode.UserError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
		printOutcome(out, outcome)
	}
	return exitcode.Success
}

// printOutcome prints the celebration lines for a completion.
func printOutcome(out io.Writer, o service.Outcome) {
	if o.NewBest {
		fmt.Fprintf(out, "🏆 new best streak: %d\n", o.Task.BestStreak)
	}
	if msg := output.MilestoneMessage(o.Milestone); msg != "" {
		fmt.Fprintln(out, msg)
	}
}
