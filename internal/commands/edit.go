package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"streaktodo/internal/config"
	"streaktodo/internal/exitcode"
	"streaktodo/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command.
type EditCmd struct{}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return []string{"rename"} }
func (c *EditCmd) Synopsis() string  { return "Change a task's text" }
func (c *EditCmd) Usage() string     { return "streaktodo edit <ref> <text...>" }
func (c *EditCmd) NeedsStore() bool  { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	task, code, ok := resolveArgs(svc, args, errOut)
	if !ok {
		return code
	}

	text, ok := joinText(args[1:])
	if !ok {
		fmt.Fprintln(errOut, "error: text required")
		return exitcode.UserError
	}

	if _, ok := svc.Update(task.ID, service.Patch{Text: &text}); !ok {
		fmt.Fprintf(errOut, "error: task not found: %s\n", task.ID)
		return exitcode.UserError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
