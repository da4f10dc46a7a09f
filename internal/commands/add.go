package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"streaktodo/internal/config"
	"streaktodo/internal/exitcode"
	"streaktodo/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct{}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Add a task to the top of the list" }
func (c *AddCmd) Usage() string     { return "streaktodo add <text...>" }
func (c *AddCmd) NeedsStore() bool  { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	text, ok := joinText(args)
	if !ok {
		fmt.Fprintln(errOut, "error: text required")
		return exitcode.UserError
	}

	svc.Add(text)

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// joinText joins args into a task text. ok is false when the result is blank.
func joinText(args []string) (string, bool) {
	text := strings.Join(args, " ")
	return text, strings.TrimSpace(text) != ""
}
