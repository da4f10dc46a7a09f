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
	"streaktodo/internal/streak"
)

func init() {
	Register(&StatsCmd{})
}

// StatsCmd implements the stats command.
type StatsCmd struct {
	goal int
}

// SetGoal sets the goal (for testing).
func (c *StatsCmd) SetGoal(goal int) {
	c.goal = goal
}

func (c *StatsCmd) Name() string      { return "stats" }
func (c *StatsCmd) Aliases() []string { return nil }
func (c *StatsCmd) Synopsis() string  { return "Show streak progress" }
func (c *StatsCmd) Usage() string     { return "streaktodo stats [--goal <n>]" }
func (c *StatsCmd) NeedsStore() bool  { return true }

func (c *StatsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.goal, "goal", 0, "")
}

func (c *StatsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if c.goal < 0 {
		fmt.Fprintf(errOut, "error: invalid goal: %d\n", c.goal)
		return exitcode.UserError
	}
	goal := c.goal
	if goal == 0 {
		goal = cfg.Settings.Streak.Goal
	}

	tasks := svc.Tasks()
	states := make([]streak.State, len(tasks))
	done, best := 0, 0
	for i, t := range tasks {
		states[i] = t.State
		if t.Done {
			done++
		}
		best = max(best, t.BestStreak)
	}

	output.FormatProgress(out, streak.Summarize(states, goal))
	fmt.Fprintf(out, "done: %d/%d\n", done, len(tasks))
	fmt.Fprintf(out, "best streak: %d\n", best)
	return exitcode.Success
}
