package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"streaktodo/internal/config"
	"streaktodo/internal/exitcode"
	"streaktodo/internal/proxy"
	"streaktodo/internal/server"
	"streaktodo/internal/service"
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd implements the serve command: the JSON task API plus the
// upstream API proxy.
type ServeCmd struct {
	addr string
}

func (c *ServeCmd) Name() string      { return "serve" }
func (c *ServeCmd) Aliases() []string { return nil }
func (c *ServeCmd) Synopsis() string  { return "Serve the task API and proxy over HTTP" }
func (c *ServeCmd) Usage() string     { return "streaktodo serve [--addr <host:port>]" }
func (c *ServeCmd) NeedsStore() bool  { return true }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	addr := c.addr
	if addr == "" {
		addr = cfg.Settings.Server.Addr
	}

	logger := slog.Default()
	ps := cfg.Settings.Proxy
	if ps.APIKey == "" {
		logger.Warn("proxy has no API key; requests to it will fail", "env", config.EnvAPIKey)
	}
	p := proxy.New(proxy.Config{
		APIKey:       ps.APIKey,
		BaseURL:      ps.BaseURL,
		AllowedPaths: ps.AllowedPaths,
	}, logger)

	srv := server.New(svc,
		server.WithProxy(p),
		server.WithGoal(cfg.Settings.Streak.Goal),
		server.WithLogger(logger),
	)

	if !cfg.Quiet {
		fmt.Fprintf(out, "listening on http://%s\n", addr)
	}
	if err := srv.Run(ctx, addr); err != nil {
		fmt.Fprintf(errOut, "error: server error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
