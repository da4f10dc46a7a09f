package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"streaktodo/internal/cli"
	"streaktodo/internal/commands"
	"streaktodo/internal/config"
	"streaktodo/internal/exitcode"
	"streaktodo/internal/kv"
	"streaktodo/internal/service"
	"streaktodo/internal/testutil"
)

// memoryFactory returns a factory handing out a fresh in-memory store.
func memoryFactory() cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		s := testutil.NewStore(kv.NewMemory(), testutil.NewClock("2024-05-01"))
		s.Initialize()
		return s, nil
	}
}

// isolate points the default config dir at an empty temp dir.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvStorage, "")
}

func run(t *testing.T, factory cli.ServiceFactory, args ...string) (int, string, string) {
	t.Helper()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)
	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	isolate(t)
	code, _, stderr := run(t, memoryFactory(), "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	isolate(t)
	code, _, stderr := run(t, memoryFactory(), "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	isolate(t)
	code, stdout, stderr := run(t, memoryFactory(), "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	isolate(t)
	code, stdout, stderr := run(t, nil, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "streaktodo 0.1.0\n" {
		t.Errorf("expected 'streaktodo 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	isolate(t)
	code, _, stderr := run(t, memoryFactory(), "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_MissingFlagValue(t *testing.T) {
	isolate(t)
	code, _, stderr := run(t, memoryFactory(), "list", "--config")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -config\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_NoArgsListsTasks(t *testing.T) {
	isolate(t)
	code, stdout, stderr := run(t, memoryFactory())

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if !strings.Contains(stdout, "Welcome to Whop Todos") {
		t.Errorf("expected seeded tasks in output, got %q", stdout)
	}
}

func TestDispatcher_InvalidSettings(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage:\n  backend: floppy\n"), 0600); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := run(t, memoryFactory(), "list", "--config", dir)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: config error:") {
		t.Errorf("expected config error, got %q", stderr)
	}
}

func TestDispatcher_FactoryError(t *testing.T) {
	isolate(t)
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return nil, errors.New("disk on fire")
	}

	code, _, stderr := run(t, factory, "list")

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	expected := "error: storage error: disk on fire\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_NoFactory(t *testing.T) {
	isolate(t)
	code, _, stderr := run(t, nil, "list")

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: no task store available\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_StoreNotOpenedForHelp(t *testing.T) {
	isolate(t)
	called := false
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		called = true
		return nil, errors.New("should not be called")
	}

	code, _, _ := run(t, factory, "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if called {
		t.Error("help should not open the store")
	}
}

func TestDispatcher_DebugLogsToStderr(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage:\n  backend: memory\n"), 0600); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := run(t, cli.OpenStore, "list", "--debug", "--config", dir)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if !strings.Contains(stderr, "seeded tasks") {
		t.Errorf("expected debug log on stderr, got %q", stderr)
	}
	if strings.Contains(stdout, "seeded tasks") {
		t.Error("logs must not go to stdout")
	}
}
