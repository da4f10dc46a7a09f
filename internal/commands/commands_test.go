package commands_test

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"streaktodo/internal/backend/googletasks"
	"streaktodo/internal/commands"
	"streaktodo/internal/config"
	"streaktodo/internal/exitcode"
	"streaktodo/internal/kv"
	"streaktodo/internal/service"
	"streaktodo/internal/store"
	"streaktodo/internal/testutil"
)

// newStore returns a seeded store on a fixed day. Seeded ids are task-1..task-3.
func newStore(t *testing.T) (*store.Store, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock("2024-05-01")
	s := testutil.NewStore(kv.NewMemory(), clock)
	s.Initialize()
	return s, clock
}

// runCommand is a helper to run a command against svc.
func runCommand(t *testing.T, cmd commands.Command, svc service.Service, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()
	return runCommandIn(t, t.TempDir(), cmd, svc, args, quiet)
}

func runCommandIn(t *testing.T, dir string, cmd commands.Command, svc service.Service, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer

	cfg := &config.Config{
		Dir:      dir,
		Quiet:    quiet,
		Settings: config.DefaultSettings(),
	}

	ctx := context.Background()
	code = cmd.Run(ctx, cfg, svc, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

// flagSet registers cmd's flags the way the dispatcher does.
func flagSet(cmd commands.Command) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.RegisterFlags(fs)
	return fs
}

func expectCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected exit code %d, got %d", want, got)
	}
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	cmd := &commands.VersionCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	expectCode(t, code, exitcode.Success)
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "streaktodo 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	cmd := &commands.HelpCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	expectCode(t, code, exitcode.Success)
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	for _, want := range []string{"Usage:", "streaktodo done <ref>", "streaktodo serve [--addr <host:port>]", "--quiet"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

// Tests for list command
func TestListCommand(t *testing.T) {
	svc, clock := newStore(t)
	cmd := &commands.ListCmd{}
	cmd.SetNow(clock.Now)

	stdout, stderr, code := runCommand(t, cmd, svc, nil, false)

	expectCode(t, code, exitcode.Success)
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	testutil.GoldenString(t, "list", stdout)
}

func TestListCommand_SavedAgo(t *testing.T) {
	svc, clock := newStore(t)
	cmd := &commands.ListCmd{}
	cmd.SetNow(func() time.Time { return clock.Now().Add(42 * time.Second) })

	stdout, _, _ := runCommand(t, cmd, svc, nil, false)

	if !strings.HasSuffix(stdout, "Saved 42s ago\n") {
		t.Errorf("expected saved indicator, got %q", stdout)
	}
}

func TestListCommand_Quiet(t *testing.T) {
	svc, _ := newStore(t)

	stdout, _, code := runCommand(t, &commands.ListCmd{}, svc, nil, true)

	expectCode(t, code, exitcode.Success)
	if strings.Contains(stdout, "Saved") {
		t.Errorf("quiet listing should not include the saved indicator, got %q", stdout)
	}
	if strings.Count(stdout, "\n") != 3 {
		t.Errorf("expected 3 task lines, got %q", stdout)
	}
}

func TestListCommand_Empty(t *testing.T) {
	svc, _ := newStore(t)
	for _, task := range svc.Tasks() {
		svc.Delete(task.ID)
	}

	stdout, _, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)
	expectCode(t, code, exitcode.Success)
	if !strings.HasPrefix(stdout, "No todos yet") {
		t.Errorf("expected empty message, got %q", stdout)
	}

	stdout, _, _ = runCommand(t, &commands.ListCmd{}, svc, nil, true)
	if stdout != "" {
		t.Errorf("expected no output in quiet mode, got %q", stdout)
	}
}

func TestListCommand_UnexpectedArg(t *testing.T) {
	svc, _ := newStore(t)

	_, stderr, code := runCommand(t, &commands.ListCmd{}, svc, []string{"work"}, false)

	expectCode(t, code, exitcode.UserError)
	if stderr != "error: unexpected argument: work\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for add command
func TestAddCommand_Success(t *testing.T) {
	svc, _ := newStore(t)

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"Drink", "water"}, false)

	expectCode(t, code, exitcode.Success)
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if got := svc.Tasks()[0].Text; got != "Drink water" {
		t.Errorf("expected new task first, got %q", got)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	svc, _ := newStore(t)

	stdout, _, code := runCommand(t, &commands.AddCmd{}, svc, []string{"Stretch"}, true)

	expectCode(t, code, exitcode.Success)
	if stdout != "" {
		t.Errorf("expected no stdout in quiet mode, got %q", stdout)
	}
}

func TestAddCommand_NoText(t *testing.T) {
	svc, _ := newStore(t)

	for _, args := range [][]string{nil, {"  ", ""}} {
		_, stderr, code := runCommand(t, &commands.AddCmd{}, svc, args, false)
		expectCode(t, code, exitcode.UserError)
		if stderr != "error: text required\n" {
			t.Errorf("expected text required error, got %q", stderr)
		}
	}
	if len(svc.Tasks()) != 3 {
		t.Error("no task should have been added")
	}
}

// Tests for done command
func TestDoneCommand_Success(t *testing.T) {
	svc, _ := newStore(t)

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"2"}, false)

	expectCode(t, code, exitcode.Success)
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n🏆 new best streak: 1\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}

	task, _ := svc.Get("task-2")
	if !task.Done || task.CurrentStreak != 1 {
		t.Errorf("task-2 should be done with streak 1, got %+v", task.State)
	}
}

func TestDoneCommand_SecondTimeSameDay(t *testing.T) {
	svc, _ := newStore(t)
	svc.MarkComplete("task-1")

	stdout, _, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"task-1"}, false)

	expectCode(t, code, exitcode.Success)
	if stdout != "ok\n" {
		t.Errorf("a repeat completion should not celebrate, got %q", stdout)
	}
}

func TestDoneCommand_Milestone(t *testing.T) {
	svc, clock := newStore(t)
	svc.MarkComplete("task-1")
	clock.AdvanceDays(1)
	svc.MarkComplete("task-1")
	clock.AdvanceDays(1)

	stdout, _, _ := runCommand(t, &commands.DoneCmd{}, svc, []string{"task-1"}, false)

	want := "ok\n🏆 new best streak: 3\n✨ 3-day streak milestone!\n"
	if stdout != want {
		t.Errorf("got %q, want %q", stdout, want)
	}
}

func TestDoneCommand_Quiet(t *testing.T) {
	svc, _ := newStore(t)

	stdout, _, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"1"}, true)

	expectCode(t, code, exitcode.Success)
	if stdout != "" {
		t.Errorf("expected no stdout in quiet mode, got %q", stdout)
	}
}

func TestDoneCommand_RefErrors(t *testing.T) {
	svc, _ := newStore(t)

	tests := []struct {
		args []string
		want string
	}{
		{nil, "error: task reference required\n"},
		{[]string{"9"}, "error: task number out of range: 9\n"},
		{[]string{"0"}, "error: task number out of range: 0\n"},
		{[]string{"ab"}, "error: invalid task reference: ab\n"},
		{[]string{"nope"}, "error: task not found: nope\n"},
		{[]string{"task"}, "error: ambiguous task id: task\n"},
	}
	for _, tt := range tests {
		stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, tt.args, false)
		expectCode(t, code, exitcode.UserError)
		if stdout != "" {
			t.Errorf("%v: expected no stdout, got %q", tt.args, stdout)
		}
		if stderr != tt.want {
			t.Errorf("%v: expected %q, got %q", tt.args, tt.want, stderr)
		}
	}
}

// Tests for undo command
func TestUndoCommand(t *testing.T) {
	svc, _ := newStore(t)
	svc.MarkComplete("task-3")

	stdout, _, code := runCommand(t, &commands.UndoCmd{}, svc, []string{"3"}, false)

	expectCode(t, code, exitcode.Success)
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	task, _ := svc.Get("task-3")
	if task.Done || task.CurrentStreak != 0 {
		t.Errorf("completion should be reversed, got %+v", task.State)
	}
}

// Tests for toggle command
func TestToggleCommand(t *testing.T) {
	svc, _ := newStore(t)

	stdout, _, _ := runCommand(t, &commands.ToggleCmd{}, svc, []string{"1"}, false)
	if stdout != "ok\n🏆 new best streak: 1\n" {
		t.Errorf("unexpected stdout after first toggle %q", stdout)
	}

	stdout, _, _ = runCommand(t, &commands.ToggleCmd{}, svc, []string{"1"}, false)
	if stdout != "ok\n" {
		t.Errorf("unexpected stdout after second toggle %q", stdout)
	}

	task, _ := svc.Get("task-1")
	if task.Done {
		t.Error("task should be open after two toggles")
	}
}

// Tests for edit command
func TestEditCommand(t *testing.T) {
	svc, _ := newStore(t)

	stdout, _, code := runCommand(t, &commands.EditCmd{}, svc, []string{"1", "Say", "hello"}, false)

	expectCode(t, code, exitcode.Success)
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if got := svc.Tasks()[0].Text; got != "Say hello" {
		t.Errorf("expected edited text, got %q", got)
	}
}

func TestEditCommand_NoText(t *testing.T) {
	svc, _ := newStore(t)

	_, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"1"}, false)

	expectCode(t, code, exitcode.UserError)
	if stderr != "error: text required\n" {
		t.Errorf("expected text required error, got %q", stderr)
	}
}

// Tests for rm command
func TestRmCommand_Success(t *testing.T) {
	svc, _ := newStore(t)

	stdout, _, code := runCommand(t, &commands.RmCmd{}, svc, []string{"task-2"}, false)

	expectCode(t, code, exitcode.Success)
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if _, ok := svc.Get("task-2"); ok {
		t.Error("task-2 should have been deleted")
	}
}

func TestRmCommand_NoRef(t *testing.T) {
	svc, _ := newStore(t)

	_, stderr, code := runCommand(t, &commands.RmCmd{}, svc, nil, false)

	expectCode(t, code, exitcode.UserError)
	if stderr != "error: task reference required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for stats command
func TestStatsCommand(t *testing.T) {
	svc, _ := newStore(t)
	svc.MarkComplete("task-1")

	stdout, _, code := runCommand(t, &commands.StatsCmd{}, svc, nil, false)

	expectCode(t, code, exitcode.Success)
	want := "streak progress: 0/7 (5%)\n[#...................]\ndone: 1/3\nbest streak: 1\n"
	if stdout != want {
		t.Errorf("got %q, want %q", stdout, want)
	}
}

func TestStatsCommand_Goal(t *testing.T) {
	svc, _ := newStore(t)
	svc.MarkComplete("task-1")
	cmd := &commands.StatsCmd{}
	cmd.SetGoal(1)

	stdout, _, _ := runCommand(t, cmd, svc, nil, false)

	if !strings.HasPrefix(stdout, "streak progress: 0/1 (33%)\n[######..............]\n") {
		t.Errorf("unexpected stdout %q", stdout)
	}

	cmd.SetGoal(-2)
	_, stderr, code := runCommand(t, cmd, svc, nil, false)
	expectCode(t, code, exitcode.UserError)
	if stderr != "error: invalid goal: -2\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for serve command
func TestServeCommand_StopsOnCancel(t *testing.T) {
	svc, _ := newStore(t)
	cmd := &commands.ServeCmd{}
	fs := flagSet(cmd)
	if err := fs.Parse([]string{"--addr", "127.0.0.1:0"}); err != nil {
		t.Fatal(err)
	}

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{Dir: t.TempDir(), Settings: config.DefaultSettings()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code := cmd.Run(ctx, cfg, svc, nil, &outBuf, &errBuf)

	expectCode(t, code, exitcode.Success)
	if outBuf.String() != "listening on http://127.0.0.1:0\n" {
		t.Errorf("unexpected stdout %q", outBuf.String())
	}
}

func TestServeCommand_BadAddr(t *testing.T) {
	svc, _ := newStore(t)
	cmd := &commands.ServeCmd{}
	fs := flagSet(cmd)
	if err := fs.Parse([]string{"--addr", "not-an-address"}); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := runCommand(t, cmd, svc, nil, true)

	expectCode(t, code, exitcode.BackendError)
	if !strings.HasPrefix(stderr, "error: server error:") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for push command
type fakeMirror struct {
	list  string
	tasks []service.Task
	err   error
}

func (m *fakeMirror) Push(ctx context.Context, listTitle string, tasks []service.Task) (googletasks.PushResult, error) {
	m.list = listTitle
	m.tasks = tasks
	if m.err != nil {
		return googletasks.PushResult{}, m.err
	}
	return googletasks.PushResult{Created: len(tasks)}, nil
}

func useMirror(t *testing.T, m *fakeMirror) {
	t.Helper()
	orig := commands.NewMirror
	commands.NewMirror = func(ctx context.Context, cfg *config.Config) (commands.Mirror, error) {
		return m, nil
	}
	t.Cleanup(func() { commands.NewMirror = orig })
}

func loggedInDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{config.OAuthClientFile, config.TokenFile} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestPushCommand_Success(t *testing.T) {
	svc, _ := newStore(t)
	m := &fakeMirror{}
	useMirror(t, m)

	stdout, stderr, code := runCommandIn(t, loggedInDir(t), &commands.PushCmd{}, svc, nil, false)

	expectCode(t, code, exitcode.Success)
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "created 3, completed 0, unchanged 0\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if m.list != "Streak Todos" {
		t.Errorf("expected default list name, got %q", m.list)
	}
	if len(m.tasks) != 3 {
		t.Errorf("expected 3 tasks pushed, got %d", len(m.tasks))
	}
}

func TestPushCommand_ListFlag(t *testing.T) {
	svc, _ := newStore(t)
	m := &fakeMirror{}
	useMirror(t, m)
	cmd := &commands.PushCmd{}
	cmd.SetListName("Habits")

	_, _, code := runCommandIn(t, loggedInDir(t), cmd, svc, nil, true)

	expectCode(t, code, exitcode.Success)
	if m.list != "Habits" {
		t.Errorf("expected list Habits, got %q", m.list)
	}
}

func TestPushCommand_NotLoggedIn(t *testing.T) {
	svc, _ := newStore(t)
	useMirror(t, &fakeMirror{})

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.OAuthClientFile), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := runCommandIn(t, dir, &commands.PushCmd{}, svc, nil, false)

	expectCode(t, code, exitcode.AuthError)
	if stderr != "error: not logged in (run: streaktodo login)\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestPushCommand_BackendError(t *testing.T) {
	svc, _ := newStore(t)
	useMirror(t, &fakeMirror{err: errors.New("request timed out")})

	_, stderr, code := runCommandIn(t, loggedInDir(t), &commands.PushCmd{}, svc, nil, false)

	expectCode(t, code, exitcode.BackendError)
	if stderr != "error: backend error: request timed out\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}
