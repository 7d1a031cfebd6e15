package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskctl/internal/apperr"
	"taskctl/internal/backend/taskapi"
	"taskctl/internal/cli"
	"taskctl/internal/commands"
	"taskctl/internal/config"
	"taskctl/internal/exitcode"
	"taskctl/internal/logging"
	"taskctl/internal/service"
	"taskctl/internal/testutil"
)

// testFactory creates a service factory that returns the given FakeService.
func testFactory(svc *testutil.FakeService) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return svc, nil
	}
}

func run(t *testing.T, d *cli.Dispatcher, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	code = d.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(t, d, "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	d := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(t, d, "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	d := cli.NewDispatcher(commands.DefaultRegistry, nil)

	stdout, stderr, code := run(t, d, "help", "--config", t.TempDir())

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
	d := cli.NewDispatcher(commands.DefaultRegistry, nil)

	stdout, _, code := run(t, d, "version", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "taskctl 0.1.0\n" {
		t.Errorf("expected 'taskctl 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	d := cli.NewDispatcher(commands.DefaultRegistry, nil)

	_, stderr, code := run(t, d, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsValue(t *testing.T) {
	d := cli.NewDispatcher(commands.DefaultRegistry, nil)

	_, stderr, code := run(t, d, "list", "--page")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -page\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_NoArgsListsTasks(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SignIn("alice")
	svc.AddTask("Buy milk", service.StatusToDo)
	d := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	stdout, stderr, code := run(t, d)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	expected := "   1  To Do        Buy milk [medium]\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestDispatcher_SessionRequired(t *testing.T) {
	d := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(t, d, "list", "--config", t.TempDir())

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	expected := "error: not logged in (run: taskctl login)\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_StatusesWithoutSession(t *testing.T) {
	d := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	stdout, _, code := run(t, d, "statuses", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.HasPrefix(stdout, "TO_DO") {
		t.Errorf("expected status catalogue, got %q", stdout)
	}
}

func TestDispatcher_CommonFlagsReachConfig(t *testing.T) {
	dir := t.TempDir()
	var got *config.Config
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		got = cfg
		return testutil.NewFakeService(), nil
	}
	d := cli.NewDispatcher(commands.DefaultRegistry, factory)

	_, _, code := run(t, d, "statuses", "--config", dir, "-q", "--debug")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if got == nil || got.Dir != dir || !got.Quiet || !got.Debug {
		t.Errorf("unexpected config %+v", got)
	}
}

func TestDispatcher_InvalidConfig(t *testing.T) {
	t.Setenv("TASKCTL_STORE", "floppy")
	d := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(t, d, "statuses", "--config", t.TempDir())

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: config store: ") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_FactoryError(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return nil, &apperr.NetworkError{Op: "redis ping", Err: errors.New("connection refused")}
	}
	d := cli.NewDispatcher(commands.DefaultRegistry, factory)

	_, stderr, code := run(t, d, "statuses", "--config", t.TempDir())

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	expected := "error: backend error: redis ping: connection refused\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

type closingService struct {
	*testutil.FakeService
	closed int
}

func (c *closingService) Close() error {
	c.closed++
	return nil
}

func TestDispatcher_ClosesService(t *testing.T) {
	svc := &closingService{FakeService: testutil.NewFakeService()}
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return svc, nil
	}
	d := cli.NewDispatcher(commands.DefaultRegistry, factory)

	run(t, d, "statuses", "--config", t.TempDir())

	if svc.closed != 1 {
		t.Errorf("expected service closed once, got %d", svc.closed)
	}
}

// TestDispatcher_EndToEnd drives the real client against the fake API with
// the file session store, configured through <dir>/.env.
func TestDispatcher_EndToEnd(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("alice", "secret1", "Alice", "alice@example.com")

	dir := t.TempDir()
	env := "TASKCTL_API_URL=" + api.URL() + "\nTASKCTL_STORE=file\n"
	if err := os.WriteFile(filepath.Join(dir, config.EnvFile), []byte(env), 0600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		c, err := taskapi.New(ctx, cfg, logging.Discard())
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	d := cli.NewDispatcher(commands.DefaultRegistry, factory)

	steps := []struct {
		args   []string
		code   int
		stdout string
	}{
		{[]string{"list"}, exitcode.AuthError, ""},
		{[]string{"login", "--password", "secret1", "alice"}, exitcode.Success, "logged in as alice\n"},
		{[]string{"add", "Buy", "milk"}, exitcode.Success, ""},
		{[]string{"list"}, exitcode.Success, "   1  To Do        Buy milk [medium]\n"},
		{[]string{"done", "1"}, exitcode.Success, "ok\n"},
		{[]string{"list"}, exitcode.Success, "   1  Done         Buy milk [medium]\n"},
		{[]string{"logout"}, exitcode.Success, "ok\n"},
		{[]string{"list"}, exitcode.AuthError, ""},
	}
	for _, step := range steps {
		argv := append([]string{step.args[0], "--config", dir}, step.args[1:]...)
		stdout, stderr, code := run(t, d, argv...)
		if code != step.code {
			t.Fatalf("%v: expected exit code %d, got %d (stderr %q)", step.args, step.code, code, stderr)
		}
		if step.args[0] == "add" {
			if !strings.HasPrefix(stdout, "ok ") {
				t.Errorf("%v: expected ok with id, got %q", step.args, stdout)
			}
			continue
		}
		if stdout != step.stdout {
			t.Errorf("%v: expected %q, got %q", step.args, step.stdout, stdout)
		}
	}

	if api.Count("POST", "/auth/logout") != 1 {
		t.Error("logout should reach the server once")
	}
}
