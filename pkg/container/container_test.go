package container

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/bluetide-io/bluetide/pkg/log"
	"github.com/bluetide-io/bluetide/pkg/sshexec"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	m.Run()
}

// fakeRunner scripts remote command responses by substring match and
// records everything it runs.
type fakeRunner struct {
	mu       sync.Mutex
	commands []string
	stdins   []string
	rules    []fakeRule
}

type fakeRule struct {
	contains string
	output   string
	exit     int
	err      error
	times    int // 0 means unlimited
}

func (f *fakeRunner) Run(_ context.Context, command string) (sshexec.Result, error) {
	return f.RunInput(context.Background(), "", command)
}

func (f *fakeRunner) RunInput(_ context.Context, stdin string, command string) (sshexec.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	f.stdins = append(f.stdins, stdin)

	for i := range f.rules {
		r := &f.rules[i]
		if r.times < 0 || !strings.Contains(command, r.contains) {
			continue
		}
		if r.times > 0 {
			r.times--
			if r.times == 0 {
				r.times = -1
			}
		}
		return sshexec.Result{Output: r.output, ExitCode: r.exit}, r.err
	}
	return sshexec.Result{}, nil
}

func (f *fakeRunner) ran(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.commands {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

func TestExistsMatchesExactName(t *testing.T) {
	runner := &fakeRunner{rules: []fakeRule{
		{contains: "docker ps -a", output: "app1-blue\napp1\n"},
	}}
	m := NewManager(runner)

	exists, err := m.Exists(context.Background(), "app1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Error("expected app1 to exist")
	}

	exists, err = m.Exists(context.Background(), "app2")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("app2 should not exist")
	}
}

func TestStatusEmptyMeansNotRunning(t *testing.T) {
	runner := &fakeRunner{rules: []fakeRule{
		{contains: "docker ps", output: "\n"},
	}}
	m := NewManager(runner)

	status, err := m.Status(context.Background(), "app1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != "" {
		t.Errorf("expected empty status, got %q", status)
	}
}

// TestStopAndRemoveIdempotent verifies teardown of a nonexistent container
// never errors the caller.
func TestStopAndRemoveIdempotent(t *testing.T) {
	runner := &fakeRunner{}
	m := NewManager(runner)

	if err := m.StopAndRemove(context.Background(), "does-not-exist"); err != nil {
		t.Fatalf("StopAndRemove on missing container: %v", err)
	}
	if !runner.ran("docker stop does-not-exist") {
		t.Error("expected a docker stop command")
	}
}

// TestLoginKeepsPasswordOutOfCommand verifies credentials travel over
// stdin, never in the command line.
func TestLoginKeepsPasswordOutOfCommand(t *testing.T) {
	runner := &fakeRunner{}
	m := NewManager(runner)

	if err := m.Login(context.Background(), "registry.example.com", "deploy", "s3cret"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if runner.ran("s3cret") {
		t.Error("password leaked into the command line")
	}
	if len(runner.stdins) != 1 || runner.stdins[0] != "s3cret" {
		t.Errorf("password not piped via stdin: %v", runner.stdins)
	}
	if !runner.ran("--password-stdin") {
		t.Error("expected --password-stdin login")
	}
}

func TestRunReportsDockerFailure(t *testing.T) {
	runner := &fakeRunner{rules: []fakeRule{
		{contains: "docker run", output: "no such image", exit: 125},
	}}
	m := NewManager(runner)

	err := m.Run(context.Background(), RunOptions{Name: "app1", Image: "team/app:bad"})
	if err == nil {
		t.Fatal("expected docker run failure")
	}
	if !strings.Contains(err.Error(), "no such image") {
		t.Errorf("error should carry docker output, got %v", err)
	}
}
