package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bluetide-io/bluetide/pkg/config"
	"github.com/bluetide-io/bluetide/pkg/deploy"
	"github.com/bluetide-io/bluetide/pkg/log"
	"github.com/bluetide-io/bluetide/pkg/sshexec"
	"github.com/bluetide-io/bluetide/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	m.Run()
}

// okConn answers every remote command with success and reports a running
// container status, so direct deployments pass.
type okConn struct {
	mu       sync.Mutex
	commands []string
}

func (c *okConn) Run(_ context.Context, command string) (sshexec.Result, error) {
	c.mu.Lock()
	c.commands = append(c.commands, command)
	c.mu.Unlock()
	if strings.Contains(command, "{{.Status}}") {
		return sshexec.Result{Output: "Up 1 second\n"}, nil
	}
	return sshexec.Result{}, nil
}

func (c *okConn) RunInput(ctx context.Context, _ string, command string) (sshexec.Result, error) {
	return c.Run(ctx, command)
}

func (c *okConn) CheckConnectivity(context.Context) error { return nil }
func (c *okConn) Upload(string, string) error             { return nil }
func (c *okConn) UploadFile(string, string) error         { return nil }
func (c *okConn) Close() error                            { return nil }

// dialWithBadHost fails the dial for one host and hands every other target
// an okConn.
func dialWithBadHost(badHost string) deploy.DialFunc {
	return func(t types.Target) (deploy.Conn, error) {
		if t.Host == badHost {
			return nil, fmt.Errorf("failed to connect to %s: connection refused", badHost)
		}
		return &okConn{}, nil
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	body := `
targets:
  app1:
    host: 198.51.100.7
    image: team/app1
    port: 3000
  app2:
    host: 198.51.100.8
    image: team/app2
    port: 3000
  app3:
    host: 203.0.113.66
    image: team/app3
    port: 3000
`
	path := filepath.Join(t.TempDir(), "bluetide.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRunAggregatesOutcomes(t *testing.T) {
	cfg := testConfig(t)
	markerDir := t.TempDir()

	deployer := deploy.New(dialWithBadHost("203.0.113.66"), deploy.WithSettle(0))
	driver := New(deployer, cfg, WithMarkerDir(markerDir))

	summary, err := driver.Run(context.Background(), nil, "v1")
	if err == nil {
		t.Fatal("expected batch error when one target fails")
	}
	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("summary = %d/%d, want 2 succeeded, 1 failed", summary.Succeeded, summary.Failed)
	}

	// Failure marker exists for the failed target only
	if _, err := os.Stat(filepath.Join(markerDir, "bluetide-app3.failed")); err != nil {
		t.Errorf("missing failure marker for app3: %v", err)
	}
	for _, name := range []string{"app1", "app2"} {
		if _, err := os.Stat(filepath.Join(markerDir, "bluetide-"+name+".failed")); !os.IsNotExist(err) {
			t.Errorf("unexpected marker for %s", name)
		}
	}
}

func TestRunParallelMatchesSequential(t *testing.T) {
	cfg := testConfig(t)

	deployer := deploy.New(dialWithBadHost(""), deploy.WithSettle(0))
	driver := New(deployer, cfg, Parallel(), WithMarkerDir(t.TempDir()))

	summary, err := driver.Run(context.Background(), nil, "v1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Succeeded != 3 || summary.Failed != 0 {
		t.Errorf("summary = %d/%d, want 3/0", summary.Succeeded, summary.Failed)
	}
	if len(summary.Attempts) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(summary.Attempts))
	}
}

func TestRunDeduplicatesTargets(t *testing.T) {
	cfg := testConfig(t)

	deployer := deploy.New(dialWithBadHost(""), deploy.WithSettle(0))
	driver := New(deployer, cfg, WithMarkerDir(t.TempDir()))

	summary, err := driver.Run(context.Background(), []string{"app1", "app1", "app2"}, "v1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Attempts) != 2 {
		t.Errorf("duplicates should collapse, got %d attempts", len(summary.Attempts))
	}
}

func TestRunRejectsUnknownTargetUpFront(t *testing.T) {
	cfg := testConfig(t)

	var dialed bool
	dial := func(types.Target) (deploy.Conn, error) {
		dialed = true
		return &okConn{}, nil
	}

	driver := New(deploy.New(dial, deploy.WithSettle(0)), cfg, WithMarkerDir(t.TempDir()))
	if _, err := driver.Run(context.Background(), []string{"app1", "nope"}, "v1"); err == nil {
		t.Fatal("expected error for unknown target")
	}
	if dialed {
		t.Error("no host may be dialed when validation fails")
	}
}

func TestSuccessRemovesStaleMarker(t *testing.T) {
	cfg := testConfig(t)
	markerDir := t.TempDir()

	stale := filepath.Join(markerDir, "bluetide-app1.failed")
	if err := os.WriteFile(stale, []byte("old failure"), 0o644); err != nil {
		t.Fatal(err)
	}

	deployer := deploy.New(dialWithBadHost(""), deploy.WithSettle(0))
	driver := New(deployer, cfg, WithMarkerDir(markerDir))

	if _, err := driver.Run(context.Background(), []string{"app1"}, "v1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale failure marker should be removed after success")
	}
}
