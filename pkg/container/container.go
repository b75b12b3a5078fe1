package container

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bluetide-io/bluetide/pkg/log"
	"github.com/bluetide-io/bluetide/pkg/sshexec"
)

// Manager performs single-container CRUD on a remote host through a Runner
type Manager struct {
	runner sshexec.Runner
	logger zerolog.Logger
}

// NewManager creates a container manager bound to one remote host
func NewManager(runner sshexec.Runner) *Manager {
	return &Manager{
		runner: runner,
		logger: log.WithComponent("container"),
	}
}

// Exists reports whether a container with the exact name exists, running
// or stopped.
func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	cmd := fmt.Sprintf("docker ps -a --filter name=^%s$ --format '{{.Names}}'", shellSafeName(name))
	res, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return false, err
	}
	if res.ExitCode != 0 {
		return false, fmt.Errorf("docker ps failed (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Output))
	}
	for _, line := range strings.Split(res.Output, "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}

// Status returns the container's running status string, or empty when the
// container is not running. Empty is the "not running" signal used as the
// verification gate after creation.
func (m *Manager) Status(ctx context.Context, name string) (string, error) {
	cmd := fmt.Sprintf("docker ps --filter name=^%s$ --format '{{.Status}}'", shellSafeName(name))
	res, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("docker ps failed (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Output))
	}
	return strings.TrimSpace(res.Output), nil
}

// Logs returns the last n log lines of the container. Used to surface
// diagnostics when a deployment step fails.
func (m *Manager) Logs(ctx context.Context, name string, n int) (string, error) {
	cmd := fmt.Sprintf("docker logs --tail %d %s 2>&1", n, shellSafeName(name))
	res, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// StopAndRemove stops then removes the container. Absence of the container
// is not an error; teardown is idempotent.
func (m *Manager) StopAndRemove(ctx context.Context, name string) error {
	safe := shellSafeName(name)
	cmd := fmt.Sprintf("docker stop %s >/dev/null 2>&1; docker rm -f %s >/dev/null 2>&1; true", safe, safe)
	res, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("failed to remove container %s (exit %d): %s", name, res.ExitCode, strings.TrimSpace(res.Output))
	}
	m.logger.Debug().Str("container", name).Msg("stopped and removed")
	return nil
}

// Run creates and starts a container from the given options. Failures to
// pull the image or start the container are fatal to the caller.
func (m *Manager) Run(ctx context.Context, opts RunOptions) error {
	opts.Detach = true
	cmd := opts.Command()
	m.logger.Debug().Str("container", opts.Name).Str("image", opts.Image).Msg("starting container")

	res, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("docker run %s failed (exit %d): %s", opts.Name, res.ExitCode, strings.TrimSpace(res.Output))
	}
	return nil
}

// Pull fetches the image on the remote host
func (m *Manager) Pull(ctx context.Context, image string) error {
	res, err := m.runner.Run(ctx, "docker pull "+shellSafeName(image))
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("docker pull %s failed (exit %d): %s", image, res.ExitCode, strings.TrimSpace(res.Output))
	}
	return nil
}

// Login authenticates the remote docker daemon against a registry. The
// password travels over stdin so it never appears in argv or logs.
func (m *Manager) Login(ctx context.Context, registry, user, password string) error {
	cmd := fmt.Sprintf("docker login %s -u %s --password-stdin", shellSafeName(registry), shellSafeName(user))
	res, err := m.runner.RunInput(ctx, password, cmd)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("docker login to %s failed (exit %d)", registry, res.ExitCode)
	}
	return nil
}

// shellSafeName quotes a value destined for a remote shell argument
func shellSafeName(s string) string {
	return shellQuote(s)
}
