package proxy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bluetide-io/bluetide/pkg/container"
	"github.com/bluetide-io/bluetide/pkg/log"
	"github.com/bluetide-io/bluetide/pkg/sshexec"
	"github.com/bluetide-io/bluetide/pkg/types"
)

// Image is the Caddy image run on every target host
const Image = "caddy:2-alpine"

// caddyfilePath is where the generated configuration is mounted inside the
// proxy container.
const caddyfilePath = "/etc/caddy/Caddyfile"

// settleDelay is the pause between starting the proxy container and
// checking that it stayed up.
const settleDelay = 3 * time.Second

// logTailLines is how much proxy log output is surfaced on a failed start
const logTailLines = 20

// ErrNotRunning is returned when an operation requires a live proxy and
// none exists for the target.
var ErrNotRunning = errors.New("proxy is not running")

// ErrReloadFailed marks the inconsistent state where the routing fact was
// rewritten on disk but the live proxy did not pick it up. Callers must
// surface it, never swallow it.
var ErrReloadFailed = errors.New("proxy reload failed after config edit")

// Controller owns the reverse-proxy process on a target host and its single
// routing fact: which backend port is live. Nothing else in bluetide edits
// the proxy configuration.
type Controller struct {
	runner     sshexec.Runner
	containers *container.Manager
	logger     zerolog.Logger
	settle     time.Duration
}

// NewController creates a proxy controller bound to one remote host
func NewController(runner sshexec.Runner) *Controller {
	return &Controller{
		runner:     runner,
		containers: container.NewManager(runner),
		logger:     log.WithComponent("proxy"),
		settle:     settleDelay,
	}
}

// ContainerName returns the proxy container name for a target
func ContainerName(t types.Target) string {
	return "caddy-" + t.Name
}

// EnsureRunning idempotently sets up the proxy for a target: creates the
// remote state directories, generates and installs the Caddyfile pointing
// at the canonical port, and (re)creates the proxy container. An existing
// proxy container is stopped and removed first so configuration changes
// never partially apply to a running instance.
func (c *Controller) EnsureRunning(ctx context.Context, t types.Target) error {
	name := ContainerName(t)
	dir := t.ProxyDir()

	c.logger.Info().Str("target", t.Name).Str("dir", dir).Msg("setting up proxy")

	mkdir := fmt.Sprintf("mkdir -p %s/data %s/config", dir, dir)
	if res, err := c.runner.Run(ctx, mkdir); err != nil {
		return err
	} else if res.ExitCode != 0 {
		return fmt.Errorf("failed to create proxy directories (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Output))
	}

	caddyfile, err := renderCaddyfile(t, t.CanonicalPort)
	if err != nil {
		return err
	}
	if err := c.writeCaddyfile(ctx, t, caddyfile); err != nil {
		return err
	}

	if err := c.containers.StopAndRemove(ctx, name); err != nil {
		return fmt.Errorf("failed to remove existing proxy container: %w", err)
	}

	opts := container.RunOptions{
		Name:          name,
		Image:         Image,
		HostNetwork:   true,
		RestartAlways: true,
		Mounts: []types.Mount{
			{Source: dir + "/Caddyfile", Target: caddyfilePath},
			{Source: dir + "/data", Target: "/data"},
			{Source: dir + "/config", Target: "/config"},
		},
	}
	if err := c.containers.Run(ctx, opts); err != nil {
		return fmt.Errorf("failed to start proxy container: %w", err)
	}

	time.Sleep(c.settle)

	status, err := c.containers.Status(ctx, name)
	if err != nil {
		return err
	}
	if status == "" {
		logs, _ := c.containers.Logs(ctx, name, logTailLines)
		c.logger.Error().Str("target", t.Name).Msg("proxy container did not stay up")
		return fmt.Errorf("proxy container %s is not running after start; recent logs:\n%s", name, logs)
	}

	c.logger.Info().Str("target", t.Name).Str("status", status).Msg("proxy is running")
	return nil
}

// IsRunning reports whether the target's proxy container exists
func (c *Controller) IsRunning(ctx context.Context, t types.Target) (bool, error) {
	return c.containers.Exists(ctx, ContainerName(t))
}

// PointTo rewrites the persisted routing fact to the given port, then
// reloads the live proxy so the edit takes effect. The edit and the reload
// are a unit: if the edit lands but the reload fails, the error wraps
// ErrReloadFailed and must be surfaced, because disk and memory now
// disagree.
func (c *Controller) PointTo(ctx context.Context, t types.Target, port int) error {
	name := ContainerName(t)
	file := t.ProxyDir() + "/Caddyfile"

	sed := fmt.Sprintf("sed -i 's|reverse_proxy localhost:[0-9]*|reverse_proxy localhost:%d|' %s", port, file)
	if res, err := c.runner.Run(ctx, sed); err != nil {
		return err
	} else if res.ExitCode != 0 {
		return fmt.Errorf("failed to rewrite routing fact (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Output))
	}

	reload := fmt.Sprintf("docker exec %s caddy reload --config %s", name, caddyfilePath)
	res, err := c.runner.Run(ctx, reload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReloadFailed, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w (exit %d): %s", ErrReloadFailed, res.ExitCode, strings.TrimSpace(res.Output))
	}

	c.logger.Info().Str("target", t.Name).Int("port", port).Msg("traffic switched")
	return nil
}

// CurrentPort reads the persisted routing fact from the remote Caddyfile
func (c *Controller) CurrentPort(ctx context.Context, t types.Target) (int, error) {
	cmd := fmt.Sprintf("grep -o 'reverse_proxy localhost:[0-9]*' %s/Caddyfile", t.ProxyDir())
	res, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return 0, err
	}
	if res.ExitCode != 0 {
		return 0, fmt.Errorf("no routing fact found for target %s", t.Name)
	}

	line := strings.TrimSpace(res.Output)
	if i := strings.Index(line, "\n"); i >= 0 {
		line = line[:i]
	}
	port, err := strconv.Atoi(line[strings.LastIndex(line, ":")+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed routing fact %q: %w", line, err)
	}
	return port, nil
}

// writeCaddyfile installs the generated configuration on the remote host.
// The content travels over stdin so no quoting of the file body is needed.
func (c *Controller) writeCaddyfile(ctx context.Context, t types.Target, content string) error {
	res, err := c.runner.RunInput(ctx, content, "cat > "+t.ProxyDir()+"/Caddyfile")
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("failed to write Caddyfile (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Output))
	}
	return nil
}
