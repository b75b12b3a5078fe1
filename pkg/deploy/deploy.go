package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bluetide-io/bluetide/pkg/container"
	"github.com/bluetide-io/bluetide/pkg/log"
	"github.com/bluetide-io/bluetide/pkg/proxy"
	"github.com/bluetide-io/bluetide/pkg/sshexec"
	"github.com/bluetide-io/bluetide/pkg/term"
	"github.com/bluetide-io/bluetide/pkg/types"
)

var (
	// ErrProxyNotRunning is the precondition failure for zero-downtime
	// deployments attempted before proxy setup.
	ErrProxyNotRunning = errors.New("proxy is not running for this target; run `bluetide setup-proxy` first")

	// ErrHealthCheckFailed means the candidate never became healthy within
	// the timeout. The incumbent is untouched.
	ErrHealthCheckFailed = errors.New("health check failed")

	// ErrCanonicalDown is the post-switch verification failure: the
	// canonical container is not running and the previous instance is
	// already gone. There is no automatic recovery; the operator must
	// recreate the container from the same image and tag.
	ErrCanonicalDown = errors.New("canonical container is not running after switch; manual intervention required")
)

// Conn is the remote-host session a deployment attempt runs over. The SSH
// client satisfies it; tests substitute a scripted fake.
type Conn interface {
	sshexec.Runner
	CheckConnectivity(ctx context.Context) error
	Upload(localDir, remoteDir string) error
	UploadFile(local, remote string) error
	Close() error
}

// DialFunc opens a session to a target's host
type DialFunc func(t types.Target) (Conn, error)

// SSHDial is the production DialFunc
func SSHDial(t types.Target) (Conn, error) {
	return sshexec.Connect(t)
}

// Deployer drives deployments for single targets. Each attempt is a linear
// sequence of blocking remote commands over one connection; the only wait
// loops are the health poll and fixed settle delays.
type Deployer struct {
	dial           DialFunc
	logger         zerolog.Logger
	settle         time.Duration
	healthInterval time.Duration
	logTail        int
}

// Option configures a Deployer
type Option func(*Deployer)

// WithSettle overrides the settle delay after traffic switches and
// container creation.
func WithSettle(d time.Duration) Option {
	return func(dep *Deployer) { dep.settle = d }
}

// WithHealthInterval overrides the delay between health poll attempts
func WithHealthInterval(d time.Duration) Option {
	return func(dep *Deployer) { dep.healthInterval = d }
}

// New creates a Deployer
func New(dial DialFunc, opts ...Option) *Deployer {
	d := &Deployer{
		dial:           dial,
		logger:         log.WithComponent("deploy"),
		settle:         3 * time.Second,
		healthInterval: time.Second,
		logTail:        50,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Direct performs the simple stop/remove/recreate deployment: upload the
// target files, authenticate and pull, replace the container, verify it
// stays up.
func (d *Deployer) Direct(ctx context.Context, t types.Target, tag string) (types.Attempt, error) {
	attempt := newAttempt(t, tag)
	image := container.NormalizeImageRef(t.Image, tag)

	if err := preflight(t); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	conn, err := d.dial(t)
	if err != nil {
		return finish(attempt, types.OutcomeError, err)
	}
	defer conn.Close()

	term.Step("checking connectivity to %s", t.Host)
	if err := conn.CheckConnectivity(ctx); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	containers := container.NewManager(conn)

	envFile, mounts, err := d.stage(ctx, conn, t)
	if err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	if err := d.authenticate(ctx, containers, t); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	term.Step("pulling %s", image)
	if err := containers.Pull(ctx, image); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	term.Step("replacing container %s", t.ContainerName)
	if err := containers.StopAndRemove(ctx, t.ContainerName); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	opts := container.RunOptions{
		Name:          t.ContainerName,
		Image:         image,
		Ports:         []container.PortBinding{{Host: t.CanonicalPort, Container: t.CanonicalPort}},
		Env:           []string{fmt.Sprintf("PORT=%d", t.CanonicalPort)},
		EnvFile:       envFile,
		Mounts:        mounts,
		RestartAlways: true,
	}
	if err := containers.Run(ctx, opts); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	time.Sleep(d.settle)

	status, err := containers.Status(ctx, t.ContainerName)
	if err != nil {
		return finish(attempt, types.OutcomeError, err)
	}
	if status == "" {
		d.dumpLogs(ctx, containers, t.ContainerName)
		return finish(attempt, types.OutcomeError,
			fmt.Errorf("container %s is not running after deployment", t.ContainerName))
	}

	term.Success("deployed %s (%s)", t.Name, image)
	return finish(attempt, types.OutcomeSuccess, nil)
}

// preflight validates the target's local files. A missing path is a
// precondition failure reported before any remote host is dialed.
func preflight(t types.Target) error {
	if t.LocalDir != "" {
		info, err := os.Stat(t.LocalDir)
		if err != nil {
			return fmt.Errorf("target %s: local_dir: %w", t.Name, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("target %s: local_dir %s is not a directory", t.Name, t.LocalDir)
		}
	}
	if t.EnvFile != "" {
		if _, err := os.Stat(t.EnvFile); err != nil {
			return fmt.Errorf("target %s: env_file: %w", t.Name, err)
		}
	}
	for _, m := range t.Mounts {
		if _, err := os.Stat(m.Source); err != nil {
			return fmt.Errorf("target %s: mount source: %w", t.Name, err)
		}
	}
	return nil
}

// stage uploads the target's local directory, environment file and mount
// sources to the remote app directory and returns the remote env-file path
// and rewritten mounts.
func (d *Deployer) stage(ctx context.Context, conn Conn, t types.Target) (string, []types.Mount, error) {
	appDir := t.AppDir()

	if res, err := conn.Run(ctx, "mkdir -p "+appDir); err != nil {
		return "", nil, err
	} else if res.ExitCode != 0 {
		return "", nil, fmt.Errorf("failed to create %s (exit %d)", appDir, res.ExitCode)
	}

	if t.LocalDir != "" {
		term.Step("uploading %s to %s", t.LocalDir, appDir)
		if err := conn.Upload(t.LocalDir, appDir); err != nil {
			return "", nil, err
		}
	}

	envFile := ""
	if t.EnvFile != "" {
		envFile = appDir + "/.env"
		if err := conn.UploadFile(t.EnvFile, envFile); err != nil {
			return "", nil, err
		}
	}

	mounts := make([]types.Mount, 0, len(t.Mounts))
	for _, m := range t.Mounts {
		remote := appDir + "/" + filepath.Base(m.Source)
		if err := conn.UploadFile(m.Source, remote); err != nil {
			return "", nil, err
		}
		mounts = append(mounts, types.Mount{Source: remote, Target: m.Target, ReadOnly: m.ReadOnly})
	}

	return envFile, mounts, nil
}

// authenticate logs the remote docker daemon into the target registry when
// credentials are configured. Absence of credentials means a public image.
func (d *Deployer) authenticate(ctx context.Context, containers *container.Manager, t types.Target) error {
	if t.Registry == "" {
		return nil
	}
	term.Step("logging in to %s", t.Registry)
	if err := containers.Login(ctx, t.Registry, t.RegistryUser, t.RegistryPassword); err != nil {
		return fmt.Errorf("registry authentication failed: %w", err)
	}
	return nil
}

// dumpLogs surfaces the container's recent output on a fatal error
func (d *Deployer) dumpLogs(ctx context.Context, containers *container.Manager, name string) {
	logs, err := containers.Logs(ctx, name, d.logTail)
	if err != nil {
		d.logger.Warn().Err(err).Str("container", name).Msg("could not fetch container logs")
		return
	}
	term.Failure("recent logs from %s:", name)
	term.Plain("%s", logs)
}

func newAttempt(t types.Target, tag string) types.Attempt {
	if tag == "" {
		tag = container.DefaultTag
	}
	return types.Attempt{
		ID:        uuid.NewString(),
		Target:    t.Name,
		Tag:       tag,
		StartedAt: time.Now(),
	}
}

func finish(a types.Attempt, outcome types.Outcome, err error) (types.Attempt, error) {
	a.Duration = time.Since(a.StartedAt)
	a.Outcome = outcome
	a.Err = err
	return a, err
}

func proxyController(conn Conn) *proxy.Controller {
	return proxy.NewController(conn)
}
